package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSideTag(t *testing.T) {
	assert.Equal(t, "OLD", BeforeSide.Tag())
	assert.Equal(t, "NEW", AfterSide.Tag())
}

func TestCommitRefString(t *testing.T) {
	ref := CommitRef{AdvisoryID: "GHSA-xxxx-yyyy-zzzz", Hash: "deadbee"}
	assert.Equal(t, "GHSA-xxxx-yyyy-zzzz/deadbee", ref.String())
}

func TestCorpusRecordJudgmentFieldsMarshalAsNull(t *testing.T) {
	rec := CorpusRecord{
		AdvisoryID: "GHSA-1",
		CommitHash: "abc1234",
		OldCode:    map[string]string{},
		NewCode:    map[string]string{"a.py": "B"},
	}
	out, err := json.Marshal(rec)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(out, &raw))
	assert.Contains(t, raw, "portability")
	assert.Nil(t, raw["portability"])
	assert.Nil(t, raw["reason"])
	assert.Equal(t, "GHSA-1", raw["ghsa_id"])
}

func TestCorpusRecordEmptyReasonIsNotNull(t *testing.T) {
	empty := ""
	verdict := PortabilityNo
	rec := CorpusRecord{Portability: &verdict, Reason: &empty}
	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"reason":""`)
	assert.Contains(t, string(out), `"portability":"No"`)
}

func TestChangeSummaryOmitsEmptyAnnotations(t *testing.T) {
	out, err := json.Marshal(ChangeSummary{ChangedFiles: []string{"a.py"}, FilesSaved: []SavedFile{{File: "a.py", Old: true}}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"changed_files":["a.py"],"files_saved":[{"file":"a.py","old":true,"new":false}]}`, string(out))
}
