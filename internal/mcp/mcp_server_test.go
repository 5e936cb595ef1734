package mcp_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/patchcorpus/core/docfmt"
	"github.com/huangsam/patchcorpus/internal/contract"
	"github.com/huangsam/patchcorpus/internal/iocache"
	mcp_internal "github.com/huangsam/patchcorpus/internal/mcp"
	"github.com/huangsam/patchcorpus/internal/staging"
	"github.com/huangsam/patchcorpus/schema"
)

const diff = "diff --git a/lib/a.py b/lib/a.py\n--- a/lib/a.py\n+++ b/lib/a.py\n@@ -1 +1 @@\n-def a():\n+def a(x):\n"

func callTool(t *testing.T, baseCfg *contract.Config, mgr contract.CacheManager, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	s := mcp_internal.NewMCPServer(baseCfg, mgr)
	tool := s.GetTool(name)
	require.NotNil(t, tool, "Tool %s should exist", name)

	req := mcp.CallToolRequest{Params: mcp.CallToolParams{Name: name, Arguments: args}}
	res, err := tool.Handler(context.Background(), req)
	require.NoError(t, err, "The MCP handler should not return a raw error for tool logic failures")
	require.NotEmpty(t, res.Content)
	return res
}

func resultText(res *mcp.CallToolResult) string {
	return res.Content[0].(mcp.TextContent).Text
}

func defaultConfig(t *testing.T) *contract.Config {
	return &contract.Config{
		StagingDir:      t.TempDir(),
		Framing:         schema.DelimitedFraming,
		DuplicatePolicy: schema.DuplicateOverwrite,
		Workers:         1,
	}
}

func TestExtractCommitRefsTool(t *testing.T) {
	cfg := defaultConfig(t)

	res := callTool(t, cfg, nil, "extract_commit_refs", map[string]any{
		"ghsa_id":    "GHSA-1",
		"references": []any{"https://x/commit/abc1234", "no match", "https://y/commit/abc1234"},
	})
	require.False(t, res.IsError)
	var refs []schema.CommitRef
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &refs))
	assert.Len(t, refs, 2)

	res = callTool(t, cfg, nil, "extract_commit_refs", map[string]any{"references": []any{}})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(res), "ghsa_id is required")
}

func TestIntrospectDiffTool(t *testing.T) {
	res := callTool(t, defaultConfig(t), nil, "introspect_diff", map[string]any{"diff": diff})
	require.False(t, res.IsError)

	var out map[string][]string
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &out))
	assert.Equal(t, []string{"lib/a.py"}, out["files"])
	assert.Equal(t, []string{"-def a():", "+def a(x):"}, out["symbols"])
}

func TestPackAndParseTools(t *testing.T) {
	cfg := defaultConfig(t)

	res := callTool(t, cfg, nil, "pack_document", map[string]any{
		"ghsa_id":  "GHSA-1",
		"commit":   "deadbee",
		"diff":     diff,
		"old_code": map[string]any{"lib/a.py": "def a():"},
		"new_code": map[string]any{"lib/a.py": "def a(x):"},
	})
	require.False(t, res.IsError)
	text := resultText(res)
	assert.Contains(t, text, schema.OldSectionLabel)
	assert.NotContains(t, text, "LLM PATCH ANALYSIS PACKAGE")

	res = callTool(t, cfg, nil, "parse_document", map[string]any{"text": text})
	require.False(t, res.IsError, resultText(res))

	var parsed struct {
		Sections  []string          `json:"sections"`
		PatchDiff string            `json:"patch_diff"`
		OldCode   map[string]string `json:"old_code"`
		NewCode   map[string]string `json:"new_code"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &parsed))
	assert.Equal(t, schema.SectionLabels, parsed.Sections)
	assert.Equal(t, diff, parsed.PatchDiff)
	assert.Equal(t, map[string]string{"lib/a.py": "def a():"}, parsed.OldCode)
	assert.Equal(t, map[string]string{"lib/a.py": "def a(x):"}, parsed.NewCode)
}

func TestPackDocumentToolValidation(t *testing.T) {
	cfg := defaultConfig(t)

	t.Run("missing commit", func(t *testing.T) {
		res := callTool(t, cfg, nil, "pack_document", map[string]any{"ghsa_id": "GHSA-1"})
		assert.True(t, res.IsError)
	})

	t.Run("non-string content", func(t *testing.T) {
		res := callTool(t, cfg, nil, "pack_document", map[string]any{
			"ghsa_id": "GHSA-1", "commit": "deadbee", "old_code": map[string]any{"a.py": 1.0},
		})
		assert.True(t, res.IsError)
		assert.Contains(t, resultText(res), "must be a string")
	})

	t.Run("invalid framing", func(t *testing.T) {
		res := callTool(t, cfg, nil, "pack_document", map[string]any{
			"ghsa_id": "GHSA-1", "commit": "deadbee", "framing": "xml",
		})
		assert.True(t, res.IsError)
		assert.Contains(t, resultText(res), "invalid framing")
	})

	t.Run("length framing with header", func(t *testing.T) {
		res := callTool(t, cfg, nil, "pack_document", map[string]any{
			"ghsa_id": "GHSA-1", "commit": "deadbee", "framing": "length", "prompt_header": true,
		})
		require.False(t, res.IsError)
		assert.Contains(t, resultText(res), schema.LengthMarkerPrefix)
		assert.Contains(t, resultText(res), "Advisory: GHSA-1")
	})
}

func TestParseDocumentToolErrors(t *testing.T) {
	cfg := defaultConfig(t)

	res := callTool(t, cfg, nil, "parse_document", map[string]any{"text": "nothing to see"})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(res), "no section labels")

	res = callTool(t, cfg, nil, "parse_document", map[string]any{"text": "x", "duplicate_policy": "merge"})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(res), "invalid duplicate policy")
}

func TestBuildCorpusTool(t *testing.T) {
	cfg := defaultConfig(t)
	area, err := staging.New(cfg.StagingDir)
	require.NoError(t, err)

	summary := schema.ChangeSummary{ChangedFiles: []string{"lib/a.py"}, FilesSaved: []schema.SavedFile{}}
	text := docfmt.NewPackager(schema.DelimitedFraming, "").Pack("GHSA-1", "deadbee", diff, summary,
		map[string]string{"lib/a.py": "A"}, map[string]string{"lib/a.py": "B"})
	_, err = area.WriteDocument(schema.CommitRef{AdvisoryID: "GHSA-1", Hash: "deadbee"}, text)
	require.NoError(t, err)
	_, err = area.WriteDocument(schema.CommitRef{AdvisoryID: "GHSA-2", Hash: "abc1234"}, "broken")
	require.NoError(t, err)

	res := callTool(t, cfg, nil, "build_corpus", map[string]any{})
	require.False(t, res.IsError, resultText(res))

	var out struct {
		CorpusFile string                   `json:"corpus_file"`
		Assembled  int                      `json:"assembled"`
		Skipped    []schema.SkippedDocument `json:"skipped"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &out))
	assert.Equal(t, 1, out.Assembled)
	require.Len(t, out.Skipped, 1)
	assert.Equal(t, "GHSA-2", out.Skipped[0].AdvisoryID)

	assert.Equal(t, filepath.Join(cfg.StagingDir, contract.DefaultCorpusFile), out.CorpusFile)
	data, err := os.ReadFile(out.CorpusFile)
	require.NoError(t, err)
	var records []schema.CorpusRecord
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 1)
	assert.Equal(t, "GHSA-1", records[0].AdvisoryID)
	assert.Equal(t, map[string]string{"lib/a.py": "B"}, records[0].NewCode)

	t.Run("explicit corpus file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out", "corpus.json")
		res := callTool(t, cfg, nil, "build_corpus", map[string]any{"corpus_file": path})
		require.False(t, res.IsError, resultText(res))
		assert.Contains(t, resultText(res), path)
		assert.FileExists(t, path)
	})
}

func TestCorpusStatusTool(t *testing.T) {
	cfg := defaultConfig(t)

	t.Run("no manager", func(t *testing.T) {
		res := callTool(t, cfg, nil, "corpus_status", nil)
		assert.True(t, res.IsError)
		assert.Contains(t, resultText(res), "corpus tracking is disabled")
	})

	t.Run("store status", func(t *testing.T) {
		store := &iocache.MockCorpusStore{}
		store.On("GetStatus").Return(schema.CorpusStatus{Backend: "sqlite", Connected: true, TotalRuns: 3}, nil)
		mgr := &iocache.MockCacheManager{}
		mgr.On("GetCorpusStore").Return(store)

		res := callTool(t, cfg, mgr, "corpus_status", nil)
		require.False(t, res.IsError)
		assert.Contains(t, resultText(res), `"total_runs": 3`)
	})

	t.Run("store error", func(t *testing.T) {
		store := &iocache.MockCorpusStore{}
		store.On("GetStatus").Return(schema.CorpusStatus{}, errors.New("connection refused"))
		mgr := &iocache.MockCacheManager{}
		mgr.On("GetCorpusStore").Return(store)

		res := callTool(t, cfg, mgr, "corpus_status", nil)
		assert.True(t, res.IsError)
		assert.Contains(t, resultText(res), "connection refused")
	})
}
