package core

import (
	"regexp"

	"github.com/huangsam/patchcorpus/schema"
)

// commitRefPattern matches a path-style commit reference such as
// "https://github.com/o/r/commit/abc1234".
var commitRefPattern = regexp.MustCompile(`/commit/([0-9a-f]{7,40})`)

// ExtractCommitRefs returns one CommitRef per reference that contains a commit
// link, using the first match in each string. Input order is kept and
// duplicates are not removed. Nothing is checked against a repository here.
func ExtractCommitRefs(advisoryID string, references []string) []schema.CommitRef {
	refs := make([]schema.CommitRef, 0, len(references))
	for _, ref := range references {
		m := commitRefPattern.FindStringSubmatch(ref)
		if m == nil {
			continue
		}
		refs = append(refs, schema.CommitRef{AdvisoryID: advisoryID, Hash: m[1]})
	}
	return refs
}

// ResolveAdvisory extracts the commit refs of an advisory.
func ResolveAdvisory(adv schema.Advisory) []schema.CommitRef {
	return ExtractCommitRefs(adv.ID, adv.References)
}

// CommitHashes returns just the hashes of refs, in order.
func CommitHashes(refs []schema.CommitRef) []string {
	hashes := make([]string, len(refs))
	for i, r := range refs {
		hashes[i] = r.Hash
	}
	return hashes
}
