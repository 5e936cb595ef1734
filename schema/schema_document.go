package schema

// Section labels of a packaged document, in the order they must appear.
const (
	DiffSectionLabel    = "### PATCH DIFF ###"
	SummarySectionLabel = "### CHANGED FILES SUMMARY ###"
	OldSectionLabel     = "### OLD VERSION FILES ###"
	NewSectionLabel     = "### NEW VERSION FILES ###"
)

// File block header pieces: "----- FILE: <path> (<TAG>) -----".
const (
	FileHeaderPrefix = "----- FILE: "
	FileHeaderSuffix = " -----"
	OldTag           = "OLD"
	NewTag           = "NEW"
)

// LengthMarkerPrefix introduces the byte count of length-prefixed framing,
// as in "### PATCH DIFF ### [len=42]".
const LengthMarkerPrefix = "[len="

// SectionLabels lists the section labels in document order.
var SectionLabels = []string{
	DiffSectionLabel,
	SummarySectionLabel,
	OldSectionLabel,
	NewSectionLabel,
}

// DefaultPromptHeader is the optional preamble placed before the first section
// when documents are packaged for an external reviewer.
const DefaultPromptHeader = `#################### LLM PATCH ANALYSIS PACKAGE ####################

You are a security patch portability expert.

Below is a vulnerability fix patch along with the original and patched versions
of each affected file. Decide whether this patch can be ported to the newer
version of the codebase.

Answer strictly in JSON:
{
  "portability": "Yes" | "Maybe" | "No",
  "reason": "<short explanation>"
}`
