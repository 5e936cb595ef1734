package docfmt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/huangsam/patchcorpus/schema"
)

// Errors returned by Parse. Every one of them wraps ErrMalformedDocument.
var (
	ErrMalformedDocument = errors.New("malformed packaged document")
	ErrNoSections        = fmt.Errorf("%w: no section labels found", ErrMalformedDocument)
	ErrDuplicateSection  = fmt.Errorf("%w: duplicate section label", ErrMalformedDocument)
	ErrSectionOrder      = fmt.Errorf("%w: section labels out of order", ErrMalformedDocument)
	ErrDuplicateFile     = fmt.Errorf("%w: duplicate file block", ErrMalformedDocument)
)

// Parser is the inverse of Packager.
type Parser struct {
	DuplicatePolicy schema.DuplicatePolicy
}

// NewParser creates a Parser. An empty policy selects overwrite.
func NewParser(policy schema.DuplicatePolicy) *Parser {
	if policy == "" {
		policy = schema.DuplicateOverwrite
	}
	return &Parser{DuplicatePolicy: policy}
}

// labelLine is one section label found in the text.
type labelLine struct {
	index  int // position in schema.SectionLabels
	start  int // offset of the label line
	body   int // offset right after the label line
	length int // payload length, -1 for delimited framing
}

// Parse recovers diff text, summary and the before/after file maps.
// Text before the first label is ignored. A section that is not present
// yields an empty value; structural problems yield an error wrapping
// ErrMalformedDocument.
func (p *Parser) Parse(text string) (*schema.Document, error) {
	doc := &schema.Document{
		Before: map[string]string{},
		After:  map[string]string{},
	}

	cur, ok, err := findLabel(text, 0)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoSections
	}

	seen := make(map[int]bool, len(schema.SectionLabels))
	last := -1
	for ok {
		label := schema.SectionLabels[cur.index]
		if seen[cur.index] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSection, label)
		}
		if cur.index < last {
			return nil, fmt.Errorf("%w: %q after %q", ErrSectionOrder, label, schema.SectionLabels[last])
		}
		seen[cur.index] = true
		last = cur.index
		doc.Sections = append(doc.Sections, label)

		var body string
		var next labelLine
		if cur.length >= 0 {
			if cur.length > len(text)-cur.body {
				return nil, fmt.Errorf("%w: section %q declares %d bytes beyond end of text", ErrMalformedDocument, label, cur.length)
			}
			end := cur.body + cur.length
			body = text[cur.body:end]
			next, ok, err = findLabel(text, skipPadding(text, end))
		} else {
			next, ok, err = findLabel(text, cur.body)
			end := len(text)
			if ok {
				end = next.start
			}
			body = text[cur.body:end]
		}
		if err != nil {
			return nil, err
		}

		if err := p.fillSection(doc, cur, body); err != nil {
			return nil, err
		}
		cur = next
	}
	return doc, nil
}

// fillSection decodes one section body into doc.
func (p *Parser) fillSection(doc *schema.Document, l labelLine, body string) error {
	delimited := l.length < 0
	switch schema.SectionLabels[l.index] {
	case schema.DiffSectionLabel:
		if delimited {
			body = strings.TrimSuffix(body, "\n\n")
		}
		doc.DiffText = body
	case schema.SummarySectionLabel:
		if delimited {
			body = strings.TrimSuffix(body, "\n\n")
		}
		summary, err := decodeSummary(body)
		if err != nil {
			return err
		}
		doc.Summary = summary
	case schema.OldSectionLabel:
		return p.parseBlocks(body, schema.OldTag, doc.Before)
	case schema.NewSectionLabel:
		return p.parseBlocks(body, schema.NewTag, doc.After)
	}
	return nil
}

// parseBlocks reads every file block of a snapshot section into files.
func (p *Parser) parseBlocks(body string, tag string, files map[string]string) error {
	pos := 0
	for {
		start := findLinePrefix(body, pos, schema.FileHeaderPrefix)
		if start < 0 {
			return nil
		}
		lineEnd := strings.IndexByte(body[start:], '\n')
		contentStart := len(body)
		if lineEnd < 0 {
			lineEnd = len(body)
		} else {
			lineEnd += start
			contentStart = lineEnd + 1
		}

		path, headerTag, length, err := parseFileHeader(body[start:lineEnd])
		if err != nil {
			return err
		}
		if headerTag != "" && headerTag != tag {
			return fmt.Errorf("%w: file %q tagged %s inside %s section", ErrMalformedDocument, path, headerTag, tag)
		}

		var content string
		if length >= 0 {
			if length > len(body)-contentStart {
				return fmt.Errorf("%w: file %q declares %d bytes beyond end of section", ErrMalformedDocument, path, length)
			}
			end := contentStart + length
			content = body[contentStart:end]
			pos = skipPadding(body, end)
		} else {
			next := findLinePrefix(body, contentStart, schema.FileHeaderPrefix)
			end := len(body)
			if next >= 0 {
				end = next
			}
			raw := body[contentStart:end]
			if next >= 0 {
				raw = strings.TrimSuffix(raw, "\n")
			}
			content = strings.TrimSuffix(raw, "\n\n")
			pos = end
		}

		if err := p.store(files, path, content); err != nil {
			return err
		}
	}
}

// store applies the duplicate policy when path was already seen.
func (p *Parser) store(files map[string]string, path, content string) error {
	prev, dup := files[path]
	if !dup {
		files[path] = content
		return nil
	}
	switch p.DuplicatePolicy {
	case schema.DuplicateReject:
		return fmt.Errorf("%w: %q", ErrDuplicateFile, path)
	case schema.DuplicateAppend:
		files[path] = prev + "\n" + content
	default:
		files[path] = content
	}
	return nil
}

// parseFileHeader splits "----- FILE: <path> (<TAG>)[ [len=N]] -----".
// The returned length is -1 when the header carries none.
func parseFileHeader(line string) (path string, tag string, length int, err error) {
	length = -1
	if len(line) < len(schema.FileHeaderPrefix)+len(schema.FileHeaderSuffix) || !strings.HasSuffix(line, schema.FileHeaderSuffix) {
		return "", "", 0, fmt.Errorf("%w: bad file header %q", ErrMalformedDocument, line)
	}
	inner := line[len(schema.FileHeaderPrefix) : len(line)-len(schema.FileHeaderSuffix)]

	if strings.HasSuffix(inner, "]") {
		if idx := strings.LastIndex(inner, " "+schema.LengthMarkerPrefix); idx >= 0 {
			n, convErr := strconv.Atoi(inner[idx+len(schema.LengthMarkerPrefix)+1 : len(inner)-1])
			if convErr != nil || n < 0 {
				return "", "", 0, fmt.Errorf("%w: bad length in file header %q", ErrMalformedDocument, line)
			}
			length = n
			inner = inner[:idx]
		}
	}

	for _, t := range []string{schema.OldTag, schema.NewTag} {
		if suffix := " (" + t + ")"; strings.HasSuffix(inner, suffix) {
			inner = strings.TrimSuffix(inner, suffix)
			tag = t
			break
		}
	}
	if inner == "" {
		return "", "", 0, fmt.Errorf("%w: empty path in file header %q", ErrMalformedDocument, line)
	}
	return inner, tag, length, nil
}

// findLabel returns the first section label line at or after from.
// from is treated as the start of a line.
func findLabel(text string, from int) (labelLine, bool, error) {
	for pos := from; pos < len(text); {
		eol := strings.IndexByte(text[pos:], '\n')
		next := len(text)
		line := text[pos:]
		if eol >= 0 {
			line = text[pos : pos+eol]
			next = pos + eol + 1
		}
		if strings.HasPrefix(line, "### ") {
			if l, ok, err := matchLabel(line); err != nil {
				return labelLine{}, false, err
			} else if ok {
				l.start = pos
				l.body = next
				return l, true, nil
			}
		}
		pos = next
	}
	return labelLine{}, false, nil
}

// matchLabel reports whether line is a section label, with or without a length marker.
func matchLabel(line string) (labelLine, bool, error) {
	for i, label := range schema.SectionLabels {
		if line == label {
			return labelLine{index: i, length: -1}, true, nil
		}
		prefix := label + " " + schema.LengthMarkerPrefix
		if strings.HasPrefix(line, prefix) && strings.HasSuffix(line, "]") {
			n, err := strconv.Atoi(line[len(prefix) : len(line)-1])
			if err != nil || n < 0 {
				return labelLine{}, false, fmt.Errorf("%w: bad length in label %q", ErrMalformedDocument, line)
			}
			return labelLine{index: i, length: n}, true, nil
		}
	}
	return labelLine{}, false, nil
}

// findLinePrefix returns the offset of the first line at or after from that
// starts with prefix, or -1. from is treated as the start of a line.
func findLinePrefix(text string, from int, prefix string) int {
	for pos := from; pos < len(text); {
		if strings.HasPrefix(text[pos:], prefix) {
			return pos
		}
		eol := strings.IndexByte(text[pos:], '\n')
		if eol < 0 {
			return -1
		}
		pos += eol + 1
	}
	return -1
}

// skipPadding steps over the blank line written after length-prefixed payloads.
func skipPadding(text string, pos int) int {
	if strings.HasPrefix(text[pos:], "\n\n") {
		return pos + 2
	}
	return pos
}

// decodeSummary parses the summary JSON. An empty body is a zero summary.
func decodeSummary(body string) (schema.ChangeSummary, error) {
	var summary schema.ChangeSummary
	if strings.TrimSpace(body) == "" {
		return summary, nil
	}
	if err := json.Unmarshal([]byte(body), &summary); err != nil {
		return summary, fmt.Errorf("%w: summary is not valid JSON: %v", ErrMalformedDocument, err)
	}
	return summary, nil
}
