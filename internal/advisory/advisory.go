// Package advisory loads vulnerability advisories and normalizes them.
package advisory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/huangsam/patchcorpus/schema"
)

// vulnerabilitiesKey only appears in the raw feed shape.
const vulnerabilitiesKey = "vulnerabilities"

// LoadFile reads advisories from a JSON or YAML array. Each record may be in
// the raw feed shape, which is normalized, or already normalized.
// A missing or unreadable file is an error.
func LoadFile(path string) ([]schema.Advisory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read advisories %s: %w", path, err)
	}
	unmarshal := json.Unmarshal
	if isYAML(path) {
		unmarshal = yaml.Unmarshal
	}
	advisories, err := decode(data, unmarshal)
	if err != nil {
		return nil, fmt.Errorf("decode advisories %s: %w", path, err)
	}
	return advisories, nil
}

// LoadFeedFile reads a raw feed file without normalizing it.
func LoadFeedFile(path string) ([]schema.FeedAdvisory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read advisories %s: %w", path, err)
	}
	var feed []schema.FeedAdvisory
	if isYAML(path) {
		err = yaml.Unmarshal(data, &feed)
	} else {
		err = json.Unmarshal(data, &feed)
	}
	if err != nil {
		return nil, fmt.Errorf("decode advisories %s: %w", path, err)
	}
	return feed, nil
}

// Normalize maps one feed record to an Advisory. The first vulnerability
// supplies the ecosystem and the old range; the second one, if any, supplies
// the new range.
func Normalize(feed schema.FeedAdvisory) schema.Advisory {
	adv := schema.Advisory{
		ID:                 feed.GHSAID,
		SourceCodeLocation: feed.SourceCodeLocation,
		References:         feed.References,
	}
	if adv.References == nil {
		adv.References = []string{}
	}
	if len(feed.Vulnerabilities) >= 1 {
		v := feed.Vulnerabilities[0]
		adv.Ecosystem = v.Package.Ecosystem
		adv.VulnerableVersionOld = v.VulnerableVersionRange
		adv.PatchedVersionOld = v.FirstPatchedVersion
	}
	if len(feed.Vulnerabilities) >= 2 {
		v := feed.Vulnerabilities[1]
		adv.VulnerableVersionNew = v.VulnerableVersionRange
		adv.PatchedVersionNew = v.FirstPatchedVersion
	}
	return adv
}

// NormalizeAll normalizes every record, keeping order.
func NormalizeAll(feed []schema.FeedAdvisory) []schema.Advisory {
	out := make([]schema.Advisory, len(feed))
	for i, f := range feed {
		out[i] = Normalize(f)
	}
	return out
}

// WriteFile writes v as an indented JSON array, or YAML for .yaml/.yml paths.
func WriteFile(path string, v any) error {
	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(v)
	} else {
		data, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode advisories: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func decode(data []byte, unmarshal func([]byte, any) error) ([]schema.Advisory, error) {
	var raw []map[string]any
	if err := unmarshal(data, &raw); err != nil {
		return nil, err
	}
	var feed []schema.FeedAdvisory
	if err := unmarshal(data, &feed); err != nil {
		return nil, err
	}
	var normalized []schema.Advisory
	if err := unmarshal(data, &normalized); err != nil {
		return nil, err
	}

	out := make([]schema.Advisory, len(raw))
	for i, rec := range raw {
		if _, isFeed := rec[vulnerabilitiesKey]; isFeed {
			out[i] = Normalize(feed[i])
			continue
		}
		out[i] = normalized[i]
		if out[i].References == nil {
			out[i].References = []string{}
		}
	}
	return out, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
