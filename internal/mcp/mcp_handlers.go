package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/huangsam/patchcorpus/core"
	"github.com/huangsam/patchcorpus/core/docfmt"
	"github.com/huangsam/patchcorpus/internal/contract"
	"github.com/huangsam/patchcorpus/internal/outwriter"
	"github.com/huangsam/patchcorpus/internal/staging"
	"github.com/huangsam/patchcorpus/schema"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.CacheManager
}

// parsedDocument is the JSON view of a parsed document.
type parsedDocument struct {
	Sections  []string             `json:"sections"`
	PatchDiff string               `json:"patch_diff"`
	Summary   schema.ChangeSummary `json:"summary"`
	OldCode   map[string]string    `json:"old_code"`
	NewCode   map[string]string    `json:"new_code"`
}

// buildSummary is the JSON result of build_corpus.
type buildSummary struct {
	CorpusFile string                   `json:"corpus_file"`
	Assembled  int                      `json:"assembled"`
	Skipped    []schema.SkippedDocument `json:"skipped"`
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

// stringMap reads an object argument whose values must all be strings.
func stringMap(request mcp.CallToolRequest, key string) (map[string]string, error) {
	out := map[string]string{}
	raw, ok := request.GetArguments()[key]
	if !ok || raw == nil {
		return out, nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s must be an object of path to content", key)
	}
	for path, v := range obj {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%s[%q] must be a string", key, path)
		}
		out[path] = s
	}
	return out, nil
}

func (h *toolHandler) handleExtractCommitRefs(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("ghsa_id", "")
	if id == "" {
		return mcp.NewToolResultError("ghsa_id is required"), nil
	}
	refs := core.ExtractCommitRefs(id, request.GetStringSlice("references", nil))
	return jsonResult(refs)
}

func (h *toolHandler) handleIntrospectDiff(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	files, symbols := core.IntrospectDiff(request.GetString("diff", ""))
	return jsonResult(map[string][]string{"files": files, "symbols": symbols})
}

func (h *toolHandler) handlePackDocument(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("ghsa_id", "")
	commit := request.GetString("commit", "")
	if id == "" || commit == "" {
		return mcp.NewToolResultError("ghsa_id and commit are required"), nil
	}
	before, err := stringMap(request, "old_code")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	after, err := stringMap(request, "new_code")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	framing := h.baseCfg.Framing
	if f := request.GetString("framing", ""); f != "" {
		framing = schema.Framing(f)
		if _, ok := schema.ValidFramings[framing]; !ok {
			return mcp.NewToolResultError(fmt.Sprintf("invalid framing '%s'", f)), nil
		}
	}
	header := ""
	if request.GetBool("prompt_header", h.baseCfg.PromptHeader) {
		header = schema.DefaultPromptHeader
	}

	diff := request.GetString("diff", "")
	files, symbols := core.IntrospectDiff(diff)
	summary := schema.ChangeSummary{ChangedFiles: files, FilesSaved: []schema.SavedFile{}}
	for _, path := range files {
		_, old := before[path]
		_, cur := after[path]
		summary.FilesSaved = append(summary.FilesSaved, schema.SavedFile{File: path, Old: old, New: cur})
	}
	if len(symbols) > 0 {
		summary.Annotations = &schema.Annotations{ChangedSymbols: symbols}
	}

	text := docfmt.NewPackager(framing, header).Pack(id, commit, diff, summary, before, after)
	return mcp.NewToolResultText(text), nil
}

func (h *toolHandler) handleParseDocument(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	policy := h.baseCfg.DuplicatePolicy
	if p := request.GetString("duplicate_policy", ""); p != "" {
		policy = schema.DuplicatePolicy(p)
		if _, ok := schema.ValidDuplicatePolicies[policy]; !ok {
			return mcp.NewToolResultError(fmt.Sprintf("invalid duplicate policy '%s'", p)), nil
		}
	}

	doc, err := docfmt.NewParser(policy).Parse(request.GetString("text", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("parse failed: %v", err)), nil
	}
	if err := core.CheckChangedFiles(doc); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("parse failed: %v", err)), nil
	}
	return jsonResult(parsedDocument{
		Sections:  doc.Sections,
		PatchDiff: doc.DiffText,
		Summary:   doc.Summary,
		OldCode:   doc.Before,
		NewCode:   doc.After,
	})
}

func (h *toolHandler) handleBuildCorpus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	if d := request.GetString("staging_dir", ""); d != "" {
		cfg.StagingDir = d
		cfg.CorpusFile = ""
	}
	if f := request.GetString("corpus_file", ""); f != "" {
		cfg.CorpusFile = f
	}
	if cfg.CorpusFile == "" {
		cfg.CorpusFile = filepath.Join(cfg.StagingDir, contract.DefaultCorpusFile)
	}

	area, err := staging.New(cfg.StagingDir)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("build failed: %v", err)), nil
	}
	report, err := core.NewPipeline(cfg, contract.NewLocalGitClient(), area, h.mgr).Build(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("build failed: %v", err)), nil
	}
	if err := outwriter.WriteCorpus(cfg.CorpusFile, report.Records); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("build failed: %v", err)), nil
	}
	return jsonResult(buildSummary{CorpusFile: cfg.CorpusFile, Assembled: len(report.Records), Skipped: report.Skipped})
}

func (h *toolHandler) handleCorpusStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.mgr == nil || h.mgr.GetCorpusStore() == nil {
		return mcp.NewToolResultError("corpus tracking is disabled (no corpus backend configured)"), nil
	}
	status, err := h.mgr.GetCorpusStore().GetStatus()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("status failed: %v", err)), nil
	}
	return jsonResult(status)
}
