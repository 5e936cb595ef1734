// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/huangsam/patchcorpus/internal/contract"
)

// NewMCPServer initializes and configures the patchcorpus MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.CacheManager) *server.MCPServer {
	s := server.NewMCPServer(
		"Patch Corpus Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	// --- 1. Tool: extract_commit_refs ---
	s.AddTool(mcp.NewTool("extract_commit_refs",
		mcp.WithDescription("Extract fix commit hashes from the reference URLs of a security advisory."),
		mcp.WithString("ghsa_id", mcp.Description("Advisory identifier attached to every reference."), mcp.Required()),
		mcp.WithArray("references", mcp.Description("Reference URLs of the advisory."), mcp.WithStringItems(), mcp.Required()),
	), h.handleExtractCommitRefs)

	// --- 2. Tool: introspect_diff ---
	s.AddTool(mcp.NewTool("introspect_diff",
		mcp.WithDescription("List the changed files and declaration lines of a unified diff."),
		mcp.WithString("diff", mcp.Description("Full commit text as printed by git show."), mcp.Required()),
	), h.handleIntrospectDiff)

	// --- 3. Tool: pack_document ---
	s.AddTool(mcp.NewTool("pack_document",
		mcp.WithDescription("Package a commit's diff and file snapshots into a section-delimited document."),
		mcp.WithString("ghsa_id", mcp.Description("Advisory identifier."), mcp.Required()),
		mcp.WithString("commit", mcp.Description("Commit hash."), mcp.Required()),
		mcp.WithString("diff", mcp.Description("Diff text of the commit.")),
		mcp.WithObject("old_code", mcp.Description("Map of path to content before the commit.")),
		mcp.WithObject("new_code", mcp.Description("Map of path to content at the commit.")),
		mcp.WithString("framing", mcp.Description("Document framing. Defaults to the server setting."), mcp.Enum("delimited", "length")),
		mcp.WithBoolean("prompt_header", mcp.Description("Prepend the reviewer prompt header.")),
	), h.handlePackDocument)

	// --- 4. Tool: parse_document ---
	s.AddTool(mcp.NewTool("parse_document",
		mcp.WithDescription("Parse a packaged document back into its diff, summary and file maps."),
		mcp.WithString("text", mcp.Description("The packaged document."), mcp.Required()),
		mcp.WithString("duplicate_policy", mcp.Description("Handling of repeated file blocks."), mcp.Enum("overwrite", "append", "reject")),
	), h.handleParseDocument)

	// --- 5. Tool: build_corpus ---
	s.AddTool(mcp.NewTool("build_corpus",
		mcp.WithDescription("Assemble corpus records from the packaged documents of a staging directory and write the corpus file."),
		mcp.WithString("staging_dir", mcp.Description("Staging directory (defaults to the configured one).")),
		mcp.WithString("corpus_file", mcp.Description("Corpus file path (defaults to dataset.json inside the staging directory).")),
	), h.handleBuildCorpus)

	// --- 6. Tool: corpus_status ---
	s.AddTool(mcp.NewTool("corpus_status",
		mcp.WithDescription("Report the build history totals of the corpus database."),
	), h.handleCorpusStatus)

	return s
}

// StartMCPServer starts the patchcorpus MCP server.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.CacheManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}
