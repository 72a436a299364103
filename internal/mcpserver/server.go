// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the Sowilo skill repository as tools over stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/catalog"
	"github.com/starford/sowilo/internal/models"
	"github.com/starford/sowilo/internal/noteservice"
	"github.com/starford/sowilo/internal/storage"
	"github.com/starford/sowilo/internal/trash"
)

// Server wraps the MCP server with the Sowilo skill tools.
type Server struct {
	mcp      *server.MCPServer
	cat      *catalog.Catalog
	store    *storage.FS
	notes    *noteservice.Service
	bin      *trash.Service
	maxBytes int64
}

// New creates an MCP server with all skill tools registered. maxBytes is
// the default asset-read cap; individual calls may override it.
func New(cat *catalog.Catalog, store *storage.FS, notes *noteservice.Service, bin *trash.Service, maxBytes int64) *Server {
	if maxBytes <= 0 {
		maxBytes = storage.DefaultMaxBytes
	}
	s := &Server{cat: cat, store: store, notes: notes, bin: bin, maxBytes: maxBytes}

	s.mcp = server.NewMCPServer(
		"Sowilo",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("server_info",
		mcp.WithDescription("Server-level documentation: purpose, skill roots, transport."),
	), s.serverInfo)

	s.mcp.AddTool(mcp.NewTool("list_skills",
		mcp.WithDescription("List available skills with brief metadata (name, description, license?, allowed_tools?, metadata?, path). Use get_skill_detail for the body."),
	), s.listSkills)

	s.mcp.AddTool(mcp.NewTool("get_skill_detail",
		mcp.WithDescription("Get the full parsed SKILL.md for a skill, including the Markdown body."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Hyphen-case skill name (matches the skill directory)")),
		mcp.WithBoolean("include_notes", mcp.Description("Append stored notes to the body")),
	), s.getSkillDetail)

	s.mcp.AddTool(mcp.NewTool("search_skill_index",
		mcp.WithDescription("Case-insensitive substring search across skill name, description, and body. Returns brief matches."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchSkillIndex)

	s.mcp.AddTool(mcp.NewTool("list_skill_assets",
		mcp.WithDescription("List non-SKILL.md files inside a skill directory and its user overlay (overlay paths are prefixed with @user/)."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Skill name")),
	), s.listSkillAssets)

	s.mcp.AddTool(mcp.NewTool("read_skill_asset",
		mcp.WithDescription("Read a file inside a skill directory. Returns text or base64 data with a MIME guess and a truncation flag."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Skill name")),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative file path within the skill directory (or @user/... for overlay files)")),
		mcp.WithNumber("max_bytes", mcp.Description("Maximum bytes to read (defaults to the configured cap)")),
	), s.readSkillAsset)

	s.mcp.AddTool(mcp.NewTool("create_skill",
		mcp.WithDescription("Create a new skill directory with a canonical SKILL.md. Read the sowilo://skill-format resource or the get_skill_contract tool first."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Hyphen-case skill name")),
		mcp.WithString("description", mcp.Required(), mcp.Description("What the skill does and when to use it")),
		mcp.WithString("body", mcp.Description("Markdown guidance body")),
		mcp.WithString("license", mcp.Description("Optional license identifier")),
		mcp.WithArray("allowed_tools", mcp.Description("Optional list of tool names the skill may use")),
		mcp.WithObject("metadata", mcp.Description("Optional string-keyed metadata mapping")),
	), s.createSkill)

	s.mcp.AddTool(mcp.NewTool("write_skill_asset",
		mcp.WithDescription("Write a new asset file inside a skill (additive; refuses to overwrite unless overwrite=true). Content may be text or base64."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Skill name")),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative destination path inside the skill (or @user/... for the overlay)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("File content")),
		mcp.WithString("encoding", mcp.Description("\"text\" (default) or \"base64\"")),
		mcp.WithBoolean("overwrite", mcp.Description("Replace an existing file")),
	), s.writeSkillAsset)

	s.mcp.AddTool(mcp.NewTool("write_skill_assets_bulk",
		mcp.WithDescription("Write several asset files in one call. Each entry is {path, content, encoding?}; entries fail independently."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Skill name")),
		mcp.WithArray("assets", mcp.Required(), mcp.Description("Entries of {path, content, encoding?}")),
		mcp.WithBoolean("overwrite", mcp.Description("Replace existing files")),
	), s.writeSkillAssetsBulk)

	s.mcp.AddTool(mcp.NewTool("store_skill_note",
		mcp.WithDescription("Append a note to a skill capturing learnings, corrections, or scripts. Additions only: existing files are never edited."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Skill name")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Short descriptive title")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Note body (Markdown supported)")),
	), s.storeSkillNote)

	s.mcp.AddTool(mcp.NewTool("list_skill_notes",
		mcp.WithDescription("List notes stored under a skill (both _notes/ and notes/ variants, plus the user overlay)."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Skill name")),
	), s.listSkillNotes)

	s.mcp.AddTool(mcp.NewTool("trash_skill",
		mcp.WithDescription("Soft-delete a skill by moving its directory into the trash area. Vendor skills are never relocatable; requires force=true."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Skill name")),
		mcp.WithBoolean("force", mcp.Description("Confirm the move")),
	), s.trashSkill)

	s.mcp.AddTool(mcp.NewTool("trash_skill_asset",
		mcp.WithDescription("Soft-delete one asset file by moving it into the trash area. On vendor skills only _notes/, notes/, _user/ and user/ files may be moved."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Skill name")),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative file path within the skill")),
	), s.trashSkillAsset)

	s.mcp.AddTool(mcp.NewTool("get_skill_contract",
		mcp.WithDescription("Returns the canonical SKILL.md format contract. Call this before creating skills."),
	), s.getSkillContract)

	s.mcp.AddResource(
		mcp.NewResource("sowilo://skill-format", "Skill Format Contract",
			mcp.WithResourceDescription("Canonical SKILL.md format that all skills must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSkillFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) serverInfo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]any{
		"name":        "Sowilo",
		"description": "Exposes agent skill bundles (SKILL.md + assets) for discovery, search, reading, creation, notes, and soft-deletes.",
		"skills_dir":  s.cat.VendorRoot(),
		"user_dir":    s.cat.UserRoot(),
		"transport":   "stdio",
	})
}

func (s *Server) listSkills(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	skills := s.cat.Discover()
	briefs := make([]models.Skill, len(skills))
	for i, sk := range skills {
		briefs[i] = sk.Brief()
	}
	return jsonResult(briefs)
}

func (s *Server) getSkillDetail(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	skill, err := s.cat.Get(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if argBool(req, "include_notes", false) {
		// Error placeholders have no resolvable directory; return them as-is.
		if dir, _, rerr := s.cat.ResolveDir(name); rerr == nil {
			skill.Body = s.notes.MergeIntoBody(dir, name, skill.Body)
		}
	}
	return jsonResult(skill)
}

func (s *Server) searchSkillIndex(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.cat.Search(query))
}

func (s *Server) listSkillAssets(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	dir, _, err := s.cat.ResolveDir(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	assets, err := s.store.ListAssets(dir, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(assets)
}

func (s *Server) readSkillAsset(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	dir, _, err := s.cat.ResolveDir(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := s.store.ReadAsset(dir, name, path, argInt64(req, "max_bytes", s.maxBytes))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(content)
}

func (s *Server) createSkill(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	description, err := req.RequireString("description")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if _, err := s.cat.Get(name); err == nil {
		return jsonResult(models.CreateResult{
			Message: fmt.Sprintf("skill %q already exists", name),
		})
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(err.Error()), nil
	}

	// New skills land in the user root when one is configured, so they stay
	// trashable; the vendor root is mirror-managed.
	root := s.cat.UserRoot()
	if root == "" {
		root = s.cat.VendorRoot()
	}

	result := storage.CreateSkill(root, name,
		description,
		argString(req, "body", ""),
		argString(req, "license", ""),
		argStringList(req, "allowed_tools"),
		argMap(req, "metadata"))
	return jsonResult(result)
}

func (s *Server) writeSkillAsset(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	dir, _, err := s.cat.ResolveDir(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result := s.store.WriteAsset(dir, name, path, content,
		argString(req, "encoding", ""), argBool(req, "overwrite", false))
	return jsonResult(result)
}

func (s *Server) writeSkillAssetsBulk(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entries, ok := req.GetArguments()["assets"].([]any)
	if !ok {
		return mcp.NewToolResultError("assets must be an array of {path, content, encoding?} entries"), nil
	}
	dir, _, err := s.cat.ResolveDir(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results := s.store.WriteAssetsBulk(dir, name, entries, argBool(req, "overwrite", false))
	return jsonResult(results)
}

func (s *Server) storeSkillNote(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	dir, _, err := s.cat.ResolveDir(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.notes.Store(dir, title, content))
}

func (s *Server) listSkillNotes(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	dir, _, err := s.cat.ResolveDir(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.notes.List(dir, name))
}

func (s *Server) trashSkill(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	dir, vendor, err := s.cat.ResolveDir(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.bin.TrashSkill(dir, name, vendor, argBool(req, "force", false)))
}

func (s *Server) trashSkillAsset(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	dir, vendor, err := s.cat.ResolveDir(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.bin.TrashAsset(dir, name, path, vendor)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

func (s *Server) getSkillContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(SkillFormatContract), nil
}

func (s *Server) readSkillFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "sowilo://skill-format",
			MIMEType: "text/markdown",
			Text:     SkillFormatContract,
		},
	}, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func argString(req mcp.CallToolRequest, key, def string) string {
	if v, ok := req.GetArguments()[key].(string); ok {
		return v
	}
	return def
}

func argBool(req mcp.CallToolRequest, key string, def bool) bool {
	if v, ok := req.GetArguments()[key].(bool); ok {
		return v
	}
	return def
}

func argInt64(req mcp.CallToolRequest, key string, def int64) int64 {
	switch v := req.GetArguments()[key].(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	}
	return def
}

func argStringList(req mcp.CallToolRequest, key string) []string {
	raw, ok := req.GetArguments()[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func argMap(req mcp.CallToolRequest, key string) map[string]any {
	if v, ok := req.GetArguments()[key].(map[string]any); ok {
		return v
	}
	return nil
}
