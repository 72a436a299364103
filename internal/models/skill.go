// Package models defines the domain types for Sowilo.
package models

// Skill is a parsed SKILL.md bundle, or an error placeholder when the
// manifest failed to parse (Description carries the diagnostic and
// Metadata["error"] is set).
type Skill struct {
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	License      string         `json:"license,omitempty"`
	AllowedTools []string       `json:"allowed_tools,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Path         string         `json:"path"`
	Body         string         `json:"body,omitempty"`
}

// Brief returns a copy without the body, for compact listings.
func (s Skill) Brief() Skill {
	s.Body = ""
	return s
}

// SearchMatch is a brief search hit.
type SearchMatch struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Path        string `json:"path"`
}

// Asset is a non-manifest file inside a skill directory or its user overlay.
// Overlay assets carry the "@user/" path prefix.
type Asset struct {
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type,omitempty"`
}

// AssetContent is the result of reading an asset.
type AssetContent struct {
	Encoding  string `json:"encoding"` // "text" or "base64"
	Data      string `json:"data"`
	MimeType  string `json:"mime_type,omitempty"`
	Truncated bool   `json:"truncated"`
}

// WriteResult reports the outcome of a single asset write. Failures are
// reported in-band so bulk writes can proceed past a bad entry.
type WriteResult struct {
	Written bool   `json:"written"`
	Path    string `json:"path"`
	Size    int64  `json:"size"`
	Message string `json:"message"`
	Binary  bool   `json:"binary"`
}

// Note is a stored observation attached to a skill.
type Note struct {
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	Title     string `json:"title,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	Kind      string `json:"kind,omitempty"`
}

// NoteResult reports the outcome of storing a note.
type NoteResult struct {
	Path    string `json:"path"`
	Created bool   `json:"created"`
	Message string `json:"message"`
}

// CreateResult reports the outcome of creating a skill.
type CreateResult struct {
	Created bool   `json:"created"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

// TrashSkillResult reports the outcome of a skill soft-delete attempt.
// A policy refusal is Trashed=false with an explanatory message.
type TrashSkillResult struct {
	Trashed   bool   `json:"trashed"`
	Name      string `json:"name"`
	TrashPath string `json:"trash_path,omitempty"`
	Message   string `json:"message"`
}

// TrashAssetResult reports the outcome of an asset soft-delete attempt.
type TrashAssetResult struct {
	Trashed   bool   `json:"trashed"`
	Name      string `json:"name"`
	Path      string `json:"path"`
	TrashPath string `json:"trash_path,omitempty"`
	Message   string `json:"message"`
}
