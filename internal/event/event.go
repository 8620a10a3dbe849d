// Package event defines tool-call events and their extraction from the raw
// hook payload. Each tool kind has its own typed parameter shape, so
// extraction is a per-kind decode instead of optional-field probing.
package event

import (
	"encoding/json"
	"strings"
)

// ToolKind is the category of an intercepted tool call.
type ToolKind string

const (
	KindExec        ToolKind = "exec"
	KindFileRead    ToolKind = "file_read"
	KindFileWrite   ToolKind = "file_write"
	KindFileEdit    ToolKind = "file_edit"
	KindHTTPRequest ToolKind = "http_request"
	KindMessageSend ToolKind = "message_send"
	KindUnknown     ToolKind = "unknown"
)

// Recognized returns true for kinds the decision engine evaluates.
func (k ToolKind) Recognized() bool {
	switch k {
	case KindExec, KindFileRead, KindFileWrite, KindFileEdit, KindHTTPRequest, KindMessageSend:
		return true
	}
	return false
}

// PathBearing returns true for kinds whose candidate is a file path.
func (k ToolKind) PathBearing() bool {
	return k == KindFileRead || k == KindFileWrite || k == KindFileEdit
}

// ToolCallEvent is one intercepted tool call, ready for rule evaluation.
type ToolCallEvent struct {
	Kind ToolKind `json:"kind"`

	// Candidate is the string rules match against: the command line for
	// exec, the target path for file operations, the URL for http_request.
	Candidate string `json:"candidate"`

	// Paths referenced by the call: the target path for file operations,
	// or paths harvested from an exec command line.
	Paths []string `json:"paths,omitempty"`

	// Old/new content for file_write and file_edit, used by the
	// guard-mention self-protection check.
	OldContent string `json:"-"`
	NewContent string `json:"-"`

	// RawParams keeps the undecoded payload for logging and alerts.
	RawParams json.RawMessage `json:"-"`
}

type execParams struct {
	Command string `json:"command"`
	Workdir string `json:"workdir"`
}

type fileParams struct {
	Path      string `json:"path"`
	FilePath  string `json:"file_path"`
	Content   string `json:"content"`
	OldString string `json:"old_string"`
	NewString string `json:"new_string"`
}

type httpParams struct {
	URL string `json:"url"`
}

type messageParams struct {
	Text    string `json:"text"`
	Message string `json:"message"`
}

// KindForTool maps a host tool name to a ToolKind. Unrecognized names map
// to KindUnknown, which the engine allows without evaluation.
func KindForTool(toolName string) ToolKind {
	switch strings.ToLower(toolName) {
	case "exec", "bash", "shell", "run_command":
		return KindExec
	case "read", "file_read", "view":
		return KindFileRead
	case "write", "file_write", "create":
		return KindFileWrite
	case "edit", "file_edit", "str_replace":
		return KindFileEdit
	case "web_fetch", "web_search", "http_request", "fetch":
		return KindHTTPRequest
	case "message", "send_message":
		return KindMessageSend
	}
	return KindUnknown
}

// Extract builds a ToolCallEvent from a tool name and its raw JSON params.
// It never fails: an unrecognized tool or an undecodable payload yields an
// event with an empty candidate, which the engine treats as "no opinion".
func Extract(toolName string, params json.RawMessage) ToolCallEvent {
	ev := ToolCallEvent{
		Kind:      KindForTool(toolName),
		RawParams: params,
	}
	if ev.Kind == KindUnknown || len(params) == 0 {
		return ev
	}

	switch ev.Kind {
	case KindExec:
		var p execParams
		if json.Unmarshal(params, &p) != nil {
			return ev
		}
		ev.Candidate = p.Command
		ev.Paths = CommandPaths(p.Command)

	case KindFileRead, KindFileWrite, KindFileEdit:
		var p fileParams
		if json.Unmarshal(params, &p) != nil {
			return ev
		}
		path := p.Path
		if path == "" {
			path = p.FilePath
		}
		ev.Candidate = path
		if path != "" {
			ev.Paths = []string{path}
		}
		ev.NewContent = p.Content
		if p.NewString != "" {
			ev.NewContent = p.NewString
		}
		ev.OldContent = p.OldString

	case KindHTTPRequest:
		var p httpParams
		if json.Unmarshal(params, &p) != nil {
			return ev
		}
		ev.Candidate = p.URL

	case KindMessageSend:
		var p messageParams
		if json.Unmarshal(params, &p) != nil {
			return ev
		}
		ev.Candidate = p.Text
		if ev.Candidate == "" {
			ev.Candidate = p.Message
		}
	}

	return ev
}
