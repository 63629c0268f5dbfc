// Package tools implements the MCP-shaped outbound tool surface the agent
// invokes: every call returns a two-part result so the agent always has a
// plain-language message and a machine-readable detail object to branch on.
// The core never silently drops an invocation.
package tools

import (
	"github.com/cortexmind/cortex/internal/runtime"
)

// ContentBlock is one rendered piece of a tool's textual response.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Result is the tool-call response contract: a human-readable message plus
// a structured details object the agent can branch on without re-parsing text.
type Result struct {
	Content []ContentBlock         `json:"content"`
	Details map[string]interface{} `json:"details"`
}

func text(s string) Result {
	return Result{Content: []ContentBlock{{Type: "text", Text: s}}, Details: map[string]interface{}{}}
}

func textWith(s string, details map[string]interface{}) Result {
	if details == nil {
		details = map[string]interface{}{}
	}
	return Result{Content: []ContentBlock{{Type: "text", Text: s}}, Details: details}
}

func errResult(code, message string) Result {
	return textWith(message, map[string]interface{}{"error": code})
}

// Registry binds every tool name to the Engine it operates against.
type Registry struct {
	engine *runtime.Engine
}

// New builds a tool Registry over a running Engine.
func New(e *runtime.Engine) *Registry {
	return &Registry{engine: e}
}
