package mcp

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/j0hanz/fscontext/internal/fserr"
)

// jsonResult renders data as a JSON text content block. Payloads above the
// inline budget are parked in the resource store and replaced with a
// reference, so one oversized directory cannot blow up the agent's context.
func (s *Server) jsonResult(data any) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal response: %w", err)
	}

	if s.inlineBytes > 0 && len(content) > s.inlineBytes {
		id := s.store.Put(content, "application/json")
		ref, err := json.Marshal(map[string]any{
			"resourceId": id,
			"size":       len(content),
			"note":       "result exceeds the inline budget; fetch it with the read_resource tool",
		})
		if err != nil {
			return nil, fmt.Errorf("marshal resource reference: %w", err)
		}
		content = ref
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(content)}},
	}, nil
}

// errorResult renders err as an in-band tool error. IsError must be set so
// the client model sees the failure; protocol-level errors are reserved for
// malformed requests.
func (s *Server) errorResult(operation string, err error, suggestions []string) (*mcp.CallToolResult, error) {
	payload := map[string]any{
		"error":     err.Error(),
		"operation": operation,
	}
	var pe *fserr.PathError
	if errors.As(err, &pe) {
		payload["kind"] = string(pe.Kind)
		if hint := pe.Hint(); hint != "" {
			payload["hint"] = hint
		}
	}
	if len(suggestions) > 0 {
		payload["didYouMean"] = suggestions
	}

	content, merr := json.Marshal(payload)
	if merr != nil {
		content = []byte(fmt.Sprintf(`{"error":%q}`, err.Error()))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(content)}},
		IsError: true,
	}, nil
}
