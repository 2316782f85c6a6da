package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/haasonsaas/aidis/internal/errs"
	"github.com/haasonsaas/aidis/internal/executor"
	"github.com/haasonsaas/aidis/internal/observability"
	"github.com/haasonsaas/aidis/internal/registry"
)

// StatusResource is the URI of the daemon status resource.
const StatusResource = "aidis://status"

// Server serves line-delimited JSON-RPC 2.0 on a reader/writer pair,
// normally stdin/stdout. Nothing but framed responses is ever written to
// the output stream; all logging goes through the logger (stderr).
type Server struct {
	exec   *executor.Executor
	logger *observability.Logger

	// Status produces the aidis://status resource body.
	Status func(ctx context.Context) any

	// Debug logs every frame at debug level.
	Debug bool

	in  io.Reader
	out io.Writer

	writeMu sync.Mutex
	wg      sync.WaitGroup
}

// NewServer creates a stdio server over the executor.
func NewServer(exec *executor.Executor, logger *observability.Logger, in io.Reader, out io.Writer) *Server {
	return &Server{
		exec:   exec,
		logger: logger,
		in:     in,
		out:    out,
	}
}

// Serve reads requests until the input closes or the context is cancelled.
// Each request is handled on its own goroutine so a slow tool call does
// not stall the stream.
func (s *Server) Serve(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024) // 1MB frames

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			break
		}
		line := make([]byte, len(scanner.Bytes()))
		copy(line, scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		if s.Debug {
			s.logger.Debug(ctx, "mcp frame received", "frame", string(line))
		}

		var req JSONRPCRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.respond(ctx, &JSONRPCResponse{
				JSONRPC: "2.0",
				Error:   &JSONRPCError{Code: CodeParseError, Message: "parse error: " + err.Error()},
			})
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.respond(ctx, s.handle(ctx, &req))
		}()
	}

	s.wg.Wait()
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("stdio read: %w", err)
	}
	return nil
}

func (s *Server) respond(ctx context.Context, resp *JSONRPCResponse) {
	if resp == nil {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error(ctx, "marshal response failed", "error", err)
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.out.Write(append(data, '\n')); err != nil {
		s.logger.Error(ctx, "write response failed", "error", err)
	}
}

func (s *Server) handle(ctx context.Context, req *JSONRPCRequest) *JSONRPCResponse {
	resp := &JSONRPCResponse{JSONRPC: "2.0", ID: req.ID}

	switch req.Method {
	case "initialize":
		resp.Result = map[string]any{
			"protocolVersion": "2024-11-05",
			"serverInfo":      map[string]any{"name": "aidis", "version": "2.0"},
			"capabilities": map[string]any{
				"tools":     map[string]any{},
				"resources": map[string]any{},
			},
		}

	case "tools/list":
		resp.Result = map[string]any{"tools": s.listTools()}

	case "tools/call":
		s.handleToolCall(ctx, req, resp)

	case "resources/list":
		resp.Result = map[string]any{"resources": []Resource{{
			URI:         StatusResource,
			Name:        "Daemon status",
			Description: "Live daemon status: health, uptime, tool count.",
			MimeType:    "application/json",
		}}}

	case "resources/read":
		s.handleResourceRead(ctx, req, resp)

	case "notifications/initialized", "initialized":
		// Notification, no response.
		return nil

	default:
		resp.Error = &JSONRPCError{
			Code:    CodeMethodNotFound,
			Message: fmt.Sprintf("method %q not supported", req.Method),
		}
	}
	return resp
}

func (s *Server) listTools() []Tool {
	defs := s.exec.Registry().List()
	tools := make([]Tool, 0, len(defs))
	for _, def := range defs {
		tools = append(tools, Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema,
		})
	}
	return tools
}

func (s *Server) handleToolCall(ctx context.Context, req *JSONRPCRequest, resp *JSONRPCResponse) {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		resp.Error = &JSONRPCError{Code: CodeInvalidParams, Message: "invalid tools/call params: " + err.Error()}
		return
	}
	if params.Name == "" {
		resp.Error = &JSONRPCError{Code: CodeInvalidParams, Message: "tool name is required"}
		return
	}

	correlationID := uuid.NewString()
	result, err := s.exec.Execute(ctx, params.Name, params.Arguments, correlationID, "stdio")
	if err != nil {
		resp.Error = toolError(err, correlationID)
		return
	}
	resp.Result = toolResult(result)
}

func (s *Server) handleResourceRead(ctx context.Context, req *JSONRPCRequest, resp *JSONRPCResponse) {
	var params ReadResourceParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		resp.Error = &JSONRPCError{Code: CodeInvalidParams, Message: "invalid resources/read params: " + err.Error()}
		return
	}
	if params.URI != StatusResource {
		resp.Error = &JSONRPCError{Code: CodeInvalidParams, Message: fmt.Sprintf("unknown resource %q", params.URI)}
		return
	}

	var status any = map[string]any{"status": "running"}
	if s.Status != nil {
		status = s.Status(ctx)
	}
	text, err := json.Marshal(status)
	if err != nil {
		resp.Error = &JSONRPCError{Code: CodeInternalError, Message: "marshal status: " + err.Error()}
		return
	}
	resp.Result = map[string]any{"contents": []ResourceContent{{
		URI:      StatusResource,
		MimeType: "application/json",
		Text:     string(text),
	}}}
}

// toolResult renders the executor envelope in MCP shape.
func toolResult(result *registry.Result) map[string]any {
	content := make([]map[string]any, 0, len(result.Content))
	for _, block := range result.Content {
		content = append(content, map[string]any{"type": block.Type, "text": block.Text})
	}
	out := map[string]any{"content": content}
	if result.Structured != nil {
		out["structuredContent"] = result.Structured
	}
	return out
}

// toolError maps a typed handler error onto JSON-RPC: InvalidParams gets
// its own code, everything else surfaces as an internal error with the
// kind in the message.
func toolError(err error, correlationID string) *JSONRPCError {
	kind := errs.KindOf(err)
	code := CodeInternalError
	if kind == errs.KindInvalidParams {
		code = CodeInvalidParams
	}
	return &JSONRPCError{
		Code:    code,
		Message: fmt.Sprintf("[%s] %v", kind, err),
		Data:    map[string]any{"correlationId": correlationID, "type": string(kind)},
	}
}
