package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"tartunlp-mcp/internal/tools"
)

// ServerName is advertised to MCP clients during initialization.
const ServerName = "tartunlp-mcp-server"

const (
	jsonRPCVersion = "2.0"
	methodToolCall = "tools/call"

	codeInvalidParams = -32602

	maxMessageSize = 10 << 20
)

// NewMCPServer registers every catalogue tool on an MCP server. Tool calls are
// forwarded to the dispatcher, so validation and error mapping stay in one place.
func NewMCPServer(d *tools.Dispatcher, version string) (*mcpserver.MCPServer, error) {
	s := mcpserver.NewMCPServer(ServerName, version, mcpserver.WithToolCapabilities(false))
	for _, t := range d.Registry().List() {
		schema, err := json.Marshal(t.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("encode schema for %s: %w", t.Name, err)
		}
		name := t.Name
		s.AddTool(mcp.NewToolWithRawSchema(t.Name, t.Description, schema),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return toolResult(d.Dispatch(ctx, tools.Call{Name: name, Arguments: req.GetArguments()})), nil
			})
	}
	return s, nil
}

func toolResult(res tools.Result) *mcp.CallToolResult {
	if res.IsError() {
		return mcp.NewToolResultError(res.Message())
	}
	return mcp.NewToolResultText(res.Text())
}

// message is the part of a JSON-RPC envelope the stdio loop routes on.
type message struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// StdioServer speaks newline-delimited JSON-RPC over a reader/writer pair.
// tools/call requests run concurrently through the dispatcher, so every call,
// including one naming an unknown tool, gets a tool result. Everything else
// (initialize, tools/list, ping) is answered by the MCP server.
type StdioServer struct {
	mcp        *mcpserver.MCPServer
	dispatcher *tools.Dispatcher
	log        *slog.Logger

	mu  sync.Mutex
	out io.Writer
}

// NewStdioServer builds the MCP server for d and wraps it for stdio.
func NewStdioServer(d *tools.Dispatcher, version string, logger *slog.Logger) (*StdioServer, error) {
	s, err := NewMCPServer(d, version)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StdioServer{mcp: s, dispatcher: d, log: logger}, nil
}

// Serve reads messages from in until EOF or ctx is done. Outstanding tool calls
// are cancelled when that happens and their results are dropped.
func (s *StdioServer) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.out = out
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	lines := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 64*1024), maxMessageSize)
		for sc.Scan() {
			line := append([]byte(nil), sc.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			return nil
		case line := <-lines:
			s.handleLine(ctx, &wg, line)
		}
	}
}

func (s *StdioServer) handleLine(ctx context.Context, wg *sync.WaitGroup, line []byte) {
	if len(line) == 0 {
		return
	}
	var msg message
	if err := json.Unmarshal(line, &msg); err != nil || msg.Method != methodToolCall {
		// Parse errors are reported by the MCP server itself.
		if resp := s.mcp.HandleMessage(ctx, json.RawMessage(line)); resp != nil {
			s.write(resp)
		}
		return
	}
	if len(msg.ID) == 0 {
		return
	}

	var params struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.write(rpcResponse{
			JSONRPC: jsonRPCVersion,
			ID:      msg.ID,
			Error:   &rpcError{Code: codeInvalidParams, Message: "invalid tools/call params: " + err.Error()},
		})
		return
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		res := s.dispatcher.Dispatch(ctx, tools.Call{Name: params.Name, Arguments: params.Arguments})
		if ctx.Err() != nil {
			s.log.Debug("dropping result after transport closed", slog.String("tool", params.Name))
			return
		}
		s.write(rpcResponse{JSONRPC: jsonRPCVersion, ID: msg.ID, Result: toolResult(res)})
	}()
}

func (s *StdioServer) write(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.log.Error("encode response", slog.Any("error", err))
		return
	}
	b = append(b, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.out.Write(b); err != nil {
		s.log.Error("write response", slog.Any("error", err))
	}
}
