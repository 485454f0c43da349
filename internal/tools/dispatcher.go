package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Call is one decoded tool invocation.
type Call struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Handler executes a tool. The returned payload must be JSON serializable.
type Handler interface {
	Handle(ctx context.Context, args map[string]any) (any, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, args map[string]any) (any, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, args map[string]any) (any, error) {
	return f(ctx, args)
}

// Bind decodes the argument bag into T before calling fn, so handlers work on typed arguments.
func Bind[T any](fn func(ctx context.Context, args T) (any, error)) Handler {
	return HandlerFunc(func(ctx context.Context, raw map[string]any) (any, error) {
		var args T
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			TagName: "mapstructure",
			Result:  &args,
		})
		if err != nil {
			return nil, err
		}
		if err := dec.Decode(raw); err != nil {
			return nil, fmt.Errorf("invalid arguments: %w", err)
		}
		return fn(ctx, args)
	})
}

// UnknownTool is the name reported to observers for calls naming an unregistered tool.
const UnknownTool = "unknown"

// Observer receives one notification per dispatched call.
type Observer interface {
	ObserveCall(tool string, failed bool, elapsed time.Duration)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger used to report failed calls.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

// WithObserver attaches a call observer such as a metrics recorder.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observer = o }
}

// Dispatcher validates tool calls against the registry and routes them to handlers.
// It holds no mutable state and is safe for concurrent use.
type Dispatcher struct {
	registry *Registry
	handlers map[string]Handler
	log      *slog.Logger
	observer Observer
}

// NewDispatcher binds handlers to the registry. Every registered tool needs a handler
// and every handler needs a registered tool.
func NewDispatcher(reg *Registry, handlers map[string]Handler, opts ...Option) (*Dispatcher, error) {
	if reg == nil {
		return nil, fmt.Errorf("tools: registry is required")
	}
	bound := make(map[string]Handler, len(handlers))
	for _, t := range reg.List() {
		h, ok := handlers[t.Name]
		if !ok || h == nil {
			return nil, fmt.Errorf("tools: no handler for tool %q", t.Name)
		}
		bound[t.Name] = h
	}
	for name := range handlers {
		if _, ok := reg.Lookup(name); !ok {
			return nil, fmt.Errorf("tools: handler %q has no registered tool", name)
		}
	}
	d := &Dispatcher{registry: reg, handlers: bound, log: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Registry returns the catalogue the dispatcher serves.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Dispatch runs one call and always returns exactly one Result.
func (d *Dispatcher) Dispatch(ctx context.Context, call Call) Result {
	start := time.Now()
	res := d.dispatch(ctx, call)
	if res.IsError() {
		d.log.Error("tool call failed", slog.String("tool", call.Name), slog.String("error", res.Message()))
	}
	if d.observer != nil {
		name := call.Name
		if _, ok := d.registry.Lookup(name); !ok {
			name = UnknownTool
		}
		d.observer.ObserveCall(name, res.IsError(), time.Since(start))
	}
	return res
}

func (d *Dispatcher) dispatch(ctx context.Context, call Call) Result {
	tool, ok := d.registry.Lookup(call.Name)
	if !ok {
		return Failure("Unknown tool: " + call.Name)
	}
	args := call.Arguments
	if args == nil {
		args = map[string]any{}
	}
	if err := validate(tool.InputSchema, args); err != nil {
		return Failure(err.Error())
	}
	payload, err := invoke(ctx, d.handlers[call.Name], args)
	if err != nil {
		return Failure(err.Error())
	}
	text, err := encodePayload(payload)
	if err != nil {
		return Failure(fmt.Sprintf("encode result: %v", err))
	}
	return Success(text)
}

func invoke(ctx context.Context, h Handler, args map[string]any) (payload any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool panicked: %v", r)
		}
	}()
	return h.Handle(ctx, args)
}

// validate checks required fields in declaration order, then the types of present fields.
func validate(s Schema, args map[string]any) error {
	for _, f := range s.Fields {
		if f.Required && isMissing(args[f.Name]) {
			return fmt.Errorf("%s is required", f.Name)
		}
	}
	for _, f := range s.Fields {
		v, ok := args[f.Name]
		if !ok || v == nil {
			continue
		}
		if !hasType(v, f.Type) {
			return fmt.Errorf("%s must be of type %s", f.Name, f.Type)
		}
	}
	return nil
}

func isMissing(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	return false
}

func hasType(v any, typ string) bool {
	switch typ {
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeBoolean:
		_, ok := v.(bool)
		return ok
	case TypeNumber:
		switch v.(type) {
		case float64, float32, int, int64, int32, json.Number:
			return true
		}
		return false
	case TypeInteger:
		switch n := v.(type) {
		case int, int64, int32:
			return true
		case float64:
			return n == math.Trunc(n)
		case json.Number:
			_, err := n.Int64()
			return err == nil
		}
		return false
	default:
		return true
	}
}
