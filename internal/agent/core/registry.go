package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strconv"
	"time"
)

// ArgType enumerates the argument types a tool schema may declare.
type ArgType string

const (
	ArgString ArgType = "string"
	ArgInt    ArgType = "integer"
	ArgFloat  ArgType = "number"
	ArgBool   ArgType = "boolean"
)

// ArgSpec declares one argument of a tool schema.
type ArgSpec struct {
	Type        ArgType
	Description string
	Required    bool
	Default     any
}

// ToolSpec is the declared surface of a tool: name, description and
// argument schema. It is what gets advertised to the model.
type ToolSpec struct {
	Name        string
	Description string
	Args        map[string]ArgSpec
}

// ToolFunc executes a tool with validated arguments.
type ToolFunc func(ctx context.Context, args map[string]any) (any, error)

// Tool couples a spec with its implementation. When Acknowledgement is
// non-empty, a successful result is replaced by that fixed string before
// being folded into the conversation; the tool's side effects persist.
type Tool struct {
	ToolSpec
	Run             ToolFunc
	Acknowledgement string
}

// Registry is a closed name->tool mapping, validated at startup and
// read-only afterwards.
type Registry struct {
	tools         map[string]Tool
	logger        *log.Logger
	timeout       time.Duration
	truncate      bool
	truncateLimit int
}

// RegistryOptions configure result handling for all tools in a registry.
type RegistryOptions struct {
	ToolTimeout   time.Duration
	Truncate      bool
	TruncateLimit int
}

func NewRegistry(logger *log.Logger, opts RegistryOptions) *Registry {
	if opts.TruncateLimit <= 0 {
		opts.TruncateLimit = 1500
	}
	return &Registry{
		tools:         map[string]Tool{},
		logger:        logger,
		timeout:       opts.ToolTimeout,
		truncate:      opts.Truncate,
		truncateLimit: opts.TruncateLimit,
	}
}

// Register adds a tool. It fails on duplicate names or an invalid spec so
// that misconfiguration surfaces at startup, not at call time.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("tool registration: empty name")
	}
	if t.Run == nil {
		return fmt.Errorf("tool registration: %s has no implementation", t.Name)
	}
	if _, dup := r.tools[t.Name]; dup {
		return fmt.Errorf("tool registration: duplicate name %s", t.Name)
	}
	for arg, spec := range t.Args {
		switch spec.Type {
		case ArgString, ArgInt, ArgFloat, ArgBool:
		default:
			return fmt.Errorf("tool registration: %s arg %s has unknown type %q", t.Name, arg, spec.Type)
		}
	}
	r.tools[t.Name] = t
	return nil
}

// Specs returns the declared tool surfaces in name order.
func (r *Registry) Specs() []ToolSpec {
	out := make([]ToolSpec, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.ToolSpec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// Invoke executes one resolved tool call and always produces exactly one
// tool-result message: errors become error-flagged results, never panics or
// propagated failures.
func (r *Registry) Invoke(ctx context.Context, call ToolCall) Message {
	callID := call.CallID
	if callID == "" {
		callID = fallbackCallID()
		r.logger.Printf("tool call missing id, assigned %s", callID)
	}
	if call.Name == "" {
		return ToolResultMessage(callID, "Error: Tool call missing name.", true)
	}
	tool, ok := r.tools[call.Name]
	if !ok {
		return ToolResultMessage(callID, fmt.Sprintf("Error: Tool '%s' not found.", call.Name), true)
	}

	args, err := r.validateArgs(tool.ToolSpec, call.Arguments)
	if err != nil {
		return ToolResultMessage(callID, fmt.Sprintf("Error: Invalid arguments for tool '%s': %v", call.Name, err), true)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	result, err := runRecovered(ctx, tool.Run, args)
	if err != nil {
		return ToolResultMessage(callID, fmt.Sprintf("Error executing tool '%s': %v", call.Name, err), true)
	}

	content := serializeResult(result)
	if tool.Acknowledgement != "" {
		content = tool.Acknowledgement
	} else if r.truncate && len(content) > r.truncateLimit {
		content = fmt.Sprintf("%s... [truncated for efficiency; original length %d chars]",
			content[:r.truncateLimit], len(content))
	}
	return ToolResultMessage(callID, content, false)
}

// runRecovered converts a panicking tool into an ordinary error.
func runRecovered(ctx context.Context, fn ToolFunc, args map[string]any) (result any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn(ctx, args)
}

// validateArgs parses the raw JSON arguments and coerces them against the
// declared schema. Empty argument strings count as an empty object.
func (r *Registry) validateArgs(spec ToolSpec, raw string) (map[string]any, error) {
	args := map[string]any{}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return nil, fmt.Errorf("arguments are not valid JSON: %w", err)
		}
	}
	for name, as := range spec.Args {
		v, present := args[name]
		if !present {
			if as.Default != nil {
				args[name] = as.Default
				continue
			}
			if as.Required {
				return nil, fmt.Errorf("missing required argument %q", name)
			}
			continue
		}
		coerced, err := coerce(v, as.Type)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", name, err)
		}
		args[name] = coerced
	}
	return args, nil
}

func coerce(v any, t ArgType) (any, error) {
	switch t {
	case ArgString:
		switch s := v.(type) {
		case string:
			return s, nil
		default:
			return fmt.Sprintf("%v", v), nil
		}
	case ArgInt:
		switch n := v.(type) {
		case float64:
			return int(n), nil
		case int:
			return n, nil
		case string:
			i, err := strconv.Atoi(n)
			if err != nil {
				return nil, fmt.Errorf("expected integer, got %q", n)
			}
			return i, nil
		default:
			return nil, fmt.Errorf("expected integer, got %T", v)
		}
	case ArgFloat:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		case string:
			f, err := strconv.ParseFloat(n, 64)
			if err != nil {
				return nil, fmt.Errorf("expected number, got %q", n)
			}
			return f, nil
		default:
			return nil, fmt.Errorf("expected number, got %T", v)
		}
	case ArgBool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			parsed, err := strconv.ParseBool(b)
			if err != nil {
				return nil, fmt.Errorf("expected boolean, got %q", b)
			}
			return parsed, nil
		default:
			return nil, fmt.Errorf("expected boolean, got %T", v)
		}
	}
	return v, nil
}
