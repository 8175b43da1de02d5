package tools

import (
	"context"
	"errors"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"GoTaskAgent/app/errs"
	"GoTaskAgent/app/security"
)

type Result struct {
	Success  bool
	Output   string
	Err      *errs.Error
	Duration time.Duration
}

type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	guard *security.Validator
}

func NewRegistry(guard *security.Validator) *Registry {
	return &Registry{
		tools: make(map[string]Tool),
		guard: guard,
	}
}

func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tool.Name == "" {
		return errors.New("tool name cannot be empty")
	}
	if tool.HandlerFunc == nil {
		return errors.New("tool " + tool.Name + " has no handler")
	}
	if _, exists := r.tools[tool.Name]; exists {
		log.Printf("⚠️ Tool %s already registered, overwriting\n", tool.Name)
	}
	r.tools[tool.Name] = tool
	return nil
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

func (r *Registry) All() map[string]Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]Tool, len(r.tools))
	for k, v := range r.tools {
		result[k] = v
	}
	return result
}

// Schemas returns the registered tools sorted by name, so the payload
// sent to the model is stable between calls.
func (r *Registry) Schemas() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Execute runs one tool call end to end: lookup, schema validation,
// security check, handler. Every path fills Duration.
func (r *Registry) Execute(ctx context.Context, name string, params map[string]any) Result {
	start := time.Now()
	done := func(output string, err *errs.Error) Result {
		return Result{
			Success:  err == nil,
			Output:   output,
			Err:      err,
			Duration: time.Since(start),
		}
	}

	tool, ok := r.Get(name)
	if !ok {
		log.Printf("❌ Unknown tool: %s\n", name)
		return done("", errs.New(errs.KindValidation, "unknown tool %q", name))
	}

	if err := validateParams(tool.Parameters, params); err != nil {
		return done("", err)
	}

	if r.guard != nil {
		if err := r.guard.ValidateToolCall(name, params); err != nil {
			log.Printf("🚫 Tool %s denied: %v\n", name, err)
			return done("", asErr(err, errs.KindSecurity))
		}
	}

	output, err := tool.HandlerFunc(ctx, ToolTask{Key: name, Parameters: params})
	if err != nil {
		log.Printf("❌ Tool %s failed: %v\n", name, err)
		return done(output, asErr(err, errs.KindTool))
	}
	return done(output, nil)
}

// asErr keeps an already classified error as is and wraps anything else
// with the fallback kind. Context deadline errors become timeouts.
func asErr(err error, fallback errs.Kind) *errs.Error {
	var e *errs.Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errs.Wrap(errs.KindTimeout, err, "tool execution timed out")
	}
	return errs.Wrap(fallback, err, "tool execution failed")
}

func validateParams(schema Parameter, params map[string]any) *errs.Error {
	for _, req := range schema.Required {
		if _, ok := params[req]; !ok {
			return errs.New(errs.KindValidation, "missing required parameter %q", req)
		}
	}
	for key, value := range params {
		prop, ok := schema.Properties[key].(map[string]any)
		if !ok {
			continue
		}
		declared, _ := prop["type"].(string)
		if declared == "" {
			continue
		}
		if !matchesType(declared, value) {
			return errs.New(errs.KindValidation, "parameter %q is not of type %s", key, declared)
		}
	}
	return nil
}

func matchesType(declared string, value any) bool {
	switch declared {
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "integer":
		switch v := value.(type) {
		case int, int32, int64:
			return true
		case float64:
			return v == math.Trunc(v)
		}
		return false
	case "number":
		switch value.(type) {
		case int, int32, int64, float32, float64:
			return true
		}
		return false
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	}
	return true
}
