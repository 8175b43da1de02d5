package tools

import (
	"context"
	"errors"
	"testing"

	"GoTaskAgent/app/configs"
	"GoTaskAgent/app/errs"
	"GoTaskAgent/app/security"
)

func spyTool(name string, calls *int, out string, err error) Tool {
	return Tool{
		Name:        name,
		Description: "test tool",
		Parameters: Parameter{
			Type: "object",
			Properties: map[string]any{
				"path":  map[string]any{"type": "string"},
				"count": map[string]any{"type": "integer"},
			},
			Required: []string{"path"},
		},
		HandlerFunc: func(context.Context, ToolTask) (string, error) {
			*calls++
			return out, err
		},
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	r := NewRegistry(nil)
	res := r.Execute(context.Background(), "no_such_tool", nil)
	if res.Success {
		t.Fatal("expected failure for unknown tool")
	}
	if res.Err == nil || res.Err.Kind != errs.KindValidation {
		t.Fatalf("expected validation error, got %+v", res.Err)
	}
}

func TestExecuteSchemaValidation(t *testing.T) {
	r := NewRegistry(nil)
	calls := 0
	if err := r.Register(spyTool("spy", &calls, "ok", nil)); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		params map[string]any
		wantOK bool
	}{
		{"valid", map[string]any{"path": "a.txt"}, true},
		{"missing required", map[string]any{}, false},
		{"wrong type", map[string]any{"path": 42}, false},
		{"integral float for integer", map[string]any{"path": "a", "count": float64(3)}, true},
		{"fractional float for integer", map[string]any{"path": "a", "count": 3.5}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			before := calls
			res := r.Execute(context.Background(), "spy", tc.params)
			if res.Success != tc.wantOK {
				t.Fatalf("success=%v, want %v (err=%v)", res.Success, tc.wantOK, res.Err)
			}
			if !tc.wantOK {
				if res.Err == nil || res.Err.Kind != errs.KindValidation {
					t.Fatalf("expected validation error, got %+v", res.Err)
				}
				if calls != before {
					t.Fatal("handler must not run on validation failure")
				}
			}
		})
	}
}

func TestExecuteWrapsHandlerErrors(t *testing.T) {
	r := NewRegistry(nil)
	calls := 0

	if err := r.Register(spyTool("plain", &calls, "", errors.New("boom"))); err != nil {
		t.Fatal(err)
	}
	res := r.Execute(context.Background(), "plain", map[string]any{"path": "x"})
	if res.Err == nil || res.Err.Kind != errs.KindTool {
		t.Fatalf("expected tool execution error, got %+v", res.Err)
	}

	classified := errs.New(errs.KindTimeout, "too slow")
	if err := r.Register(spyTool("classified", &calls, "", classified)); err != nil {
		t.Fatal(err)
	}
	res = r.Execute(context.Background(), "classified", map[string]any{"path": "x"})
	if res.Err == nil || res.Err.Kind != errs.KindTimeout {
		t.Fatalf("classified error must pass through, got %+v", res.Err)
	}
	if res.Duration < 0 {
		t.Fatal("duration must be captured")
	}
}

func TestExecuteSecurityDenial(t *testing.T) {
	guard := security.NewValidator(configs.Security{
		AllowedCommands: []string{"ls"},
		MaxArgLength:    10000,
	})
	r := NewRegistry(guard)
	calls := 0
	tool := spyTool("shell_exec_spy", &calls, "ok", nil)
	tool.Parameters.Properties["command"] = map[string]any{"type": "string"}
	tool.Parameters.Required = []string{"command"}
	if err := r.Register(tool); err != nil {
		t.Fatal(err)
	}

	res := r.Execute(context.Background(), "shell_exec_spy", map[string]any{"command": "rm -rf /"})
	if res.Success {
		t.Fatal("expected denial")
	}
	if res.Err == nil || res.Err.Kind != errs.KindSecurity {
		t.Fatalf("expected security denial, got %+v", res.Err)
	}
	if calls != 0 {
		t.Fatal("handler must not run on denial")
	}
}

func TestSchemasSorted(t *testing.T) {
	r := NewRegistry(nil)
	calls := 0
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := r.Register(spyTool(name, &calls, "", nil)); err != nil {
			t.Fatal(err)
		}
	}

	first := r.Schemas()
	second := r.Schemas()
	want := []string{"alpha", "mid", "zeta"}
	for i, tool := range first {
		if tool.Name != want[i] {
			t.Fatalf("schemas not sorted: got %s at %d", tool.Name, i)
		}
		if second[i].Name != tool.Name {
			t.Fatal("schemas not stable between calls")
		}
	}
}

func TestRegisterOverride(t *testing.T) {
	r := NewRegistry(nil)
	a, b := 0, 0
	if err := r.Register(spyTool("dup", &a, "first", nil)); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(spyTool("dup", &b, "second", nil)); err != nil {
		t.Fatal(err)
	}
	res := r.Execute(context.Background(), "dup", map[string]any{"path": "x"})
	if res.Output != "second" || a != 0 || b != 1 {
		t.Fatalf("override did not replace handler: %+v (a=%d b=%d)", res, a, b)
	}

	if err := r.Register(Tool{Name: ""}); err == nil {
		t.Fatal("empty name must be rejected")
	}
}
