package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseArguments(t *testing.T) {
	args, err := ParseArguments(`{"path":"main.go","recursive":true,"limit":3}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if args["path"] != "main.go" {
		t.Errorf("expected path main.go, got %v", args["path"])
	}
	if args["recursive"] != true {
		t.Errorf("expected recursive true, got %v", args["recursive"])
	}

	if _, err = ParseArguments(`{"path":`); err == nil {
		t.Error("expected error on malformed JSON")
	}
}

func TestCastAny(t *testing.T) {
	type payload struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}

	in := map[string]any{"path": "a.txt", "content": "hello"}
	out, err := CastAny[payload](in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Path != "a.txt" || out.Content != "hello" {
		t.Errorf("unexpected result: %+v", out)
	}

	if _, err = CastAny[payload]("not an object"); err == nil {
		t.Error("expected error when casting incompatible value")
	}
}

func TestBuildTree(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "main.go"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sub", "util.go"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := BuildTree(dir, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"main.go", "sub", "util.go"} {
		if !strings.Contains(out, want) {
			t.Errorf("tree missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, ".git") {
		t.Errorf("tree should skip .git:\n%s", out)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 100); got != "short" {
		t.Errorf("unexpected: %q", got)
	}
	got := Truncate(strings.Repeat("a", 50), 10)
	if !strings.HasPrefix(got, strings.Repeat("a", 10)) || !strings.Contains(got, "truncated") {
		t.Errorf("unexpected: %q", got)
	}
}
