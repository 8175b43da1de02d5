package restclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRestClientMethods(t *testing.T) {
	var gotMethod, gotPath, gotAuth string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewRestClient(server.URL, map[string]string{"Authorization": "Bearer test"})
	ctx := context.Background()

	body, status, err := client.Get(ctx, "/v1/models", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != http.StatusOK || gotMethod != http.MethodGet || gotPath != "/v1/models" {
		t.Errorf("unexpected GET result: %d %s %s", status, gotMethod, gotPath)
	}
	if gotAuth != "Bearer test" {
		t.Errorf("default header not applied: %q", gotAuth)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("unexpected body: %s", body)
	}

	payload := map[string]any{"model": "test-model"}
	_, status, err = client.Post(ctx, "/v1/chat/completions", payload, map[string]string{"Authorization": "Bearer override"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != http.StatusOK || gotMethod != http.MethodPost {
		t.Errorf("unexpected POST result: %d %s", status, gotMethod)
	}
	if gotAuth != "Bearer override" {
		t.Errorf("per-call header should win: %q", gotAuth)
	}
	var decoded map[string]any
	if err = json.Unmarshal(gotBody, &decoded); err != nil || decoded["model"] != "test-model" {
		t.Errorf("unexpected request body: %s (%v)", gotBody, err)
	}

	if _, _, err = client.Put(ctx, "/v1/thing", payload, nil); err != nil || gotMethod != http.MethodPut {
		t.Errorf("unexpected PUT result: %s %v", gotMethod, err)
	}
	if _, _, err = client.Delete(ctx, "/v1/thing", nil); err != nil || gotMethod != http.MethodDelete {
		t.Errorf("unexpected DELETE result: %s %v", gotMethod, err)
	}
}

func TestRestClientContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewRestClient(server.URL, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := client.Get(ctx, "/slow", nil); err == nil {
		t.Error("expected error from cancelled context")
	}
}
