package models

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"

	"GoTaskAgent/app/configs"
	"GoTaskAgent/app/errs"
	"GoTaskAgent/app/restclient"
)

func chatResponse(t *testing.T, message map[string]any) []byte {
	t.Helper()
	payload := map[string]any{
		"choices": []any{
			map[string]any{"index": 0, "finish_reason": "stop", "message": message},
		},
	}
	b, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func newTestClient(rest restclient.Interface) *LLMClient {
	return NewLLMClient(rest, configs.LLM{Model: "test-model", MaxRetries: 3})
}

func TestDecideToolCall(t *testing.T) {
	rest := new(restclient.MockRestClient)
	body := chatResponse(t, map[string]any{
		"role": "assistant",
		"tool_calls": []any{
			map[string]any{
				"id":   "call_1",
				"type": "function",
				"function": map[string]any{
					"name":      "file_read",
					"arguments": `{"path":"notes.txt"}`,
				},
			},
		},
	})
	rest.On("Post", mock.Anything, endpoint, mock.Anything, mock.Anything).Return(body, 200, nil).Once()

	d, err := newTestClient(rest).Decide(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.IsFinal() {
		t.Fatal("expected a tool call decision")
	}
	if d.ToolCall.ID != "call_1" || d.ToolCall.Name != "file_read" {
		t.Fatalf("unexpected call: %+v", d.ToolCall)
	}
	if d.ToolCall.Arguments["path"] != "notes.txt" {
		t.Fatalf("unexpected arguments: %v", d.ToolCall.Arguments)
	}
	if d.ToolCall.RawArguments != `{"path":"notes.txt"}` {
		t.Fatalf("raw arguments not preserved: %q", d.ToolCall.RawArguments)
	}
	rest.AssertExpectations(t)
}

func TestDecideFinalAnswer(t *testing.T) {
	rest := new(restclient.MockRestClient)
	body := chatResponse(t, map[string]any{"role": "assistant", "content": "all done"})
	rest.On("Post", mock.Anything, endpoint, mock.Anything, mock.Anything).Return(body, 200, nil).Once()

	d, err := newTestClient(rest).Decide(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.IsFinal() || d.FinalAnswer != "all done" {
		t.Fatalf("unexpected decision: %+v", d)
	}
}

func TestDecideUnparsableArgumentsFallsBack(t *testing.T) {
	rest := new(restclient.MockRestClient)
	body := chatResponse(t, map[string]any{
		"role":    "assistant",
		"content": "thinking out loud",
		"tool_calls": []any{
			map[string]any{
				"id":   "call_1",
				"type": "function",
				"function": map[string]any{
					"name":      "file_read",
					"arguments": `{"path": not json`,
				},
			},
		},
	})
	rest.On("Post", mock.Anything, endpoint, mock.Anything, mock.Anything).Return(body, 200, nil).Once()

	d, err := newTestClient(rest).Decide(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.IsFinal() || d.FinalAnswer != "thinking out loud" {
		t.Fatalf("expected final answer fallback, got %+v", d)
	}
}

func TestDecideMultipleToolCallsTakesFirst(t *testing.T) {
	rest := new(restclient.MockRestClient)
	body := chatResponse(t, map[string]any{
		"role": "assistant",
		"tool_calls": []any{
			map[string]any{
				"id": "call_1", "type": "function",
				"function": map[string]any{"name": "file_read", "arguments": `{"path":"a"}`},
			},
			map[string]any{
				"id": "call_2", "type": "function",
				"function": map[string]any{"name": "file_delete", "arguments": `{"path":"b"}`},
			},
		},
	})
	rest.On("Post", mock.Anything, endpoint, mock.Anything, mock.Anything).Return(body, 200, nil).Once()

	d, err := newTestClient(rest).Decide(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.ToolCall == nil || d.ToolCall.ID != "call_1" {
		t.Fatalf("expected first call only, got %+v", d)
	}
}

func TestDecideRetriesThenFails(t *testing.T) {
	rest := new(restclient.MockRestClient)
	rest.On("Post", mock.Anything, endpoint, mock.Anything, mock.Anything).
		Return([]byte(nil), 0, errors.New("connection refused")).Times(3)

	_, err := newTestClient(rest).Decide(context.Background(), nil, nil)
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if errs.KindOf(err) != errs.KindModel {
		t.Fatalf("expected model error, got %v", err)
	}
	rest.AssertNumberOfCalls(t, "Post", 3)
}

func TestDecideRetriesOnBadStatus(t *testing.T) {
	rest := new(restclient.MockRestClient)
	rest.On("Post", mock.Anything, endpoint, mock.Anything, mock.Anything).
		Return([]byte("overloaded"), 503, nil).Once()
	rest.On("Post", mock.Anything, endpoint, mock.Anything, mock.Anything).
		Return(chatResponse(t, map[string]any{"role": "assistant", "content": "ok"}), 200, nil).Once()

	d, err := newTestClient(rest).Decide(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.IsFinal() || d.FinalAnswer != "ok" {
		t.Fatalf("unexpected decision: %+v", d)
	}
	rest.AssertNumberOfCalls(t, "Post", 2)
}

func TestAssistantMessageRebuild(t *testing.T) {
	d := &Decision{ToolCall: &ToolCall{
		ID:           "call_9",
		Name:         "shell_exec",
		Arguments:    map[string]any{"command": "ls"},
		RawArguments: `{"command":"ls"}`,
	}}
	msg := AssistantMessage(d)
	if msg.Role != "assistant" || len(msg.ToolCalls) != 1 {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.ToolCalls[0].ID != "call_9" || msg.ToolCalls[0].Function.Arguments != `{"command":"ls"}` {
		t.Fatalf("unexpected tool call: %+v", msg.ToolCalls[0])
	}

	final := AssistantMessage(&Decision{FinalAnswer: "done"})
	if final.Content != "done" || len(final.ToolCalls) != 0 {
		t.Fatalf("unexpected final message: %+v", final)
	}

	toolMsg := ToolResultMessage("call_9", "output")
	if toolMsg.Role != "tool" || toolMsg.ToolCallID != "call_9" {
		t.Fatalf("unexpected tool message: %+v", toolMsg)
	}
}

func TestEmbedTextCaches(t *testing.T) {
	rest := new(restclient.MockRestClient)
	body, _ := json.Marshal(map[string]any{
		"data": []any{map[string]any{"embedding": []float32{0.1, 0.2}, "index": 0}},
	})
	rest.On("Post", mock.Anything, embeddingEndpoint, mock.Anything, mock.Anything).Return(body, 200, nil).Once()

	mc := NewLLMClient(rest, configs.LLM{Model: "m", EmbeddingsModel: "emb", MaxRetries: 3})
	first, err := mc.EmbedText(context.Background(), "hello")
	if err != nil || len(first) != 2 {
		t.Fatalf("unexpected: %v %v", first, err)
	}
	second, err := mc.EmbedText(context.Background(), "hello")
	if err != nil || len(second) != 2 {
		t.Fatalf("unexpected: %v %v", second, err)
	}
	rest.AssertNumberOfCalls(t, "Post", 1)
}
