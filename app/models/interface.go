package models

import (
	"context"

	"GoTaskAgent/app/tools"
)

type Interface interface {
	Decide(context.Context, []Message, []tools.Tool) (*Decision, error)
	EmbedText(context.Context, string) ([]float32, error)
}

type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []toolCall `json:"tool_calls,omitempty"`
}

// Decision is the parsed outcome of one model turn: exactly one of
// ToolCall or FinalAnswer is set.
type Decision struct {
	ToolCall    *ToolCall
	FinalAnswer string
}

type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
	// RawArguments is the argument string exactly as the model sent it,
	// kept so the assistant turn can be replayed on the wire verbatim.
	RawArguments string
}

func (d *Decision) IsFinal() bool {
	return d != nil && d.ToolCall == nil
}

// AssistantMessage rebuilds the assistant turn for a decision. A tool
// decision carries exactly the one call that was executed, so replayed
// conversations stay consistent with the recorded history.
func AssistantMessage(d *Decision) Message {
	if d.IsFinal() {
		return Message{Role: "assistant", Content: d.FinalAnswer}
	}
	return Message{
		Role: "assistant",
		ToolCalls: []toolCall{{
			ID:   d.ToolCall.ID,
			Type: "function",
			Function: toolFunction{
				Name:      d.ToolCall.Name,
				Arguments: d.ToolCall.RawArguments,
			},
		}},
	}
}

func ToolResultMessage(callID, content string) Message {
	return Message{Role: "tool", Content: content, ToolCallID: callID}
}
