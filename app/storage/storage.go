package storage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusTimedOut  = "timed_out"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

type Task struct {
	ID           string    `json:"id" db:"id"`
	Instruction  string    `json:"instruction" db:"instruction"`
	Status       string    `json:"status" db:"status"`
	Iterations   int       `json:"iterations" db:"iterations"`
	FinalResult  string    `json:"final_result" db:"final_result"`
	FailureCause string    `json:"failure_cause" db:"failure_cause"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Turn is one conversation exchange unit. Turns are append-only: the
// store assigns Seq and no update or delete path exists.
type Turn struct {
	Seq        int64     `json:"seq" db:"seq"`
	TaskID     string    `json:"task_id" db:"task_id"`
	Role       string    `json:"role" db:"role"`
	Content    string    `json:"content" db:"content"`
	Tool       string    `json:"tool" db:"tool"`
	CallID     string    `json:"call_id" db:"call_id"`
	Parameters string    `json:"parameters" db:"parameters"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

func NewTask(instruction string) Task {
	now := time.Now()
	return Task{
		ID:          uuid.NewString(),
		Instruction: instruction,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (t Task) Terminal() bool {
	switch t.Status {
	case StatusSucceeded, StatusFailed, StatusTimedOut:
		return true
	}
	return false
}

func HistoryToString(turns []Turn, limit int) string {
	sliced := turns
	if limit > 0 && len(turns) > limit {
		sliced = turns[len(turns)-limit:]
	}
	var summary string
	for _, turn := range sliced {
		summary += fmt.Sprintf("\nRole: %s | Content: %s | Tool: %s | Seq: %d",
			turn.Role, turn.Content, turn.Tool, turn.Seq)
	}
	return summary
}
