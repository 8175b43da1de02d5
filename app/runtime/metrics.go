package runtime

import "sync/atomic"

type Metrics struct {
	TasksStarted   atomic.Int64
	TasksSucceeded atomic.Int64
	TasksFailed    atomic.Int64
	TasksTimedOut  atomic.Int64
	ModelCalls     atomic.Int64
	ToolCalls      atomic.Int64
	ToolDenials    atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

type Snapshot struct {
	TasksStarted   int64 `json:"tasks_started"`
	TasksSucceeded int64 `json:"tasks_succeeded"`
	TasksFailed    int64 `json:"tasks_failed"`
	TasksTimedOut  int64 `json:"tasks_timed_out"`
	ModelCalls     int64 `json:"model_calls"`
	ToolCalls      int64 `json:"tool_calls"`
	ToolDenials    int64 `json:"tool_denials"`
}

func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		TasksStarted:   m.TasksStarted.Load(),
		TasksSucceeded: m.TasksSucceeded.Load(),
		TasksFailed:    m.TasksFailed.Load(),
		TasksTimedOut:  m.TasksTimedOut.Load(),
		ModelCalls:     m.ModelCalls.Load(),
		ToolCalls:      m.ToolCalls.Load(),
		ToolDenials:    m.ToolDenials.Load(),
	}
}
