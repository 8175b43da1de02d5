package runtime

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"GoTaskAgent/app/configs"
	"GoTaskAgent/app/errs"
	"GoTaskAgent/app/models"
	"GoTaskAgent/app/storage"
	"GoTaskAgent/app/tools"
	"GoTaskAgent/app/utils"
)

// Notifier is told when a task reaches a terminal status. Connectors
// register one to push the outcome back to wherever the task came from.
type Notifier interface {
	TaskFinished(task *storage.Task)
}

// maxObservationChars caps how much tool output is stored per turn so
// one oversized listing cannot blow up the model context.
const maxObservationChars = 8000

type Runtime struct {
	mu        sync.Mutex
	model     models.Interface
	registry  *tools.Registry
	db        storage.Interface
	cfg       configs.Agent
	events    chan Event
	running   map[string]context.CancelFunc
	metrics   *Metrics
	audit     *AuditLogger
	notifiers []Notifier
}

func NewRuntime(model models.Interface, registry *tools.Registry, db storage.Interface, cfg configs.Agent) *Runtime {
	return &Runtime{
		model:    model,
		registry: registry,
		db:       db,
		cfg:      cfg,
		events:   make(chan Event, 100),
		running:  make(map[string]context.CancelFunc),
		metrics:  NewMetrics(),
		audit:    NewAuditLogger(1000),
	}
}

func (r *Runtime) Registry() *tools.Registry { return r.registry }

func (r *Runtime) Store() storage.Interface { return r.db }

func (r *Runtime) Metrics() Snapshot { return r.metrics.Snapshot() }

func (r *Runtime) LastAudit(n int) []string { return r.audit.GetLastLogs(n) }

// RunningTasks lists the IDs of tasks that have not reached a terminal
// status yet, sorted for stable output.
func (r *Runtime) RunningTasks() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.running))
	for id := range r.running {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Runtime) AddNotifier(n Notifier) {
	r.mu.Lock()
	r.notifiers = append(r.notifiers, n)
	r.mu.Unlock()
}

func (r *Runtime) Start() {
	for {
		select {
		case ev := <-r.events:
			r.handleEvent(ev)
		default:
			time.Sleep(1 * time.Second)
		}
	}
}

func (r *Runtime) QueueEvent(event Event) {
	select {
	case r.events <- event:
	default:
		log.Print("⚠️ Event queue is full, dropping event")
	}
}

func (r *Runtime) handleEvent(ev Event) {
	log.Printf("🆕 New Event received: %s Task: %v\n", ev.HandlerFunc(r, ev), ev.Task)
}

// track registers the cancel func of a task about to start. Each task
// loop owns its own context; canceling one never touches another.
func (r *Runtime) track(taskID string, cancel context.CancelFunc) {
	r.mu.Lock()
	r.running[taskID] = cancel
	r.mu.Unlock()
}

// CancelTaskByID stops the loop of one running task. Reports whether a
// task with that ID was running.
func (r *Runtime) CancelTaskByID(taskID string) bool {
	r.mu.Lock()
	cancel, ok := r.running[taskID]
	delete(r.running, taskID)
	r.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// StopRuntime cancels every running task and returns how many were
// canceled.
func (r *Runtime) StopRuntime() int {
	r.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(r.running))
	for id, cancel := range r.running {
		cancels = append(cancels, cancel)
		delete(r.running, id)
	}
	r.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
	return len(cancels)
}

// runTask drives one task through the agent loop until it reaches a
// terminal status.
func (r *Runtime) runTask(ctx context.Context, task *storage.Task) {
	r.metrics.TasksStarted.Add(1)

	task.Status = storage.StatusRunning
	if err := r.db.UpdateTask(ctx, *task); err != nil {
		log.Printf("⚠️ Error updating task %s: %v", task.ID, err)
	}
	r.appendTurn(ctx, storage.Turn{
		TaskID:  task.ID,
		Role:    storage.RoleUser,
		Content: task.Instruction,
	})
	r.audit.Printf("▶️ Task %s started: %s", task.ID, task.Instruction)

	for i := 1; i <= r.cfg.MaxIterations; i++ {
		if ctx.Err() != nil {
			r.finish(task, storage.StatusFailed, "", "task canceled")
			return
		}
		task.Iterations = i
		if err := r.db.UpdateTask(ctx, *task); err != nil {
			log.Printf("⚠️ Error updating task %s: %v", task.ID, err)
		}

		messages, err := r.buildContext(ctx, task)
		if err != nil {
			r.finish(task, storage.StatusFailed, "", fmt.Sprintf("history load failed: %v", err))
			return
		}

		iterCtx, cancel := context.WithTimeout(ctx, r.cfg.IterationTimeout())
		decision, err := r.model.Decide(iterCtx, messages, r.registry.Schemas())
		r.metrics.ModelCalls.Add(1)
		if err != nil {
			cancel()
			if ctx.Err() != nil {
				r.finish(task, storage.StatusFailed, "", "task canceled")
				return
			}
			r.finish(task, storage.StatusFailed, "", fmt.Sprintf("model error: %v", err))
			return
		}

		if decision.IsFinal() {
			cancel()
			r.appendTurn(ctx, storage.Turn{
				TaskID:  task.ID,
				Role:    storage.RoleAssistant,
				Content: decision.FinalAnswer,
			})
			r.audit.Printf("🎉 Task %s completed after %d iterations", task.ID, i)
			r.finish(task, storage.StatusSucceeded, decision.FinalAnswer, "")
			return
		}

		call := decision.ToolCall
		r.appendTurn(ctx, storage.Turn{
			TaskID:     task.ID,
			Role:       storage.RoleAssistant,
			Tool:       call.Name,
			CallID:     call.ID,
			Parameters: call.RawArguments,
		})
		r.audit.Printf("▶️ Iteration %d: tool %s %s", i, call.Name, call.RawArguments)

		result := r.registry.Execute(iterCtx, call.Name, call.Arguments)
		cancel()
		r.metrics.ToolCalls.Add(1)

		if result.Err == nil {
			r.appendTurn(ctx, storage.Turn{
				TaskID:  task.ID,
				Role:    storage.RoleTool,
				Tool:    call.Name,
				CallID:  call.ID,
				Content: utils.Truncate(result.Output, maxObservationChars),
			})
			continue
		}

		if result.Err.Kind == errs.KindSecurity {
			r.metrics.ToolDenials.Add(1)
		}

		// The error goes back to the model as an observation; only
		// unrecoverable kinds end the task, and even then the turn is
		// recorded first so the history shows what happened.
		r.appendTurn(ctx, storage.Turn{
			TaskID:  task.ID,
			Role:    storage.RoleTool,
			Tool:    call.Name,
			CallID:  call.ID,
			Content: utils.Truncate("Error: "+result.Err.Error(), maxObservationChars),
		})
		r.audit.Printf("⚠️ Iteration %d: tool %s failed: %v", i, call.Name, result.Err)

		if errs.Recoverable(result.Err) {
			continue
		}
		if ctx.Err() != nil {
			r.finish(task, storage.StatusFailed, "", "task canceled")
			return
		}
		r.finish(task, storage.StatusFailed, "", fmt.Sprintf("tool %s: %v", call.Name, result.Err))
		return
	}

	r.audit.Printf("🚧 Task %s hit the iteration cap (%d)", task.ID, r.cfg.MaxIterations)
	r.finish(task, storage.StatusTimedOut, "", fmt.Sprintf("iteration cap (%d) reached", r.cfg.MaxIterations))
}

// buildContext maps the stored history into wire messages. Only the
// most recent turns fit; a truncation never starts on a tool result
// whose assistant turn was dropped.
func (r *Runtime) buildContext(ctx context.Context, task *storage.Task) ([]models.Message, error) {
	turns, err := r.db.GetHistoryByTaskID(ctx, task.ID)
	if err != nil {
		return nil, err
	}

	if limit := r.cfg.MaxContextTurns; limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
		for len(turns) > 0 && turns[0].Role == storage.RoleTool {
			turns = turns[1:]
		}
	}

	messages := make([]models.Message, 0, len(turns)+1)
	messages = append(messages, models.Message{Role: "system", Content: models.AgentSystemPrompt})
	for _, turn := range turns {
		switch turn.Role {
		case storage.RoleUser:
			messages = append(messages, models.Message{Role: "user", Content: turn.Content})
		case storage.RoleAssistant:
			if turn.Tool != "" {
				messages = append(messages, models.AssistantMessage(&models.Decision{ToolCall: &models.ToolCall{
					ID:           turn.CallID,
					Name:         turn.Tool,
					RawArguments: turn.Parameters,
				}}))
				continue
			}
			messages = append(messages, models.Message{Role: "assistant", Content: turn.Content})
		case storage.RoleTool:
			messages = append(messages, models.ToolResultMessage(turn.CallID, turn.Content))
		}
	}
	return messages, nil
}

func (r *Runtime) appendTurn(ctx context.Context, turn storage.Turn) {
	if _, err := r.db.AppendTurn(ctx, turn); err != nil {
		log.Printf("⚠️ Error saving turn for task %s: %v", turn.TaskID, err)
	}
}

func (r *Runtime) finish(task *storage.Task, status, result, cause string) {
	task.Status = status
	task.FinalResult = result
	task.FailureCause = cause
	task.UpdatedAt = time.Now()

	// The parent context may already be canceled; the final update
	// still has to land.
	if err := r.db.UpdateTask(context.Background(), *task); err != nil {
		log.Printf("⚠️ Error updating task %s: %v", task.ID, err)
	}

	switch status {
	case storage.StatusSucceeded:
		r.metrics.TasksSucceeded.Add(1)
		log.Printf("🎉 Task %s succeeded: %s", task.ID, result)
	case storage.StatusTimedOut:
		r.metrics.TasksTimedOut.Add(1)
		log.Printf("🚧 Task %s timed out: %s", task.ID, cause)
	default:
		r.metrics.TasksFailed.Add(1)
		log.Printf("❌ Task %s failed: %s", task.ID, cause)
	}

	r.mu.Lock()
	cancel := r.running[task.ID]
	delete(r.running, task.ID)
	notifiers := make([]Notifier, len(r.notifiers))
	copy(notifiers, r.notifiers)
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	for _, n := range notifiers {
		n.TaskFinished(task)
	}
}
