package runtime

import (
	"context"
	"log"

	"GoTaskAgent/app/storage"
)

const (
	NewTask    = "new_task"
	CancelTask = "cancel_task"
)

type Event struct {
	Task        *storage.Task
	HandlerFunc func(r *Runtime, ev Event) string
}

var EventsHandlerFuncDefault = map[string]func(r *Runtime, ev Event) string{
	NewTask: func(r *Runtime, ev Event) string {
		if ev.Task == nil {
			return "No new task detected to start."
		}

		// Every task gets its own context so loops run independently.
		ctx, cancel := context.WithCancel(context.Background())
		r.track(ev.Task.ID, cancel)

		if err := r.db.SaveTask(ctx, *ev.Task); err != nil {
			log.Printf("⚠️ Error saving task %s: %v", ev.Task.ID, err)
		}
		go r.runTask(ctx, ev.Task)

		return NewTask
	},

	CancelTask: func(r *Runtime, ev Event) string {
		if ev.Task != nil {
			if r.CancelTaskByID(ev.Task.ID) {
				log.Printf("🛑 Canceling task %s.", ev.Task.ID)
			} else {
				log.Printf("⚠️ No running task %s to cancel.", ev.Task.ID)
			}
			return CancelTask
		}

		if n := r.StopRuntime(); n > 0 {
			log.Printf("🛑 Canceling %d running tasks.", n)
		} else {
			log.Println("⚠️ No running tasks to cancel.")
		}
		return CancelTask
	},
}
