package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const timeLayout = "2006-01-02 15:04:05.000"

type SQLiteStore struct {
	db *sql.DB
}

var _ Interface = &SQLiteStore{}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open SQLite DB at %s: %w", dbPath, err)
	}

	if _, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS tasks (
            id TEXT PRIMARY KEY,
            instruction TEXT NOT NULL,
            status TEXT NOT NULL,
            iterations INTEGER NOT NULL DEFAULT 0,
            final_result TEXT NOT NULL DEFAULT '',
            failure_cause TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMP NOT NULL,
            updated_at TIMESTAMP NOT NULL
        );
        CREATE TABLE IF NOT EXISTS turns (
            seq INTEGER NOT NULL,
            task_id TEXT NOT NULL,
            role TEXT NOT NULL,
            content TEXT NOT NULL,
            tool TEXT NULL,
            call_id TEXT NULL,
            parameters TEXT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            PRIMARY KEY (task_id, seq)
        );
        CREATE INDEX IF NOT EXISTS idx_turns_task_id ON turns (task_id);
    `); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveTask(ctx context.Context, task Task) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, instruction, status, iterations, final_result, failure_cause, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.Instruction, task.Status, task.Iterations, task.FinalResult, task.FailureCause,
		task.CreatedAt.Format(timeLayout), task.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		log.Printf("⚠️ Error saving task %s: %v", task.ID, err)
	}
	return err
}

func (s *SQLiteStore) UpdateTask(ctx context.Context, task Task) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, iterations = ?, final_result = ?, failure_cause = ?, updated_at = ?
		 WHERE id = ?`,
		task.Status, task.Iterations, task.FinalResult, task.FailureCause,
		time.Now().Format(timeLayout), task.ID,
	)
	if err != nil {
		log.Printf("⚠️ Error updating task %s: %v", task.ID, err)
	}
	return err
}

func (s *SQLiteStore) GetTask(ctx context.Context, taskID string) (*Task, error) {
	var task Task
	var createdAt, updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, instruction, status, iterations, final_result, failure_cause, created_at, updated_at
		 FROM tasks WHERE id = ?`, taskID,
	).Scan(&task.ID, &task.Instruction, &task.Status, &task.Iterations,
		&task.FinalResult, &task.FailureCause, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task %s not found", taskID)
	}
	if err != nil {
		return nil, err
	}
	task.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	task.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return &task, nil
}

func (s *SQLiteStore) AppendTurn(ctx context.Context, turn Turn) (int64, error) {
	var lastSeq int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM turns WHERE task_id = ?`, turn.TaskID,
	).Scan(&lastSeq)
	if err != nil && err != sql.ErrNoRows {
		log.Printf("⚠️ Error retrieving last seq for task %s: %v", turn.TaskID, err)
		return 0, err
	}

	turn.Seq = lastSeq + 1
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO turns (seq, task_id, role, content, tool, call_id, parameters, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		turn.Seq, turn.TaskID, turn.Role, turn.Content, turn.Tool, turn.CallID, turn.Parameters,
		turn.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		log.Printf("⚠️ Error appending turn for task %s: %v", turn.TaskID, err)
		return 0, err
	}
	return turn.Seq, nil
}

func (s *SQLiteStore) GetHistoryByTaskID(ctx context.Context, taskID string) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, task_id, role, content, tool, call_id, parameters, created_at
		 FROM turns
		 WHERE task_id = ?
		 ORDER BY seq ASC`,
		taskID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []Turn
	for rows.Next() {
		var turn Turn
		var createdAt string
		if err = rows.Scan(&turn.Seq, &turn.TaskID, &turn.Role, &turn.Content,
			&turn.Tool, &turn.CallID, &turn.Parameters, &createdAt); err != nil {
			log.Printf("⚠️ Error scanning turn for task %s: %v", taskID, err)
			continue
		}
		turn.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		history = append(history, turn)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return history, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
