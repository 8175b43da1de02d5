package storage

import "context"

type Interface interface {
	SaveTask(ctx context.Context, task Task) error
	UpdateTask(ctx context.Context, task Task) error
	GetTask(ctx context.Context, taskID string) (*Task, error)
	AppendTurn(ctx context.Context, turn Turn) (int64, error)
	GetHistoryByTaskID(ctx context.Context, taskID string) ([]Turn, error)
}
