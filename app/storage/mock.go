package storage

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

var _ Interface = &MockStore{}

func (m *MockStore) SaveTask(ctx context.Context, task Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockStore) UpdateTask(ctx context.Context, task Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockStore) GetTask(ctx context.Context, taskID string) (*Task, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Task), args.Error(1)
}

func (m *MockStore) AppendTurn(ctx context.Context, turn Turn) (int64, error) {
	args := m.Called(ctx, turn)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) GetHistoryByTaskID(ctx context.Context, taskID string) ([]Turn, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Turn), args.Error(1)
}
