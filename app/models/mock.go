package models

import (
	"context"

	"github.com/stretchr/testify/mock"

	"GoTaskAgent/app/tools"
)

type MockModel struct {
	mock.Mock
}

func (m *MockModel) Decide(ctx context.Context, messages []Message, toolkit []tools.Tool) (*Decision, error) {
	args := m.Called(ctx, messages, toolkit)
	var d *Decision
	if v := args.Get(0); v != nil {
		d = v.(*Decision)
	}
	return d, args.Error(1)
}

func (m *MockModel) EmbedText(ctx context.Context, input string) ([]float32, error) {
	args := m.Called(ctx, input)
	var emb []float32
	if v := args.Get(0); v != nil {
		emb = v.([]float32)
	}
	return emb, args.Error(1)
}
