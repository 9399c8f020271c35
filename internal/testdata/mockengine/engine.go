package mockengine

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type Engine struct {
	mock.Mock
}

func (m *Engine) Run(ctx context.Context, runID uuid.UUID) error {
	args := m.Called(ctx, runID)
	return args.Error(0)
}
