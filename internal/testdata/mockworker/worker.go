package mockworker

import (
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type Worker struct {
	mock.Mock
}

func (m *Worker) Enqueue(runID uuid.UUID) {
	m.Called(runID)
}

func (m *Worker) Shutdown() {
	m.Called()
}
