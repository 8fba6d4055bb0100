package campaign

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// Mock implementations for testing

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, id string) (*ResolvedTemplate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ResolvedTemplate), args.Error(1)
}

type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Execute(ctx context.Context, prompt string) (*Outcome, error) {
	args := m.Called(ctx, prompt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Outcome), args.Error(1)
}
