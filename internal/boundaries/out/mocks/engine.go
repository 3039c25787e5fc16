package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/bnema/imagerelay/internal/boundaries/out"
	"github.com/bnema/imagerelay/internal/domain"
)

// MockImageEngine is a mock implementation of out.ImageEngine
type MockImageEngine struct {
	mock.Mock
}

var _ out.ImageEngine = (*MockImageEngine)(nil)

// NewMockImageEngine creates a mock whose expectations are asserted when the test ends.
func NewMockImageEngine(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockImageEngine {
	m := &MockImageEngine{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockImageEngine) PullImage(ctx context.Context, ref string) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

func (m *MockImageEngine) TagImage(ctx context.Context, source, target string) error {
	args := m.Called(ctx, source, target)
	return args.Error(0)
}

func (m *MockImageEngine) PushImage(ctx context.Context, ref string, creds domain.Credentials) (out.PushResult, error) {
	args := m.Called(ctx, ref, creds)
	return args.Get(0).(out.PushResult), args.Error(1)
}

func (m *MockImageEngine) RemoveImage(ctx context.Context, ref string, force bool) error {
	args := m.Called(ctx, ref, force)
	return args.Error(0)
}

func (m *MockImageEngine) PruneImages(ctx context.Context, until string) (domain.PruneReport, error) {
	args := m.Called(ctx, until)
	return args.Get(0).(domain.PruneReport), args.Error(1)
}

func (m *MockImageEngine) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
