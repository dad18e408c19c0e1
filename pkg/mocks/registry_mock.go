package mocks

import (
	"context"

	"github.com/dukex/leadflow/pkg/validation"
	"github.com/stretchr/testify/mock"
)

// MockRegistry is a mock implementation of validation.Registry interface.
type MockRegistry struct {
	mock.Mock
}

func (m *MockRegistry) Check(ctx context.Context, numbers []string) ([]validation.RegistryRecord, error) {
	args := m.Called(ctx, numbers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]validation.RegistryRecord), args.Error(1)
}
