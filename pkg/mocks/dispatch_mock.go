package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockDispatchChannel is a mock implementation of actions.DispatchChannel interface.
type MockDispatchChannel struct {
	mock.Mock
}

func (m *MockDispatchChannel) Send(ctx context.Context, channelID, phone, body string) error {
	args := m.Called(ctx, channelID, phone, body)

	return args.Error(0)
}
