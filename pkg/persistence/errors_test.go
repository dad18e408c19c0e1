package persistence_test

import (
	"errors"
	"testing"

	"github.com/dukex/leadflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("error checking functions work correctly", func(t *testing.T) {
		flowErr := persistence.NewRecordError("GetByID", "flow", "flow-123", persistence.ErrFlowNotFound)
		execErr := persistence.NewRecordError("GetByID", "execution", "exec-1", persistence.ErrExecutionNotFound)

		assert.True(t, persistence.IsFlowNotFound(flowErr))
		assert.False(t, persistence.IsFlowNotFound(execErr))
		assert.True(t, persistence.IsExecutionNotFound(execErr))
		assert.True(t, persistence.IsNotFound(flowErr))
		assert.True(t, persistence.IsNotFound(execErr))
		assert.False(t, persistence.IsNotFound(errors.New("disk full")))

		assert.ErrorIs(t, flowErr, persistence.ErrFlowNotFound)
	})

	t.Run("record error contains context", func(t *testing.T) {
		err := persistence.NewRecordError("SaveLead", "lead", "lead-9", persistence.ErrLeadNotFound)

		assert.Contains(t, err.Error(), "SaveLead")
		assert.Contains(t, err.Error(), "lead lead-9")
		assert.Contains(t, err.Error(), "lead not found")
	})

	t.Run("record error without id", func(t *testing.T) {
		err := persistence.NewRecordError("GetAll", "campaign", "", errors.New("boom"))

		assert.Equal(t, "GetAll operation failed for campaign: boom", err.Error())
	})
}
