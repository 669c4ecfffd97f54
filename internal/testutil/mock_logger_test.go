package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/turtacn/plotinfo/internal/infrastructure/monitoring/logging"
)

func TestMockLogger_RecordsEntries(t *testing.T) {
	m := NewMockLogger()
	m.Info("started")
	m.With(logging.String("egrid", "CH1")).Warn("lookup failed")

	msgs := m.GetMessages()
	assert.Len(t, msgs, 2)
	assert.True(t, m.HasMessage("warn", "lookup failed"))
	assert.Equal(t, 1, m.CountLevel("info"))
	assert.Equal(t, "egrid", msgs[1].Fields[0].Key)

	m.Clear()
	assert.Empty(t, m.GetMessages())
}
