package subprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitionTable(t *testing.T) {
	assert := assert.New(t) // nolint

	assert.Equal(FinishedNoMoreLogs, statusFor(false, true))
	assert.Equal(FinishedLogRead, statusFor(true, true))
	assert.Equal(RunningLogRead, statusFor(true, false))
	assert.Equal(RunningNoLogRead, statusFor(false, false))
}

func TestStatusPredicates(t *testing.T) {
	assert := assert.New(t) // nolint

	assert.True(FinishedNoMoreLogs.IsFinished())
	assert.True(FinishedLogRead.IsFinished())
	assert.False(RunningNoLogRead.IsFinished())
	assert.False(RunningLogRead.IsFinished())

	assert.True(FinishedLogRead.LogRead())
	assert.True(RunningLogRead.LogRead())
	assert.False(FinishedNoMoreLogs.LogRead())
	assert.False(RunningNoLogRead.LogRead())
}

func TestStatusStringForms(t *testing.T) {
	assert := assert.New(t) // nolint

	for _, status := range []ProcessStatus{
		FinishedNoMoreLogs,
		FinishedLogRead,
		RunningNoLogRead,
		RunningLogRead,
	} {
		assert.NotEqual("invalid", status.String())
	}

	assert.Equal("invalid", ProcessStatus(42).String())
}
