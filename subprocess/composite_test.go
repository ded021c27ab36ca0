package subprocess

import (
	"testing"

	"github.com/mongodb/grip/level"
	"github.com/mongodb/grip/send"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeInternalSender(t *testing.T) *send.InternalSender {
	sender := send.MakeInternalLogger()
	require.NoError(t, sender.SetLevel(send.LevelInfo{Default: level.Info, Threshold: level.Debug}))
	return sender
}

func TestCompositeJournalerFansOutToDistinctSenders(t *testing.T) {
	assert := assert.New(t) // nolint

	one := makeInternalSender(t)
	two := makeInternalSender(t)

	journaler, err := newCompositeJournaler("composite-test", one, two)
	require.NoError(t, err)

	journaler.Info("hello")

	assert.True(one.HasMessage())
	assert.True(two.HasMessage())
	assert.Equal("hello", one.GetMessage().Message.String())
	assert.Equal("hello", two.GetMessage().Message.String())
}

func TestCompositeJournalerDeduplicatesSendersByIdentity(t *testing.T) {
	assert := assert.New(t) // nolint

	sender := makeInternalSender(t)

	journaler, err := newCompositeJournaler("composite-test", sender, sender, sender)
	require.NoError(t, err)

	journaler.Info("once")

	assert.True(sender.HasMessage())
	assert.Equal("once", sender.GetMessage().Message.String())
	assert.False(sender.HasMessage())
}

func TestCompositeJournalerRequiresASender(t *testing.T) {
	_, err := newCompositeJournaler("composite-test", nil, nil)
	assert.Error(t, err)
}
