package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParticipantIDRoundTrip(t *testing.T) {
	id := NewParticipantID()
	assert.False(t, id.IsZero())
	assert.Len(t, id.String(), 32)

	parsed, err := ParticipantIDFromString(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParticipantIDFromStringInvalid(t *testing.T) {
	_, err := ParticipantIDFromString("too-short")
	assert.Error(t, err)

	_, err = ParticipantIDFromString("not-hex-at-all-xxxxxxxxxxxxxxxxx")
	assert.Error(t, err)
}

func TestParticipantIDZeroValue(t *testing.T) {
	var id ParticipantID
	assert.True(t, id.IsZero())
}
