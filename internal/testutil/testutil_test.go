package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkarvo/pulsedeck/internal/validate"
)

func TestFixedRunIDSourceIsDeterministic(t *testing.T) {
	a := NewFixedRunIDSource()
	b := NewFixedRunIDSource()

	first, err := a.Next()
	require.NoError(t, err)
	second, err := a.Next()
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "ids within one source are distinct")

	other, err := b.Next()
	require.NoError(t, err)
	assert.Equal(t, first, other, "fresh sources replay the same sequence")
	assert.Equal(t, "00000000-0000-7000-8000-000000000001", first.String())
}

func TestFixturesValidate(t *testing.T) {
	require.NoError(t, validate.Playlist(FeedbackPlaylist()))
	require.NoError(t, validate.Playlist(BarrierPlaylist()))
}
