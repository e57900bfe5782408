package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkarvo/pulsedeck/internal/compose"
	"github.com/tkarvo/pulsedeck/internal/wire"
)

func TestLoadPlaylist_CUEFile(t *testing.T) {
	path := writeCUE(t, t.TempDir(), "barrier.cue", twoChannelCUE)

	p, kind, err := loadPlaylist(path)
	require.NoError(t, err)
	assert.Equal(t, sourceCUE, kind)
	assert.Len(t, p.Channels, 2)
}

func TestLoadPlaylist_CUEDirectory(t *testing.T) {
	dir := t.TempDir()
	writeCUE(t, dir, "barrier.cue", twoChannelCUE)

	p, kind, err := loadPlaylist(dir)
	require.NoError(t, err)
	assert.Equal(t, sourceCUE, kind)
	assert.Len(t, p.Channels, 2)
}

func TestLoadPlaylist_WireFile(t *testing.T) {
	path := writeWireFile(t, t.TempDir())

	p, kind, err := loadPlaylist(path)
	require.NoError(t, err)
	assert.Equal(t, sourceWire, kind)
	assert.Len(t, p.Channels, 2)
	assert.Contains(t, p.Channels, "flux.a")
}

func TestLoadPlaylist_MissingFile(t *testing.T) {
	_, _, err := loadPlaylist(filepath.Join(t.TempDir(), "nope.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitLoadFailed, GetExitCode(err))
}

func TestLoadPlaylist_UnrecognizedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0644))

	_, _, err := loadPlaylist(path)
	require.Error(t, err)
	assert.Equal(t, ExitLoadFailed, GetExitCode(err))
	assert.Contains(t, err.Error(), "neither a .cue document nor an encoded playlist")
}

func TestLoadPlaylist_CorruptWireFile(t *testing.T) {
	// Valid magic followed by garbage.
	path := filepath.Join(t.TempDir(), "corrupt.pdk")
	require.NoError(t, os.WriteFile(path, []byte("PDK1\xff\xff"), 0644))

	_, kind, err := loadPlaylist(path)
	require.Error(t, err)
	assert.Equal(t, sourceWire, kind)
	assert.Equal(t, ExitLoadFailed, GetExitCode(err))
	assert.Equal(t, "MalformedEncoding", loadErrorCode(err))
}

func TestLoadPlaylist_BadCUEDocument(t *testing.T) {
	path := writeCUE(t, t.TempDir(), "broken.cue", `playlist: { channels: 42 }`)

	_, kind, err := loadPlaylist(path)
	require.Error(t, err)
	assert.Equal(t, sourceCUE, kind)
	assert.Equal(t, ExitLoadFailed, GetExitCode(err))
}

func TestLoadErrorCode(t *testing.T) {
	composeErr := &compose.LoadError{Code: compose.CodeSchema, Msg: "bad field"}
	assert.Equal(t, compose.CodeSchema, loadErrorCode(composeErr))

	wrapped := WrapExitError(ExitLoadFailed, "load playlist", composeErr)
	assert.Equal(t, compose.CodeSchema, loadErrorCode(wrapped))

	decodeErr := WrapExitError(ExitLoadFailed, "decode playlist",
		&wire.DecodeError{Code: wire.UnsupportedVariant, Detail: "tag 0x9999"})
	assert.Equal(t, "UnsupportedVariant", loadErrorCode(decodeErr))

	assert.Equal(t, "LoadFailed", loadErrorCode(errors.New("something else")))
}
