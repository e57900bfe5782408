package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tkarvo/pulsedeck/internal/compose"
	"github.com/tkarvo/pulsedeck/internal/playlist"
	"github.com/tkarvo/pulsedeck/internal/wire"
)

// sourceKind tags how a playlist argument was read.
type sourceKind string

const (
	sourceCUE  sourceKind = "cue"
	sourceWire sourceKind = "wire"
)

// loadPlaylist reads a playlist from path. Directories and .cue files
// go through the CUE loader; anything else must carry the wire magic
// and decodes as a canonical binary playlist. All failures are
// ExitErrors with ExitLoadFailed.
func loadPlaylist(path string) (*playlist.Playlist, sourceKind, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, "", WrapExitError(ExitLoadFailed, fmt.Sprintf("cannot read %s", path), err)
	}

	if info.IsDir() || filepath.Ext(path) == ".cue" {
		p, err := compose.Load(path)
		if err != nil {
			return nil, sourceCUE, WrapExitError(ExitLoadFailed, "load playlist", err)
		}
		return p, sourceCUE, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", WrapExitError(ExitLoadFailed, fmt.Sprintf("cannot read %s", path), err)
	}
	if !wire.Sniff(data) {
		return nil, "", NewExitError(ExitLoadFailed,
			fmt.Sprintf("%s is neither a .cue document nor an encoded playlist", path))
	}
	p, err := wire.Decode(data)
	if err != nil {
		return nil, sourceWire, WrapExitError(ExitLoadFailed, "decode playlist", err)
	}
	return p, sourceWire, nil
}

// loadErrorCode maps a load failure to a response error code: the CUE
// diagnostic code, the decode failure code, or a generic fallback.
func loadErrorCode(err error) string {
	var loadErr *compose.LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	if de, ok := wire.AsDecodeError(err); ok {
		return string(de.Code)
	}
	return "LoadFailed"
}
