// Package compose loads playlists from CUE documents.
//
// A document declares a top-level "playlist" field shaped by the
// embedded #Playlist schema. Load accepts a single .cue file or a
// directory, in which case every .cue file under it unifies into one
// document, so channel tables and schedules may be split across files.
//
// The schema is unified with the document before decoding; shape
// errors carry CUE source positions. Channel names and labels are
// NFC-normalized by the playlist builder on the way out, so two
// spellings of one name collide here, as a conflict, rather than
// silently producing two channels.
package compose

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/tkarvo/pulsedeck/internal/playlist"
)

//go:embed schema.cue
var schemaCUE string

// Load error codes.
const (
	CodeNotFound = "NotFound" // path missing or not readable
	CodeNoInput  = "NoInput"  // no .cue files under the path
	CodeSyntax   = "Syntax"   // CUE parse or build failure
	CodeSchema   = "Schema"   // document does not satisfy #Playlist
	CodeDecode   = "Decode"   // schema-valid value failed to decode
	CodeConflict = "Conflict" // channel redeclared with a different descriptor
)

// LoadError is an authoring diagnostic: what went wrong, where the
// document lives, and the CUE source position when one is known.
type LoadError struct {
	Path string
	Pos  token.Pos
	Code string
	Msg  string
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Msg)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// Load reads a playlist from a CUE file or directory of CUE files.
// Errors are *LoadError diagnostics.
func Load(path string) (*playlist.Playlist, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{Path: path, Code: CodeNotFound, Msg: fmt.Sprintf("stat: %v", err)}
	}

	ctx := cuecontext.New()
	var doc cue.Value
	if info.IsDir() {
		doc, err = buildDir(ctx, path)
	} else {
		doc, err = buildFile(ctx, path)
	}
	if err != nil {
		return nil, err
	}
	return decodeDocument(ctx, path, doc)
}

// buildFile compiles a single CUE file.
func buildFile(ctx *cue.Context, path string) (cue.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cue.Value{}, &LoadError{Path: path, Code: CodeNotFound, Msg: fmt.Sprintf("read: %v", err)}
	}
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return cue.Value{}, cueError(path, CodeSyntax, err)
	}
	return v, nil
}

// buildDir loads every .cue file under a directory as one instance.
func buildDir(ctx *cue.Context, dir string) (cue.Value, error) {
	files, err := findCUEFiles(dir)
	if err != nil {
		return cue.Value{}, &LoadError{Path: dir, Code: CodeNotFound, Msg: fmt.Sprintf("scan: %v", err)}
	}
	if len(files) == 0 {
		return cue.Value{}, &LoadError{Path: dir, Code: CodeNoInput, Msg: "no .cue files found"}
	}

	instances := load.Instances(files, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return cue.Value{}, &LoadError{Path: dir, Code: CodeSyntax, Msg: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, cueError(dir, CodeSyntax, inst.Err)
	}

	v := ctx.BuildInstance(inst)
	if err := v.Err(); err != nil {
		return cue.Value{}, cueError(dir, CodeSyntax, err)
	}
	return v, nil
}

// findCUEFiles walks a directory and returns relative paths of every
// .cue file, the form load.Instances expects alongside its Dir.
func findCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(path) != ".cue" {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, "./"+rel)
		return nil
	})
	return files, err
}

// cueError converts a CUE error into a LoadError, keeping the first
// reported position.
func cueError(path, code string, err error) *LoadError {
	le := &LoadError{Path: path, Code: code, Msg: err.Error()}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return le
	}
	le.Msg = errs[0].Error()
	if positions := errors.Positions(errs[0]); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}
