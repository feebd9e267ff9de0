package verify

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// artifactMode is the screenshot's permission; temp files start out 0600.
const artifactMode = 0o644

// ErrNotPNG is returned for screenshot bytes without a PNG signature.
var ErrNotPNG = errors.New("screenshot is not a PNG image")

// writeArtifact replaces path with data. The bytes go to a temporary file in
// the same directory first, so path is never left half written.
func writeArtifact(fs afero.Fs, path string, data []byte) (err error) {
	if !bytes.HasPrefix(data, pngSignature) {
		return fmt.Errorf("%w (%d bytes)", ErrNotPNG, len(data))
	}

	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := afero.TempFile(fs, dir, "."+filepath.Base(path)+".tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = fs.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = fs.Chmod(tmp.Name(), artifactMode); err != nil {
		return err
	}
	return fs.Rename(tmp.Name(), path)
}
