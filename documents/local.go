package documents

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/linesmerrill/dispute-case-api/apperr"
)

// Local writes uploads under a directory on disk, one folder per session
type Local struct {
	Dir string
}

// NewLocal returns a Local rooted at dir
func NewLocal(dir string) *Local {
	return &Local{Dir: dir}
}

// Save copies the upload to <dir>/<sessionID>/<uuid><ext>
func (l *Local) Save(ctx context.Context, sessionID string, up Upload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", apperr.Infra(err, "upload cancelled")
	}
	dir := filepath.Join(l.Dir, filepath.Base(sessionID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperr.Infra(err, "failed to create document folder")
	}

	name := filepath.Join(dir, uuid.NewString()+ext(up.Name))
	f, err := os.Create(name)
	if err != nil {
		return "", apperr.Infra(err, "failed to create document")
	}
	defer f.Close()

	if _, err := io.Copy(f, up.Body); err != nil {
		_ = os.Remove(name)
		return "", apperr.Infra(err, "failed to write document")
	}
	return name, nil
}
