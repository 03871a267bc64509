// Package documents stores the files attached to session minutes and returns the
// reference kept on each documentation row.
package documents

import (
	"context"
	"io"
	"path"
	"strings"
)

// Upload is one file received with a minutes submission
type Upload struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// Storage persists uploads. Save returns the path or URL the file can be fetched from.
type Storage interface {
	Save(ctx context.Context, sessionID string, up Upload) (string, error)
}

// ext returns the lowercased extension of name, including the dot
func ext(name string) string {
	return strings.ToLower(path.Ext(strings.ReplaceAll(name, "\\", "/")))
}
