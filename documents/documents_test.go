package documents

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/dispute-case-api/apperr"
)

func TestLocalSave(t *testing.T) {
	l := NewLocal(t.TempDir())

	p, err := l.Save(context.Background(), "session-1", Upload{Name: "Minutes.PDF", Body: strings.NewReader("signed")})
	require.NoError(t, err)
	assert.Equal(t, ".pdf", filepath.Ext(p))
	assert.Equal(t, "session-1", filepath.Base(filepath.Dir(p)))

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "signed", string(b))
}

func TestLocalSaveStaysInsideDir(t *testing.T) {
	root := t.TempDir()
	p, err := NewLocal(root).Save(context.Background(), "../../etc", Upload{Name: "a.txt", Body: strings.NewReader("x")})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p, root))
}

func TestLocalSaveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLocal(t.TempDir()).Save(ctx, "s", Upload{Name: "a.txt", Body: strings.NewReader("x")})
	assert.True(t, apperr.Is(err, apperr.Infrastructure))
}

type mockUploader struct {
	mock.Mock
}

func (m *mockUploader) Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error) {
	args := m.Called(ctx, file, params)
	res, _ := args.Get(0).(*uploader.UploadResult)
	return res, args.Error(1)
}

func TestCloudinarySave(t *testing.T) {
	m := &mockUploader{}
	m.On("Upload", mock.Anything, mock.Anything, mock.MatchedBy(func(p uploader.UploadParams) bool {
		return p.Folder == "minutes/session-1" && p.PublicID != ""
	})).Return(&uploader.UploadResult{SecureURL: "https://res.cloudinary.com/x/minutes.pdf"}, nil)

	c := &Cloudinary{api: m, Folder: "minutes"}
	url, err := c.Save(context.Background(), "session-1", Upload{Name: "minutes.pdf", Body: strings.NewReader("x")})
	require.NoError(t, err)
	assert.Equal(t, "https://res.cloudinary.com/x/minutes.pdf", url)
	m.AssertExpectations(t)
}

func TestCloudinarySaveErrors(t *testing.T) {
	m := &mockUploader{}
	m.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("timeout")).Once()
	m.On("Upload", mock.Anything, mock.Anything, mock.Anything).
		Return(&uploader.UploadResult{Error: api.ErrorResp{Message: "Invalid image file"}}, nil).Once()

	c := &Cloudinary{api: m, Folder: "minutes"}
	_, err := c.Save(context.Background(), "s", Upload{Name: "a.bin", Body: strings.NewReader("x")})
	assert.True(t, apperr.Is(err, apperr.Infrastructure))

	_, err = c.Save(context.Background(), "s", Upload{Name: "a.bin", Body: strings.NewReader("x")})
	assert.ErrorContains(t, err, "Invalid image file")
}
