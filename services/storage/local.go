// Package storagesvc stores uploaded files on the local disk.
package storagesvc

import (
	"context"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/council/core"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("file not found")
	ErrTooLarge        = core.NewValidationError(nil, core.FieldError{Field: "file", Error: "file is too large"})
	ErrUnsupportedType = core.NewValidationError(nil, core.FieldError{Field: "file", Error: "unsupported file type"})

	// content type -> extension
	allowedTypes = map[string]string{
		"image/png":       ".png",
		"image/jpeg":      ".jpg",
		"image/gif":       ".gif",
		"image/webp":      ".webp",
		"application/pdf": ".pdf",
	}

	nameRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.[a-z]{3,4}$`)
)

type File struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

type LocalStore struct {
	dir     string
	baseURL string
	maxSize int64
}

func NewLocalStore(conf *core.Config) *LocalStore {
	dir := conf.Storage.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(conf.WorkDir, dir)
	}
	return &LocalStore{dir: dir, baseURL: conf.Storage.BaseURL, maxSize: conf.Storage.MaxUploadSize}
}

// Save stores the content of r under a new random name. The content type is sniffed, not trusted from the client.
func (s *LocalStore) Save(ctx context.Context, r io.Reader) (File, error) {
	content, err := io.ReadAll(io.LimitReader(r, s.maxSize+1))
	if err != nil {
		return File{}, errors.Wrap(err, "reading upload")
	}
	if int64(len(content)) > s.maxSize {
		return File{}, ErrTooLarge
	}
	if err = ctx.Err(); err != nil {
		return File{}, err
	}

	ct := http.DetectContentType(content)
	ext, ok := allowedTypes[ct]
	if !ok {
		return File{}, ErrUnsupportedType
	}

	if err = os.MkdirAll(s.dir, 0o755); err != nil {
		return File{}, errors.Wrap(err, "creating storage dir")
	}
	name := uuid.New().String() + ext
	if err = os.WriteFile(filepath.Join(s.dir, name), content, 0o644); err != nil {
		return File{}, errors.Wrap(err, "writing file")
	}
	return File{
		Name:        name,
		URL:         path.Join(s.baseURL, name),
		ContentType: ct,
		Size:        int64(len(content)),
	}, nil
}

// Path returns the disk path of a stored file.
func (s *LocalStore) Path(name string) (string, error) {
	if !nameRegex.MatchString(name) {
		return "", ErrNotFound
	}
	fp := filepath.Join(s.dir, name)
	if fi, err := os.Stat(fp); err != nil || fi.IsDir() {
		return "", ErrNotFound
	}
	return fp, nil
}
