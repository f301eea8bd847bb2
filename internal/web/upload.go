package web

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"studentscore/internal/apperr"
	"studentscore/internal/data"
)

var (
	ErrUnsafeFilename = errors.New("unsafe filename")
	ErrNotCSV         = errors.New("file is not a .csv")
)

// Staging is the directory uploads are copied into while a request runs.
type Staging struct {
	Dir string
}

func NewStaging(dir string) (*Staging, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	return &Staging{Dir: dir}, nil
}

// StagedFile is one request's private copy of an upload.
type StagedFile struct {
	Name string
	Path string
}

// SafeName reduces a client supplied filename to its base name. Both path
// separators are honoured since browsers on Windows may send full paths.
func SafeName(name string) (string, error) {
	name = strings.ReplaceAll(name, `\`, "/")
	base := strings.TrimSpace(filepath.Base(name))
	switch base {
	case "", ".", "..", "/":
		return "", fmt.Errorf("%w: %q", ErrUnsafeFilename, name)
	}
	return base, nil
}

// Stage checks the upload's name and copies it to a file only this request
// knows about. The caller must Remove it.
func (s *Staging) Stage(fh *multipart.FileHeader) (*StagedFile, error) {
	name, err := SafeName(fh.Filename)
	if err != nil {
		return nil, apperr.Input("invalid file name", err)
	}
	if !strings.HasSuffix(name, ".csv") {
		return nil, apperr.Input("Invalid file format. Please upload a CSV file.", fmt.Errorf("%w: %q", ErrNotCSV, name)).
			WithDetails(map[string]any{"file": name})
	}

	src, err := fh.Open()
	if err != nil {
		return nil, apperr.Input("could not read the upload", err)
	}
	defer src.Close()

	path := filepath.Join(s.Dir, uuid.NewString()+"_"+name)
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("stage upload: %w", err)
	}
	staged := &StagedFile{Name: name, Path: path}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = staged.Remove()
		return nil, fmt.Errorf("stage upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = staged.Remove()
		return nil, fmt.Errorf("stage upload: %w", err)
	}
	return staged, nil
}

// Table parses the staged file as CSV.
func (f *StagedFile) Table() (*data.Table, error) {
	r, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open staged upload: %w", err)
	}
	defer r.Close()
	t, err := data.ReadCSV(r)
	if err != nil {
		return nil, apperr.Input("could not parse the CSV file", err).
			WithDetails(map[string]any{"file": f.Name, "reason": err.Error()})
	}
	return t, nil
}

func (f *StagedFile) Remove() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
