package workflow

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
)

// File is a handle to the uploaded resume. The core never looks inside it.
type File interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// LocalFile is a File backed by a path on disk.
type LocalFile struct {
	path string
}

func NewLocalFile(path string) *LocalFile {
	return &LocalFile{path: path}
}

var errNilFile = errors.New("nil file handle")

// Name is empty for a nil handle.
func (f *LocalFile) Name() string {
	if f == nil {
		return ""
	}
	return filepath.Base(f.path)
}

func (f *LocalFile) Path() string {
	if f == nil {
		return ""
	}
	return f.path
}

func (f *LocalFile) Open() (io.ReadCloser, error) {
	if f == nil {
		return nil, errNilFile
	}
	return os.Open(f.path)
}

// MemoryFile is a File backed by an in-memory payload.
type MemoryFile struct {
	name string
	data []byte
}

func NewMemoryFile(name string, data []byte) *MemoryFile {
	return &MemoryFile{name: name, data: data}
}

func (f *MemoryFile) Name() string {
	if f == nil {
		return ""
	}
	return f.name
}

func (f *MemoryFile) Open() (io.ReadCloser, error) {
	if f == nil {
		return nil, errNilFile
	}
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

// ResumeSubmission is the immutable hand-off from the upload phase to the scoring phase.
type ResumeSubmission struct {
	file           File
	jobDescription string
}

func NewResumeSubmission(file File, jobDescription string) (*ResumeSubmission, error) {
	if file == nil {
		return nil, errors.New("resume file is required")
	}
	if jobDescription == "" {
		return nil, errors.New("job description is required")
	}

	return &ResumeSubmission{file: file, jobDescription: jobDescription}, nil
}

func (s *ResumeSubmission) File() File { return s.file }

func (s *ResumeSubmission) JobDescription() string { return s.jobDescription }

// PracticeEntry is the payload handed to the practice phase. The resume is not carried over.
type PracticeEntry struct {
	JobDescription string
}
