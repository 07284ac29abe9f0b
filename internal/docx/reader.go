package docx

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Reader handles .docx file reading operations
type Reader struct {
	maxFileSize int64
}

// NewReader creates a new reader with the specified size limit
func NewReader(maxFileSize int64) *Reader {
	return &Reader{maxFileSize: maxFileSize}
}

// MaxFileSize returns the configured size limit in bytes.
func (r *Reader) MaxFileSize() int64 {
	return r.maxFileSize
}

// Stat checks that path names a non-empty .docx file within the size limit.
func (r *Reader) Stat(path string) (os.FileInfo, error) {
	if path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}

	if err := r.ValidateFileInfo(path, info); err != nil {
		return nil, err
	}
	return info, nil
}

// ValidateFileInfo performs basic validation on file info without opening the file
func (r *Reader) ValidateFileInfo(path string, info os.FileInfo) error {
	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", path)
	}
	if !IsDocxName(path) {
		return newError(ErrorTypeNotDocx, "file is not a .docx document", nil).WithFile(path)
	}
	if info.Size() == 0 {
		return newError(ErrorTypeEmptyFile, "file is empty", nil).WithFile(path)
	}
	if info.Size() > r.maxFileSize {
		return newError(ErrorTypeFileTooLarge,
			fmt.Sprintf("file too large: %d bytes (max: %d bytes)", info.Size(), r.maxFileSize), nil).WithFile(path)
	}
	return nil
}

// Load validates path and returns the raw container bytes.
func (r *Reader) Load(path string) ([]byte, error) {
	if _, err := r.Stat(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read file: %w", err)
	}
	return data, nil
}

// ReadFile loads and decodes a .docx file.
func (r *Reader) ReadFile(path string) (*Document, error) {
	data, err := r.Load(path)
	if err != nil {
		return nil, err
	}
	doc, err := DecodeBytes(data)
	if err != nil {
		if de, ok := err.(*Error); ok {
			return nil, de.WithFile(path)
		}
		return nil, err
	}
	return doc, nil
}

// IsValid performs a quick check to see if a file is a readable .docx
func (r *Reader) IsValid(path string) bool {
	_, err := r.ReadFile(path)
	return err == nil
}

// IsDocxName reports whether path has a .docx extension.
func IsDocxName(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".docx")
}
