package entity

import (
	"io"
	"path/filepath"
	"strings"
)

// File is an uploaded cover image or receipt on its way to object storage.
type File struct {
	Name        string
	ContentType string
	Body        io.Reader
}

func (f *File) Extension() string {
	return strings.ToLower(filepath.Ext(f.Name))
}
