// Package filestore publishes generated files (invoices) to a location the
// API can link to.
package filestore

import (
	"context"
	"path"
	"strings"
)

// Resource types accepted by UploadOptions.
const (
	ResourceRaw   = "raw"
	ResourceImage = "image"
)

// UploadOptions controls where an uploaded file is placed.
type UploadOptions struct {
	// Folder is a slash separated prefix, e.g. "invoices".
	Folder string
	// ResourceType describes the content. PDFs are uploaded as raw.
	ResourceType string
}

// Object is a stored file.
type Object struct {
	// URL is where clients fetch the file.
	URL string
	// ID is the store-specific object name.
	ID string
}

// Store uploads local files.
type Store interface {
	Upload(ctx context.Context, localPath string, opts UploadOptions) (Object, error)
}

// objectName joins the folder and the base name of localPath, overwriting
// any object previously stored under the same name.
func objectName(folder, localPath string) string {
	name := path.Base(strings.ReplaceAll(localPath, "\\", "/"))
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return name
	}
	return folder + "/" + name
}
