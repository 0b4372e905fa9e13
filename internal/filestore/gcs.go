package filestore

import (
	"context"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/go-faster/errors"
)

var _ Store = (*GCS)(nil)

const publicGCSHost = "https://storage.googleapis.com"

// GCS stores files in a Cloud Storage bucket.
type GCS struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

// NewGCS returns a GCS store writing to bucket. baseURL overrides the public
// URL prefix (for a CDN in front of the bucket); when empty the public
// storage.googleapis.com URL is used.
func NewGCS(client *storage.Client, bucket, baseURL string) (*GCS, error) {
	if client == nil {
		return nil, errors.New("gcs filestore: client is required")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("gcs filestore: bucket is required")
	}
	if baseURL == "" {
		baseURL = publicGCSHost + "/" + bucket
	}
	return &GCS{client: client, bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Upload streams localPath into the bucket.
func (g *GCS) Upload(ctx context.Context, localPath string, opts UploadOptions) (Object, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return Object{}, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	name := objectName(opts.Folder, localPath)
	w := g.client.Bucket(g.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType(localPath, opts.ResourceType)
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return Object{}, errors.Wrapf(err, "write %s", name)
	}
	if err := w.Close(); err != nil {
		return Object{}, errors.Wrapf(err, "close %s", name)
	}
	return Object{URL: g.baseURL + "/" + name, ID: name}, nil
}

func contentType(localPath, resourceType string) string {
	if ct := mime.TypeByExtension(filepath.Ext(localPath)); ct != "" {
		return ct
	}
	if resourceType == ResourceImage {
		return "image/*"
	}
	return "application/octet-stream"
}
