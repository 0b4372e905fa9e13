package filestore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
)

var _ Store = (*Local)(nil)

// Local copies files into a directory served over HTTP under BaseURL.
type Local struct {
	dir     string
	baseURL string
}

// NewLocal returns a Local store rooted at dir. The directory is created when
// missing. URLs are baseURL joined with the object name, e.g.
// /uploads/invoices/BILL-1.pdf.
func NewLocal(dir, baseURL string) (*Local, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("local filestore: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create upload dir")
	}
	return &Local{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the root directory of the store.
func (l *Local) Dir() string { return l.dir }

// Upload copies localPath into the store.
func (l *Local) Upload(ctx context.Context, localPath string, opts UploadOptions) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	name := objectName(opts.Folder, localPath)
	dst := filepath.Join(l.dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return Object{}, errors.Wrap(err, "create folder")
	}
	if err := copyFile(localPath, dst); err != nil {
		return Object{}, errors.Wrapf(err, "copy %s", name)
	}
	return Object{URL: l.baseURL + "/" + name, ID: "local_" + name}, nil
}

func copyFile(src, dst string) (rerr error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if err := out.Close(); err != nil && rerr == nil {
			rerr = err
		}
	}()

	_, err = io.Copy(out, in)
	return err
}
