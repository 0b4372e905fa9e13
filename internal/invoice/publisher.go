package invoice

import (
	"context"
	"os"

	"github.com/go-faster/errors"

	"github.com/deepglam/marketplace-orders/internal/domain/order"
	"github.com/deepglam/marketplace-orders/internal/filestore"
)

// DefaultFolder is the file store folder invoices are uploaded to.
const DefaultFolder = "invoices"

var _ order.Invoicer = (*Publisher)(nil)

// Publisher renders bill invoices and uploads them, implementing
// order.Invoicer.
type Publisher struct {
	renderer *Renderer
	store    filestore.Store
	folder   string
	payment  Payment
	tempDir  string
}

// PublisherConfig configures a Publisher.
type PublisherConfig struct {
	Folder  string
	Payment Payment
	// TempDir holds rendered files until they are uploaded. Defaults to
	// os.TempDir.
	TempDir string
}

// NewPublisher returns a Publisher writing through store.
func NewPublisher(r *Renderer, store filestore.Store, cfg PublisherConfig) *Publisher {
	if cfg.Folder == "" {
		cfg.Folder = DefaultFolder
	}
	return &Publisher{
		renderer: r,
		store:    store,
		folder:   cfg.Folder,
		payment:  cfg.Payment,
		tempDir:  cfg.TempDir,
	}
}

// Publish renders inv to a temporary file, uploads it and returns its URL.
// The temporary file is always removed.
func (p *Publisher) Publish(ctx context.Context, inv order.Invoice) (string, error) {
	if inv.Bill == nil {
		return "", errors.New("invoice without bill")
	}

	dir, err := os.MkdirTemp(p.tempDir, "invoice-*")
	if err != nil {
		return "", errors.Wrap(err, "create temp dir")
	}
	defer func() { _ = os.RemoveAll(dir) }()

	path, err := p.renderer.RenderFile(ctx, NewDocument(inv, p.payment), dir)
	if err != nil {
		return "", errors.Wrap(err, "render")
	}

	obj, err := p.store.Upload(ctx, path, filestore.UploadOptions{
		Folder:       p.folder,
		ResourceType: filestore.ResourceRaw,
	})
	if err != nil {
		return "", errors.Wrap(err, "upload")
	}
	return obj.URL, nil
}
