package filestore

import (
	"context"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

var _ Store = (*Fallback)(nil)

// Fallback uploads to Primary and, when that fails, to Secondary.
type Fallback struct {
	Primary   Store
	Secondary Store
}

// Upload tries Primary first. The primary error is logged, not returned, when
// Secondary succeeds.
func (f *Fallback) Upload(ctx context.Context, localPath string, opts UploadOptions) (Object, error) {
	obj, err := f.Primary.Upload(ctx, localPath, opts)
	if err == nil {
		return obj, nil
	}
	zctx.From(ctx).Warn("Primary file store failed, using fallback",
		zap.String("path", localPath),
		zap.Error(err),
	)
	return f.Secondary.Upload(ctx, localPath, opts)
}

