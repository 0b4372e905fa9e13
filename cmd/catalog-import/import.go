package main

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"
	"math/bits"
	"os"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/deepglam/marketplace-orders/internal/domain/product"
)

const (
	// maxFiles bounds the dumps tracked in one presence bitmask.
	maxFiles      = bits.UintSize
	progressEvery = 1_000_000
	maxLineBytes  = 1 << 20
)

type importOptions struct {
	capacity  uint
	fpr       float64
	batchSize int
}

type importStats struct {
	unique         int
	duplicates     int
	falsePositives int
	skipped        int
}

// candidate is a product whose id tested positive in another dump's filter.
type candidate struct {
	mask uint
	// rows holds the product as read from each dump, keyed by dump index.
	rows map[int]product.Product
}

// importCatalog upserts every product of files. A product id present in
// several dumps is written once, with the row of the last dump.
//
// Pass 1 builds a bloom filter of ids per dump. Pass 2 streams the dumps
// again: ids absent from every other filter are unique and written right
// away, the rest are kept in memory and resolved exactly once all dumps
// are read.
func importCatalog(ctx context.Context, files []string, w product.Writer, opts importOptions) (importStats, error) {
	if opts.batchSize <= 0 {
		opts.batchSize = 1000
	}

	slog.Info("pass 1: building bloom filters", slog.Int("files", len(files)))

	filters, err := buildBloomFilters(ctx, files, opts)
	if err != nil {
		return importStats{}, errors.Wrap(err, "build bloom filters")
	}

	slog.Info("pass 2: writing unique products")

	var (
		mu         sync.Mutex
		candidates = make(map[string]*candidate)
		stats      importStats
	)
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			fileBit := uint(1) << uint(i)
			batch := make([]product.Product, 0, opts.batchSize)
			var unique, skipped int

			flush := func() error {
				if len(batch) == 0 {
					return nil
				}
				if err := w.UpsertBatch(gctx, batch); err != nil {
					return errors.Wrapf(err, "upsert batch from %s", path)
				}
				unique += len(batch)
				batch = batch[:0]
				return nil
			}

			err := streamProducts(gctx, path, func(p product.Product) error {
				if !inOtherFilter(filters, i, p.ID) {
					batch = append(batch, p)
					if len(batch) == opts.batchSize {
						return flush()
					}
					return nil
				}

				mu.Lock()
				defer mu.Unlock()
				c, ok := candidates[p.ID]
				if !ok {
					c = &candidate{rows: make(map[int]product.Product, 2)}
					candidates[p.ID] = c
				}
				c.mask |= fileBit
				c.rows[i] = p
				return nil
			}, func() { skipped++ })
			if err != nil {
				return errors.Wrapf(err, "scan %s", path)
			}
			if err := flush(); err != nil {
				return err
			}

			mu.Lock()
			stats.unique += unique
			stats.skipped += skipped
			mu.Unlock()

			slog.Info("pass 2 complete",
				slog.String("file", path),
				slog.Int("unique", unique),
				slog.Int("skipped", skipped),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return importStats{}, err
	}

	resolved := make([]product.Product, 0, len(candidates))
	for _, c := range candidates {
		if bits.OnesCount(c.mask) < 2 {
			stats.falsePositives++
		} else {
			stats.duplicates++
		}
		// Highest set bit is the last dump holding the id.
		last := bits.Len(c.mask) - 1
		resolved = append(resolved, c.rows[last])
	}

	slog.Info("writing resolved products", slog.Int("count", len(resolved)))

	for start := 0; start < len(resolved); start += opts.batchSize {
		end := min(start+opts.batchSize, len(resolved))
		if err := w.UpsertBatch(ctx, resolved[start:end]); err != nil {
			return importStats{}, errors.Wrap(err, "upsert resolved products")
		}
	}
	stats.unique += stats.falsePositives

	return stats, nil
}

// buildBloomFilters creates one bloom filter of product ids per file,
// concurrently.
func buildBloomFilters(ctx context.Context, files []string, opts importOptions) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(opts.capacity, opts.fpr)
			var count uint64

			if err := streamProducts(ctx, path, func(p product.Product) error {
				filter.AddString(p.ID)
				count++
				if count%progressEvery == 0 {
					slog.Info("pass 1 progress", slog.String("file", path), slog.Uint64("products", count))
				}
				return nil
			}, nil); err != nil {
				return errors.Wrapf(err, "build filter for %s", path)
			}

			slog.Info("pass 1 complete", slog.String("file", path), slog.Uint64("products", count))
			filters[i] = filter
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

func inOtherFilter(filters []*bloom.BloomFilter, idx int, id string) bool {
	for j, f := range filters {
		if j != idx && f.TestString(id) {
			return true
		}
	}
	return false
}

// streamProducts opens a gzip-compressed JSON-lines dump and calls fn for
// each well formed product. Lines that do not decode into a product with an
// id, a seller and a non-negative price are reported to skip.
func streamProducts(ctx context.Context, path string, fn func(p product.Product) error, skip func()) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		p, ok := decodeProduct(line)
		if !ok {
			if skip != nil {
				skip()
			}
			continue
		}
		if err := fn(p); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}

// decodeProduct reads one dump line:
// {"id", "name", "sellerId", "brand", "hsn", "price"}.
func decodeProduct(line []byte) (product.Product, bool) {
	var p product.Product
	d := jx.DecodeBytes(line)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Str()
		case "name":
			p.Name, err = d.Str()
		case "sellerId":
			p.SellerID, err = d.Str()
		case "brand":
			p.Brand, err = d.Str()
		case "hsn":
			p.HSN, err = d.Str()
		case "price":
			p.Price, err = d.Int64()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		return product.Product{}, false
	}
	p.ID = strings.TrimSpace(p.ID)
	p.SellerID = strings.TrimSpace(p.SellerID)
	if p.ID == "" || p.SellerID == "" || p.Price < 0 {
		return product.Product{}, false
	}
	return p, true
}
