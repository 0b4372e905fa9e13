package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/deepglam/marketplace-orders/db"
	"github.com/deepglam/marketplace-orders/internal/domain/address"
	"github.com/deepglam/marketplace-orders/internal/domain/auth"
	"github.com/deepglam/marketplace-orders/internal/domain/buyer"
	"github.com/deepglam/marketplace-orders/internal/domain/product"
	"github.com/deepglam/marketplace-orders/internal/domain/seller"
	"github.com/deepglam/marketplace-orders/internal/storage/postgres"
)

type seedFile struct {
	Buyers []struct {
		ID          string          `json:"id"`
		Name        string          `json:"name"`
		Phone       string          `json:"phone"`
		Email       string          `json:"email"`
		ShopName    string          `json:"shopName"`
		GSTNumber   string          `json:"gstNumber"`
		ShopAddress address.Address `json:"shopAddress"`
	} `json:"buyers"`
	Sellers []struct {
		ID          string          `json:"id"`
		BrandName   string          `json:"brandName"`
		GSTNumber   string          `json:"gstNumber"`
		Phone       string          `json:"phone"`
		FullAddress address.Address `json:"fullAddress"`
	} `json:"sellers"`
	Products []struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		SellerID string `json:"sellerId"`
		Brand    string `json:"brand"`
		HSN      string `json:"hsn"`
		Price    int64  `json:"price"`
	} `json:"products"`
}

func main() {
	var (
		databaseURL  string
		seedPath     string
		apiKey       string
		apiKeyName   string
		apiKeyRole   string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&seedPath, "seed-file", "", "path to the seed JSON file (defaults to the built-in demo data)")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or MKT_SEED_API_KEY env)")
	flag.StringVar(&apiKeyName, "api-key-name", "Default staff key", "name recorded as the order actor")
	flag.StringVar(&apiKeyRole, "api-key-role", auth.RoleAdmin, "role of the seeded key")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or MKT_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("MKT_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or MKT_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("MKT_API_KEY_PEPPER")
	}

	role, err := auth.ParseRole(apiKeyRole)
	if err != nil {
		slog.Error("invalid --api-key-role", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	key := auth.APIKeyInfo{
		ID:      "default",
		KeyHash: auth.HashKey([]byte(apiKeyPepper), apiKey),
		Name:    apiKeyName,
		Role:    role,
		Scopes:  []string{"orders"},
	}
	if err := run(ctx, databaseURL, seedPath, key); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, seedPath string, key auth.APIKeyInfo) error {
	data := db.Seed
	if seedPath != "" {
		slog.Info("reading seed file", slog.String("path", seedPath))
		var err error
		if data, err = os.ReadFile(seedPath); err != nil {
			return errors.Wrap(err, "read seed file")
		}
	}
	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return errors.Wrap(err, "parse seed JSON")
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Sellers first: products reference them.
	sellers := postgres.NewSellerRepository(pool)
	for _, s := range seed.Sellers {
		if err := sellers.Upsert(ctx, &seller.Seller{
			ID:          s.ID,
			BrandName:   s.BrandName,
			GSTNumber:   s.GSTNumber,
			Phone:       s.Phone,
			FullAddress: s.FullAddress,
		}); err != nil {
			return errors.Wrapf(err, "upsert seller %s", s.ID)
		}
		slog.Info("upserted seller", slog.String("id", s.ID), slog.String("brand", s.BrandName))
	}

	buyers := postgres.NewBuyerRepository(pool)
	for _, b := range seed.Buyers {
		if err := buyers.Upsert(ctx, &buyer.Buyer{
			ID:          b.ID,
			Name:        b.Name,
			Phone:       b.Phone,
			Email:       b.Email,
			ShopName:    b.ShopName,
			GSTNumber:   b.GSTNumber,
			ShopAddress: b.ShopAddress,
		}); err != nil {
			return errors.Wrapf(err, "upsert buyer %s", b.ID)
		}
		slog.Info("upserted buyer", slog.String("id", b.ID), slog.String("shop", b.ShopName))
	}

	products := make([]product.Product, len(seed.Products))
	for i, p := range seed.Products {
		products[i] = product.Product{
			ID:       p.ID,
			Name:     p.Name,
			SellerID: p.SellerID,
			Brand:    p.Brand,
			HSN:      p.HSN,
			Price:    p.Price,
		}
	}
	if err := postgres.NewProductRepository(pool).UpsertBatch(ctx, products); err != nil {
		return errors.Wrap(err, "upsert products")
	}
	slog.Info("upserted products", slog.Int("count", len(products)))

	if err := postgres.NewAPIKeyRepository(pool).Upsert(ctx, key); err != nil {
		return errors.Wrap(err, "upsert API key")
	}
	slog.Info("upserted API key", slog.String("id", key.ID), slog.String("name", key.Name), slog.String("role", key.Role))

	return nil
}
