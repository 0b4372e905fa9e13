package app

import (
	"net"
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"golang.org/x/text/language"

	"github.com/deepglam/marketplace-orders/internal/invoice"
)

// Storage drivers.
const (
	StorageLocal = "local"
	StorageGCS   = "gcs"
)

// Config is the api-server configuration. Every field can be set with an
// MKT_ environment variable, a flag or a YAML file.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"Listen address"`
	DatabaseURL  string `usage:"Postgres URL, DATABASE_URL is honoured too" flag:"database-url"`
	APIKeyPepper string `usage:"Secret mixed into API key hashes" flag:"api-key-pepper"`
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
	Invoice      InvoiceConfig
	Storage      StorageConfig
}

// RateLimitConfig bounds requests per API key, or per client IP for
// anonymous calls.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Requests allowed per window"`
	Window time.Duration `default:"1m" usage:"Length of the rate limit window"`
}

type CORSConfig struct {
	Origins          []string `default:"*" usage:"Origins allowed to call the API"`
	AllowCredentials bool     `default:"false" usage:"Send Access-Control-Allow-Credentials" flag:"cors-credentials"`
}

// GracefulConfig times shutdown: readiness is withdrawn, ReadinessDelay
// passes, then open requests get ShutdownTimeout to finish.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s" usage:"Pause between failing readiness and shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Upper bound on draining open requests" flag:"shutdown-timeout"`
}

// InvoiceConfig controls bill invoice generation after an order commits.
type InvoiceConfig struct {
	Disabled    bool          `default:"false" usage:"Skip invoice generation" flag:"invoice-disabled"`
	Concurrency int           `default:"4"   usage:"Invoices rendered in parallel per order"`
	Timeout     time.Duration `default:"30s" usage:"Time budget for one order's invoices"`
	Folder      string        `default:"invoices" usage:"File store folder for invoices"`
	Locale      string        `default:"en-IN" usage:"Locale used to format invoice amounts"`
	Payment     PaymentConfig
}

// PaymentConfig is printed on invoices as payment instructions.
type PaymentConfig struct {
	UPI         string `usage:"UPI id"`
	AccountName string `usage:"Bank account holder"`
	BankName    string `usage:"Bank name"`
	AccountNo   string `usage:"Bank account number"`
	IFSC        string `usage:"Bank IFSC code"`
}

// StorageConfig selects where invoice files are kept.
type StorageConfig struct {
	Driver        string `default:"local" usage:"File store driver: local or gcs"`
	LocalDir      string `default:"uploads" usage:"Directory of the local file store" flag:"storage-local-dir"`
	PublicBaseURL string `default:"/uploads" usage:"URL prefix the local store is served under" flag:"storage-public-base-url"`
	Bucket        string `usage:"Cloud Storage bucket for the gcs driver"`
	BucketBaseURL string `usage:"Public URL prefix of the bucket, defaults to storage.googleapis.com"`
	FallbackLocal bool   `default:"true" usage:"Fall back to the local store when the bucket upload fails" flag:"storage-fallback-local"`
}

var configFiles = []string{"config.yaml", "/etc/marketplace/config.yaml"}

// LoadConfig reads the configuration and checks it is usable.
func LoadConfig() (*Config, error) {
	cfg := new(Config)
	err := aconfig.LoaderFor(cfg, aconfig.Config{
		EnvPrefix:    "MKT",
		Files:        configFiles,
		FileDecoders: map[string]aconfig.FileDecoder{".yaml": aconfigyaml.New()},
	}).Load()
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()
	if err := cfg.validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set MKT_DATABASE_URL or DATABASE_URL")
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0 {
		return errors.Errorf("rate limit %d per %s must be positive", c.RateLimit.Max, c.RateLimit.Window)
	}
	if !c.Invoice.Disabled && c.Invoice.Concurrency <= 0 {
		return errors.Errorf("invoice concurrency %d must be positive", c.Invoice.Concurrency)
	}
	if _, err := language.Parse(c.Invoice.Locale); err != nil {
		return errors.Wrapf(err, "invoice locale %q", c.Invoice.Locale)
	}
	switch c.Storage.Driver {
	case StorageLocal:
		return nil
	case StorageGCS:
		if c.Storage.Bucket == "" {
			return errors.New("storage bucket is required for the gcs driver")
		}
		return nil
	default:
		return errors.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
}

const defaultAddr = "0.0.0.0:8080"

// applyPlatformDefaults picks up DATABASE_URL and PORT as injected by hosting
// platforms. Explicit MKT_ settings win.
func (c *Config) applyPlatformDefaults() {
	if v, ok := os.LookupEnv("DATABASE_URL"); ok && c.DatabaseURL == "" {
		c.DatabaseURL = v
	}
	if port, ok := os.LookupEnv("PORT"); ok && port != "" && c.Addr == defaultAddr {
		c.Addr = net.JoinHostPort("0.0.0.0", port)
	}
}

// InvoicePayment returns the payment block printed on invoices.
func (c *Config) InvoicePayment() invoice.Payment {
	p := c.Invoice.Payment
	return invoice.Payment{
		UPI:         p.UPI,
		AccountName: p.AccountName,
		BankName:    p.BankName,
		AccountNo:   p.AccountNo,
		IFSC:        p.IFSC,
	}
}
