package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deepglam/marketplace-orders/internal/domain/auth"
)

var _ auth.Repository = (*APIKeyRepository)(nil)

// APIKeyRepository stores hashed API keys.
type APIKeyRepository struct {
	pool *pgxpool.Pool
}

// NewAPIKeyRepository returns an APIKeyRepository that uses the given pool.
func NewAPIKeyRepository(pool *pgxpool.Pool) *APIKeyRepository {
	return &APIKeyRepository{pool: pool}
}

// FindByHash returns the active key with the given hash or
// auth.ErrKeyNotFound.
func (r *APIKeyRepository) FindByHash(ctx context.Context, hash string) (*auth.APIKeyInfo, error) {
	info := new(auth.APIKeyInfo)
	err := r.pool.QueryRow(ctx,
		`SELECT id, key_hash, name, role, scopes FROM api_keys WHERE key_hash = $1 AND active`,
		hash,
	).Scan(&info.ID, &info.KeyHash, &info.Name, &info.Role, &info.Scopes)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, auth.ErrKeyNotFound
	case err != nil:
		return nil, errors.Wrap(err, "query api key")
	}
	return info, nil
}

// Upsert stores info under its ID. Re-seeding a key rotates its hash and
// re-activates it.
func (r *APIKeyRepository) Upsert(ctx context.Context, info auth.APIKeyInfo) error {
	scopes := info.Scopes
	if scopes == nil {
		scopes = []string{}
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO api_keys (id, key_hash, name, role, scopes, active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		ON CONFLICT (id) DO UPDATE SET
			key_hash = EXCLUDED.key_hash,
			name = EXCLUDED.name,
			role = EXCLUDED.role,
			scopes = EXCLUDED.scopes,
			active = TRUE`,
		info.ID, info.KeyHash, info.Name, info.Role, scopes,
	)
	if err != nil {
		return errors.Wrapf(err, "upsert api key %s", info.ID)
	}
	return nil
}
