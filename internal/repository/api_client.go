package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/core"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/domain"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// ApiClientRepository provides persistence methods for the api_clients table.
type ApiClientRepository struct {
	db    *sql.DB
	clock core.Clock
}

func NewApiClientRepository(db *sql.DB, clock core.Clock) *ApiClientRepository {
	return &ApiClientRepository{db: db, clock: clock}
}

// Save inserts a new client and returns its generated id.
// It will set Created to now if it's not provided and enables the client by default.
func (r *ApiClientRepository) Save(ctx context.Context, c *domain.ApiClient) (int64, error) {
	if !c.Created.Valid {
		c.Created = sql.NullTime{Time: r.clock.Now().UTC(), Valid: true}
	}
	if !c.Enabled.Valid {
		c.Enabled = sql.NullBool{Bool: true, Valid: true}
	}
	base := `INSERT INTO api_clients (name, key_id, key_hash, created, enabled) VALUES (` + placeholders(1, 5) + `)`
	id, err := insertReturningID(ctx, r.db, base, c.Name, c.KeyID, c.KeyHash, formatDateInDatabase(c.Created.Time), c.Enabled.Bool)
	if err != nil {
		return 0, err
	}
	c.ID = id
	return id, nil
}

// FindByKeyID fetches a client by key id. Returns (nil, nil) if not found.
func (r *ApiClientRepository) FindByKeyID(ctx context.Context, keyID string) (*domain.ApiClient, error) {
	query := `
        SELECT id, name, key_id, key_hash, created, enabled
        FROM api_clients
        WHERE key_id = ` + placeholder(1) + `
        LIMIT 1
    `
	var c domain.ApiClient
	err := r.db.QueryRowContext(ctx, query, keyID).Scan(&c.ID, &c.Name, &c.KeyID, &c.KeyHash, &c.Created, &c.Enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Issue creates an enabled client and returns it with its plain key "<keyId>.<secret>".
// Only the bcrypt hash of the secret is stored.
func (r *ApiClientRepository) Issue(ctx context.Context, name string) (*domain.ApiClient, string, error) {
	keyID, secret, hash, err := NewApiKey()
	if err != nil {
		return nil, "", err
	}
	c := &domain.ApiClient{Name: name, KeyID: keyID, KeyHash: hash}
	if _, err := r.Save(ctx, c); err != nil {
		return nil, "", errors.WithMessagef(err, "save api client %s", name)
	}
	return c, keyID + "." + secret, nil
}

// NewApiKey generates a key id, a secret and the bcrypt hash of the secret.
func NewApiKey() (keyID, secret, hash string, err error) {
	keyID = strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	secret = strings.ReplaceAll(uuid.NewString(), "-", "")
	b, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", "", "", errors.WithMessage(err, "hash api key")
	}
	return keyID, secret, string(b), nil
}

// SplitApiKey separates "<keyId>.<secret>". ok is false for malformed keys.
func SplitApiKey(key string) (keyID, secret string, ok bool) {
	keyID, secret, ok = strings.Cut(key, ".")
	if !ok || keyID == "" || secret == "" {
		return "", "", false
	}
	return keyID, secret, true
}
