package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/models"
)

// MagicLinkRepository stores hashed email sign-in tokens.
type MagicLinkRepository struct {
	db *sqlx.DB
}

// NewMagicLinkRepository constructs a MagicLinkRepository.
func NewMagicLinkRepository(db *sqlx.DB) *MagicLinkRepository {
	return &MagicLinkRepository{db: db}
}

// Create stores a token hash. Older tokens for the same email are dropped.
func (r *MagicLinkRepository) Create(ctx context.Context, token *models.MagicLinkToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	return withTx(ctx, r.db, "create magic link", func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM magic_link_tokens WHERE LOWER(email) = LOWER($1)`, token.Email); err != nil {
			return fmt.Errorf("clear magic links: %w", err)
		}
		const insert = `INSERT INTO magic_link_tokens (id, email, token_hash, expires_at, created_at) VALUES (:id, :email, :token_hash, :expires_at, :created_at)`
		if _, err := tx.NamedExecContext(ctx, insert, token); err != nil {
			return fmt.Errorf("insert magic link: %w", err)
		}
		return nil
	})
}

// FindActive returns unexpired tokens for an email, newest first.
func (r *MagicLinkRepository) FindActive(ctx context.Context, email string, now time.Time) ([]models.MagicLinkToken, error) {
	const query = `SELECT id, email, token_hash, expires_at, created_at FROM magic_link_tokens WHERE LOWER(email) = LOWER($1) AND expires_at > $2 ORDER BY created_at DESC`
	var tokens []models.MagicLinkToken
	if err := r.db.SelectContext(ctx, &tokens, query, email, now); err != nil {
		return nil, fmt.Errorf("find magic links: %w", err)
	}
	return tokens, nil
}

// Consume deletes a token after successful verification.
func (r *MagicLinkRepository) Consume(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM magic_link_tokens WHERE id = $1`, id); err != nil {
		return fmt.Errorf("consume magic link: %w", err)
	}
	return nil
}

// DeleteExpired purges tokens past their validity.
func (r *MagicLinkRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM magic_link_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired magic links: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
