package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/faucet-intake/internal/types"
	"github.com/faucet-intake/internal/validation"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is the subset of pgxpool.Pool the repository needs
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ClaimRecordRepository stores claim records in the claim_records table
type ClaimRecordRepository struct {
	db querier
}

// NewClaimRecordRepository creates a new claim record repository
func NewClaimRecordRepository(db *PostgresDB) *ClaimRecordRepository {
	return &ClaimRecordRepository{db: db.Pool()}
}

// GetLastClaim returns the claim record for address, or nil if it never claimed
func (r *ClaimRecordRepository) GetLastClaim(ctx context.Context, address string) (*types.ClaimRecord, error) {
	query := `
		SELECT last_claimed_at
		FROM claim_records
		WHERE address = $1
	`

	var lastClaimedAt time.Time
	err := r.db.QueryRow(ctx, query, validation.NormalizeAddress(address)).Scan(&lastClaimedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get claim record: %w", err)
	}

	return &types.ClaimRecord{
		Address:       address,
		LastClaimedAt: lastClaimedAt.UTC(),
	}, nil
}

// RecordClaim upserts the last claim time for address
func (r *ClaimRecordRepository) RecordClaim(ctx context.Context, address string, at time.Time) error {
	query := `
		INSERT INTO claim_records (address, last_claimed_at, claim_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (address) DO UPDATE
		SET last_claimed_at = EXCLUDED.last_claimed_at,
		    claim_count = claim_records.claim_count + 1
	`

	if _, err := r.db.Exec(ctx, query, validation.NormalizeAddress(address), at.UTC()); err != nil {
		return fmt.Errorf("failed to upsert claim record: %w", err)
	}

	return nil
}
