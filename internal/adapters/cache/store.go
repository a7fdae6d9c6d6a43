// Package cache persists pillar results between runs so that repeated
// analyses skip the expensive ledger scans. Results are stored as JSONB and
// must round-trip every field of each pillar's result struct losslessly.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/selivandex/campaign-advisor/pkg/logger"
)

// Pillar identifiers used as cache namespaces.
const (
	PillarRisk       = "pillar1_risk"
	PillarGas        = "pillar2_gas"
	PillarGasHistory = "pillar2_gas_history"
	PillarBehavior   = "pillar3_user"
)

// Store handles cache reads and writes over Postgres
type Store struct {
	db *sqlx.DB
}

// NewStore creates new cache store
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Save persists one pillar result under (pillar, key), replacing any
// previous entry for the same key.
func (s *Store) Save(ctx context.Context, pillar, key string, result any) error {
	payload, err := Encode(result)
	if err != nil {
		return fmt.Errorf("failed to encode %s result: %w", pillar, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pillar_cache (pillar, cache_key, payload)
		VALUES ($1, $2, $3)
		ON CONFLICT (pillar, cache_key)
		DO UPDATE SET payload = EXCLUDED.payload, created_at = now()
	`, pillar, key, payload)
	if err != nil {
		return fmt.Errorf("failed to save %s cache entry: %w", pillar, err)
	}

	logger.Debug("cached pillar result",
		zap.String("pillar", pillar),
		zap.String("key", key),
	)

	return nil
}

// Load reads one pillar result into out. Returns false on cache miss.
func (s *Store) Load(ctx context.Context, pillar, key string, out any) (bool, error) {
	var payload []byte
	err := s.db.GetContext(ctx, &payload, `
		SELECT payload FROM pillar_cache
		WHERE pillar = $1 AND cache_key = $2
	`, pillar, key)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load %s cache entry: %w", pillar, err)
	}

	if err := Decode(payload, out); err != nil {
		return false, fmt.Errorf("failed to decode %s cache entry: %w", pillar, err)
	}

	logger.Debug("cache hit",
		zap.String("pillar", pillar),
		zap.String("key", key),
	)

	return true, nil
}

// Encode serializes a pillar result for storage
func Encode(result any) ([]byte, error) {
	return json.Marshal(result)
}

// Decode deserializes a stored pillar result
func Decode(payload []byte, out any) error {
	return json.Unmarshal(payload, out)
}
