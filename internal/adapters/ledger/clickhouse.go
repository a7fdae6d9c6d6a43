// Package ledger executes bounded, cost-capped analytical queries over
// historical chain data stored in ClickHouse. Every query goes through a
// pre-flight EXPLAIN ESTIMATE; anything over the configured scan ceiling is
// aborted before execution.
package ledger

import (
	"context"
	"fmt"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/selivandex/campaign-advisor/internal/adapters/config"
	"github.com/selivandex/campaign-advisor/pkg/logger"
	"github.com/selivandex/campaign-advisor/pkg/models"
)

// Client handles ledger data operations
type Client struct {
	db           *sqlx.DB
	maxScanRows  uint64
	queryTimeout time.Duration
}

// New creates new ledger client
func New(cfg *config.LedgerConfig) (*Client, error) {
	db, err := sqlx.Connect("clickhouse", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ledger store: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)

	logger.Info("ledger connection established",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
	)

	return &Client{
		db:           db,
		maxScanRows:  cfg.MaxScanRows,
		queryTimeout: cfg.QueryTimeout,
	}, nil
}

// NewWithDB creates a ledger client over an existing connection
func NewWithDB(db *sqlx.DB, maxScanRows uint64, queryTimeout time.Duration) *Client {
	return &Client{db: db, maxScanRows: maxScanRows, queryTimeout: queryTimeout}
}

// Close closes the ledger connection
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Ping checks ledger availability
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ledger ping failed: %w", err)
	}
	return nil
}

type scanEstimate struct {
	Database string `db:"database"`
	Table    string `db:"table"`
	Parts    uint64 `db:"parts"`
	Rows     uint64 `db:"rows"`
	Marks    uint64 `db:"marks"`
}

// estimateScan runs the dry-run cost check for a query. Returns
// models.ErrCostLimit when the estimated row scan exceeds the ceiling.
func (c *Client) estimateScan(ctx context.Context, query string, args ...any) error {
	var estimates []scanEstimate
	if err := c.db.SelectContext(ctx, &estimates, "EXPLAIN ESTIMATE "+query, args...); err != nil {
		return fmt.Errorf("failed to estimate query cost: %w", err)
	}

	var total uint64
	for _, e := range estimates {
		total += e.Rows
	}

	if total > c.maxScanRows {
		logger.Warn("query aborted by scan ceiling",
			zap.Uint64("estimated_rows", total),
			zap.Uint64("ceiling", c.maxScanRows),
		)
		return fmt.Errorf("estimated scan of %d rows exceeds ceiling of %d: %w",
			total, c.maxScanRows, models.ErrCostLimit)
	}

	logger.Debug("query cost estimate within ceiling",
		zap.Uint64("estimated_rows", total),
	)

	return nil
}

// query runs the estimate-then-execute cycle into dest.
func (c *Client) query(ctx context.Context, dest any, query string, args ...any) error {
	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	if err := c.estimateScan(ctx, query, args...); err != nil {
		return err
	}

	if err := c.db.SelectContext(ctx, dest, query, args...); err != nil {
		return fmt.Errorf("ledger query failed: %w", err)
	}

	return nil
}
