package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/selivandex/campaign-advisor/pkg/models"
)

// OutboundCalls returns distinct contracts the given address called
// successfully within the trailing window, capped at limit to bound scan cost.
func (c *Client) OutboundCalls(ctx context.Context, address string, windowDays, limit int) ([]string, error) {
	address = strings.ToLower(address)

	var callees []string
	err := c.query(ctx, &callees, `
		SELECT to_address
		FROM traces
		WHERE from_address = ?
		  AND call_type IN ('call', 'delegatecall')
		  AND to_address != ?
		  AND status = 1
		  AND block_timestamp >= now() - INTERVAL ? DAY
		GROUP BY to_address
		LIMIT ?
	`, address, address, windowDays, limit)
	if err != nil {
		return nil, fmt.Errorf("outbound calls query: %w", err)
	}

	return callees, nil
}

// HourlyGas returns hourly average base fee (gwei) with network covariates
// over the trailing window, ordered by hour ascending.
func (c *Client) HourlyGas(ctx context.Context, windowDays int) ([]models.GasHourRow, error) {
	var rows []models.GasHourRow
	err := c.query(ctx, &rows, `
		SELECT
			toStartOfHour(block_timestamp)          AS hour,
			avg(base_fee_per_gas) / 1e9             AS avg_gwei,
			avg(gas_used / gas_limit)               AS utilization,
			sum(transaction_count)                  AS tx_count
		FROM blocks
		WHERE block_timestamp >= now() - INTERVAL ? DAY
		GROUP BY hour
		ORDER BY hour
	`, windowDays)
	if err != nil {
		return nil, fmt.Errorf("hourly gas query: %w", err)
	}

	return rows, nil
}

// WalletFirstTouch returns the first-touch funding source and first-seen
// timestamp for each wallet, limited to the trailing window. Wallets with no
// inbound transfer in the window are omitted.
func (c *Client) WalletFirstTouch(ctx context.Context, wallets []string, windowDays int) ([]models.WalletRecord, error) {
	if len(wallets) == 0 {
		return nil, nil
	}

	lowered := make([]string, len(wallets))
	for i, w := range wallets {
		lowered[i] = strings.ToLower(w)
	}

	query, args, err := sqlx.In(`
		SELECT
			to_address                       AS address,
			argMin(from_address, block_timestamp) AS funding_source,
			min(block_timestamp)             AS first_seen
		FROM transactions
		WHERE to_address IN (?)
		  AND block_timestamp >= now() - INTERVAL ? DAY
		GROUP BY to_address
	`, lowered, windowDays)
	if err != nil {
		return nil, fmt.Errorf("wallet first-touch query build: %w", err)
	}

	var records []models.WalletRecord
	if err := c.query(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("wallet first-touch query: %w", err)
	}

	return records, nil
}

// CohortRows returns per-acquisition-date cohort sizes and day 1/7/30
// retained counts for users of the target contract on/after startDate.
func (c *Client) CohortRows(ctx context.Context, contract string, startDate time.Time) ([]models.CohortRow, error) {
	contract = strings.ToLower(contract)
	start := startDate.UTC().Format("2006-01-02")

	var rows []models.CohortRow
	err := c.query(ctx, &rows, `
		WITH
		acquisition AS (
			SELECT
				from_address            AS user,
				min(toDate(block_timestamp)) AS acquisition_date
			FROM transactions
			WHERE to_address = ?
			  AND toDate(block_timestamp) >= toDate(?)
			GROUP BY user
		),
		activity AS (
			SELECT DISTINCT
				from_address            AS user,
				toDate(block_timestamp) AS activity_date
			FROM transactions
			WHERE from_address IN (SELECT user FROM acquisition)
			  AND toDate(block_timestamp) >= toDate(?)
		)
		SELECT
			ac.acquisition_date                                                    AS acquisition_date,
			count(DISTINCT ac.user)                                                AS cohort_size,
			count(DISTINCT if(dateDiff('day', ac.acquisition_date, a.activity_date) = 1,  a.user, NULL)) AS day1_retained,
			count(DISTINCT if(dateDiff('day', ac.acquisition_date, a.activity_date) = 7,  a.user, NULL)) AS day7_retained,
			count(DISTINCT if(dateDiff('day', ac.acquisition_date, a.activity_date) = 30, a.user, NULL)) AS day30_retained
		FROM acquisition ac
		LEFT JOIN activity a ON a.user = ac.user
		GROUP BY ac.acquisition_date
		ORDER BY ac.acquisition_date
	`, contract, start, start)
	if err != nil {
		return nil, fmt.Errorf("cohort query: %w", err)
	}

	return rows, nil
}

// HourlyVolume returns hour-of-day transaction counts for the target
// contract over the trailing window, ordered by volume descending.
func (c *Client) HourlyVolume(ctx context.Context, contract string, windowDays int) ([]models.HourlyVolumeRow, error) {
	contract = strings.ToLower(contract)

	var rows []models.HourlyVolumeRow
	err := c.query(ctx, &rows, `
		SELECT
			toHour(block_timestamp) AS hour_of_day,
			count()                 AS tx_count
		FROM transactions
		WHERE to_address = ?
		  AND block_timestamp >= now() - INTERVAL ? DAY
		GROUP BY hour_of_day
		ORDER BY tx_count DESC
	`, contract, windowDays)
	if err != nil {
		return nil, fmt.Errorf("hourly volume query: %w", err)
	}

	return rows, nil
}
