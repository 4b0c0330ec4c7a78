// Package store implements C2 (spec.md §4.2): the narrow, status-gated
// query surface that is the only way a Swap's state machine can advance.
// Every method that changes status predicates its UPDATE on the expected
// current status, so duplicate delivery affects zero rows rather than
// corrupting the record (spec.md §3.3).
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/jmoiron/sqlx"

	"github.com/cbbtc-swap/coordinator/chains"
)

type Store struct {
	db    *sqlx.DB
	stmts *stmtCache
}

func Open(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	return &Store{db: db, stmts: newStmtCache(db)}, nil
}

func (s *Store) Close() error {
	s.stmts.clear()
	return s.db.Close()
}

func (s *Store) Create(ctx context.Context, sw *Swap) error {
	row, err := toRow(sw)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO swaps (
			swap_id, chain_id, vault_address, vault_salt,
			sell_token, buy_token, recipient_address, refund_address,
			status, created_at, expires_at, updated_at
		) VALUES (
			:swap_id, :chain_id, :vault_address, :vault_salt,
			:sell_token, :buy_token, :recipient_address, :refund_address,
			:status, :created_at, :expires_at, :updated_at
		)`

	_, err = s.db.NamedExecContext(ctx, query, row)
	return err
}

func (s *Store) ByID(ctx context.Context, id SwapID) (*Swap, error) {
	stmt, err := s.stmts.prepare(`SELECT * FROM swaps WHERE swap_id = $1`)
	if err != nil {
		return nil, err
	}

	var row sqlRow
	if err := stmt.GetContext(ctx, &row, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return row.toSwap()
}

func (s *Store) ByVault(ctx context.Context, vault string) (*Swap, error) {
	stmt, err := s.stmts.prepare(`SELECT * FROM swaps WHERE vault_address = $1`)
	if err != nil {
		return nil, err
	}

	var row sqlRow
	if err := stmt.GetContext(ctx, &row, vault); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return row.toSwap()
}

// PendingByChain returns rows with status=pending_deposit that have not
// yet expired, ordered so older swaps are dispatched first.
func (s *Store) PendingByChain(ctx context.Context, chain chains.ID) ([]*Swap, error) {
	const query = `
		SELECT * FROM swaps
		WHERE chain_id = $1 AND status = $2 AND expires_at > now()
		ORDER BY created_at ASC`

	var rows []sqlRow
	if err := s.db.SelectContext(ctx, &rows, query, int64(chain), StatusPendingDeposit); err != nil {
		return nil, err
	}
	return toSwaps(rows)
}

// Executing returns every row currently in the executing status, for the
// SettlementPoller's per-tick sweep.
func (s *Store) Executing(ctx context.Context) ([]*Swap, error) {
	const query = `SELECT * FROM swaps WHERE status = $1 ORDER BY updated_at ASC`

	var rows []sqlRow
	if err := s.db.SelectContext(ctx, &rows, query, StatusExecuting); err != nil {
		return nil, err
	}
	return toSwaps(rows)
}

// MarkExecuting advances pending_deposit -> executing. Returns
// ErrStateConflict if the row was not in pending_deposit (a duplicate
// DepositPoller dispatch), which the orchestrator treats as "abort, a
// sibling tick already claimed this swap" (spec.md §4.10 step 2).
func (s *Store) MarkExecuting(ctx context.Context, id SwapID) error {
	const query = `
		UPDATE swaps SET status = $1, updated_at = now()
		WHERE swap_id = $2 AND status = $3`

	return s.gatedExec(ctx, query, StatusExecuting, id.String(), StatusPendingDeposit)
}

// RecordDeposit stores the observed deposit; it does not itself change
// status (markExecuting does that) and is not status-gated. depositTxHash
// is passed through as the orchestrator provides it — empty today, see
// SPEC_FULL.md §9.
func (s *Store) RecordDeposit(ctx context.Context, id SwapID, depositTxHash string, amount *big.Int) error {
	const query = `
		UPDATE swaps SET deposit_tx_hash = $1, deposit_amount = $2, updated_at = now()
		WHERE swap_id = $3`

	_, err := s.db.ExecContext(ctx, query, nullString(depositTxHash), nullBigInt(amount), id.String())
	return err
}

// SaveOrderUID persists the orderbook-assigned UID and sets the initial
// order sub-status to OPEN (spec.md §4.10 step 7).
func (s *Store) SaveOrderUID(ctx context.Context, id SwapID, uid string) error {
	const query = `
		UPDATE swaps SET cow_order_uid = $1, order_status = $2, updated_at = now()
		WHERE swap_id = $3 AND status = $4`

	return s.gatedExec(ctx, query, uid, string(OrderOpen), id.String(), StatusExecuting)
}

// MarkFailed is the ExecutionFailure transition: executing -> failed, or
// (per the Open Question resolution in SPEC_FULL.md §9) a stuck executing
// row with no order UID past the grace window.
func (s *Store) MarkFailed(ctx context.Context, id SwapID, reason string) error {
	const query = `
		UPDATE swaps SET status = $1, failure_reason = $2, updated_at = now()
		WHERE swap_id = $3 AND status = $4`

	return s.gatedExec(ctx, query, StatusFailed, reason, id.String(), StatusExecuting)
}

// MarkNeedsRefund is the executing -> refund_pending transition, taken
// when an order reaches EXPIRED or CANCELLED without ever filling.
func (s *Store) MarkNeedsRefund(ctx context.Context, id SwapID, reason string) error {
	const query = `
		UPDATE swaps SET status = $1, failure_reason = $2, updated_at = now()
		WHERE swap_id = $3 AND status = $4`

	return s.gatedExec(ctx, query, StatusRefundPending, reason, id.String(), StatusExecuting)
}

// MarkRefunded is the only caller of refund_pending -> refunded, invoked
// exclusively by the out-of-band recovery tool (SPEC_FULL.md C15) once an
// operator has broadcast the on-chain refund themselves.
func (s *Store) MarkRefunded(ctx context.Context, id SwapID, refundTxHash string, amount *big.Int) error {
	const query = `
		UPDATE swaps SET status = $1, refund_tx_hash = $2, refund_amount = $3, updated_at = now()
		WHERE swap_id = $4 AND status = $5`

	return s.gatedExec(ctx, query, StatusRefunded, nullString(refundTxHash), nullBigInt(amount), id.String(), StatusRefundPending)
}

// UpdateOrderStatus records the orderbook's terminal or sub-status
// mapping of spec.md §4.9. A FULFILLED update also advances to complete;
// an OPEN/PRESIGNATURE_PENDING update only persists the sub-status when
// it changed and does not touch the top-level status.
func (s *Store) UpdateOrderStatus(ctx context.Context, id SwapID, orderStatus OrderStatus, txHash string, actualBuyAmount *big.Int) error {
	switch orderStatus {
	case OrderFulfilled:
		const query = `
			UPDATE swaps SET
				status = $1, order_status = $2, settlement_tx_hash = $3, actual_buy_amount = $4, updated_at = now()
			WHERE swap_id = $5 AND status = $6`
		return s.gatedExec(ctx, query, StatusComplete, string(orderStatus), nullString(txHash), nullBigInt(actualBuyAmount), id.String(), StatusExecuting)

	default:
		const query = `
			UPDATE swaps SET order_status = $1, updated_at = now()
			WHERE swap_id = $2 AND status = $3 AND order_status IS DISTINCT FROM $1`
		return s.gatedExec(ctx, query, string(orderStatus), id.String(), StatusExecuting)
	}
}

// ExpireOverdue bulk-moves pending_deposit rows whose expires_at has
// passed into expired, and reports how many rows moved.
func (s *Store) ExpireOverdue(ctx context.Context) (int64, error) {
	const query = `
		UPDATE swaps SET status = $1, updated_at = now()
		WHERE status = $2 AND expires_at < now()`

	res, err := s.db.ExecContext(ctx, query, StatusExpired, StatusPendingDeposit)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// StuckExecuting returns executing rows with no order UID whose
// updated_at is older than olderThan — the Open Question resolution of
// SPEC_FULL.md §9.
func (s *Store) StuckExecuting(ctx context.Context, olderThan time.Duration) ([]*Swap, error) {
	const query = `
		SELECT * FROM swaps
		WHERE status = $1 AND cow_order_uid IS NULL AND updated_at < now() - $2::interval`

	var rows []sqlRow
	if err := s.db.SelectContext(ctx, &rows, query, StatusExecuting, fmt.Sprintf("%d seconds", int(olderThan.Seconds()))); err != nil {
		return nil, err
	}
	return toSwaps(rows)
}

// StatusChainCount is one cell of countsByStatusAndChain's aggregation.
type StatusChainCount struct {
	ChainID chains.ID `db:"chain_id"`
	Status  Status    `db:"status"`
	Count   int64     `db:"count"`
}

func (s *Store) CountsByStatusAndChain(ctx context.Context) ([]StatusChainCount, error) {
	const query = `SELECT chain_id, status, count(*) AS count FROM swaps GROUP BY chain_id, status`

	var out []StatusChainCount
	if err := s.db.SelectContext(ctx, &out, query); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) gatedExec(ctx context.Context, query string, args ...interface{}) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStateConflict
	}
	return nil
}

func toSwaps(rows []sqlRow) ([]*Swap, error) {
	out := make([]*Swap, 0, len(rows))
	for i := range rows {
		sw, err := rows[i].toSwap()
		if err != nil {
			return nil, err
		}
		out = append(out, sw)
	}
	return out, nil
}
