package store

import (
	"database/sql/driver"
	"fmt"
	"math/big"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/cbbtc-swap/coordinator/chains"
	"github.com/cbbtc-swap/coordinator/token"
)

// Status is the swap.status enum of spec.md §3.2. States only ever
// advance; every Store method that changes status predicates its UPDATE
// on the expected current status so a stale or duplicate caller affects
// zero rows instead of corrupting the record.
type Status string

const (
	StatusPendingDeposit Status = "pending_deposit"
	StatusExecuting       Status = "executing"
	StatusComplete         Status = "complete"
	StatusFailed           Status = "failed"
	StatusExpired          Status = "expired"
	StatusRefundPending    Status = "refund_pending"
	StatusRefunded         Status = "refunded"
)

func (s Status) Terminal() bool {
	switch s {
	case StatusComplete, StatusFailed, StatusExpired, StatusRefunded:
		return true
	default:
		return false
	}
}

func (s Status) Value() (driver.Value, error) { return string(s), nil }

func (s *Status) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = Status(v)
	case []byte:
		*s = Status(v)
	default:
		return fmt.Errorf("store: cannot scan %T into Status", src)
	}
	return nil
}

// OrderStatus mirrors the orderbook's sub-status for an open order
// (spec.md §4.4), persisted so a SettlementPoller restart doesn't need to
// re-query the orderbook to know the last known sub-status.
type OrderStatus string

const (
	OrderPresignaturePending OrderStatus = "PRESIGNATURE_PENDING"
	OrderOpen                OrderStatus = "OPEN"
	OrderFulfilled            OrderStatus = "FULFILLED"
	OrderCancelled            OrderStatus = "CANCELLED"
	OrderExpired              OrderStatus = "EXPIRED"
)

// Swap is the atomic unit of persisted state (spec.md §3.1).
type Swap struct {
	SwapID SwapID
	Chain  chains.ID

	VaultAddress ethcommon.Address
	VaultSalt    [32]byte

	SellToken token.Token
	BuyToken  token.Token

	RecipientAddress ethcommon.Address
	RefundAddress    ethcommon.Address

	Status Status

	CreatedAt time.Time
	ExpiresAt time.Time
	UpdatedAt time.Time

	DepositTxHash  string
	DepositAmount  *big.Int

	CowOrderUID string
	OrderStatus OrderStatus

	SettlementTxHash string
	ActualBuyAmount  *big.Int

	FailureReason string

	RefundTxHash string
	RefundAmount *big.Int
}
