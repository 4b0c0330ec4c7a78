package store

import (
	"database/sql"
	"encoding/hex"
	"math/big"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/cbbtc-swap/coordinator/chains"
	"github.com/cbbtc-swap/coordinator/token"
)

// sqlRow is the flat, column-shaped mirror of Swap used for scanning and
// binding. Amounts are stored as decimal text (NUMERIC in Postgres) to
// avoid float precision loss; addresses are stored as EIP-55 checksum
// hex text and the salt as lower-case hex text.
type sqlRow struct {
	SwapID  string `db:"swap_id"`
	ChainID int64  `db:"chain_id"`

	VaultAddress string `db:"vault_address"`
	VaultSalt    string `db:"vault_salt"`

	SellToken string `db:"sell_token"`
	BuyToken  string `db:"buy_token"`

	RecipientAddress string `db:"recipient_address"`
	RefundAddress    string `db:"refund_address"`

	Status string `db:"status"`

	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
	UpdatedAt time.Time `db:"updated_at"`

	DepositTxHash sql.NullString `db:"deposit_tx_hash"`
	DepositAmount sql.NullString `db:"deposit_amount"`

	CowOrderUID sql.NullString `db:"cow_order_uid"`
	OrderStatus sql.NullString `db:"order_status"`

	SettlementTxHash sql.NullString `db:"settlement_tx_hash"`
	ActualBuyAmount  sql.NullString `db:"actual_buy_amount"`

	FailureReason sql.NullString `db:"failure_reason"`

	RefundTxHash sql.NullString `db:"refund_tx_hash"`
	RefundAmount sql.NullString `db:"refund_amount"`
}

func toRow(s *Swap) (*sqlRow, error) {
	sellTok, err := encodeToken(s.SellToken)
	if err != nil {
		return nil, err
	}
	buyTok, err := encodeToken(s.BuyToken)
	if err != nil {
		return nil, err
	}

	return &sqlRow{
		SwapID:           s.SwapID.String(),
		ChainID:          int64(s.Chain),
		VaultAddress:     s.VaultAddress.Hex(),
		VaultSalt:        hex.EncodeToString(s.VaultSalt[:]),
		SellToken:        sellTok,
		BuyToken:         buyTok,
		RecipientAddress: s.RecipientAddress.Hex(),
		RefundAddress:    s.RefundAddress.Hex(),
		Status:           string(s.Status),
		CreatedAt:        s.CreatedAt,
		ExpiresAt:        s.ExpiresAt,
		UpdatedAt:        s.UpdatedAt,
		DepositTxHash:    nullString(s.DepositTxHash),
		DepositAmount:    nullBigInt(s.DepositAmount),
		CowOrderUID:      nullString(s.CowOrderUID),
		OrderStatus:      nullString(string(s.OrderStatus)),
		SettlementTxHash: nullString(s.SettlementTxHash),
		ActualBuyAmount:  nullBigInt(s.ActualBuyAmount),
		FailureReason:    nullString(s.FailureReason),
		RefundTxHash:     nullString(s.RefundTxHash),
		RefundAmount:     nullBigInt(s.RefundAmount),
	}, nil
}

func (r *sqlRow) toSwap() (*Swap, error) {
	sellTok, err := token.Deserialize(r.SellToken)
	if err != nil {
		return nil, err
	}
	buyTok, err := token.Deserialize(r.BuyToken)
	if err != nil {
		return nil, err
	}

	saltBytes, err := hex.DecodeString(r.VaultSalt)
	if err != nil || len(saltBytes) != 32 {
		return nil, errInvalidSalt
	}
	var salt [32]byte
	copy(salt[:], saltBytes)

	return &Swap{
		SwapID:           SwapID(r.SwapID),
		Chain:            chains.ID(r.ChainID),
		VaultAddress:     ethcommon.HexToAddress(r.VaultAddress),
		VaultSalt:        salt,
		SellToken:        sellTok,
		BuyToken:         buyTok,
		RecipientAddress: ethcommon.HexToAddress(r.RecipientAddress),
		RefundAddress:    ethcommon.HexToAddress(r.RefundAddress),
		Status:           Status(r.Status),
		CreatedAt:        r.CreatedAt,
		ExpiresAt:        r.ExpiresAt,
		UpdatedAt:        r.UpdatedAt,
		DepositTxHash:    r.DepositTxHash.String,
		DepositAmount:    parseBigInt(r.DepositAmount),
		CowOrderUID:      r.CowOrderUID.String,
		OrderStatus:      OrderStatus(r.OrderStatus.String),
		SettlementTxHash: r.SettlementTxHash.String,
		ActualBuyAmount:  parseBigInt(r.ActualBuyAmount),
		FailureReason:    r.FailureReason.String,
		RefundTxHash:     r.RefundTxHash.String,
		RefundAmount:     parseBigInt(r.RefundAmount),
	}, nil
}

func encodeToken(t token.Token) (string, error) {
	return t.Serialize(), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullBigInt(b *big.Int) sql.NullString {
	if b == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: b.String(), Valid: true}
}

func parseBigInt(ns sql.NullString) *big.Int {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	v, ok := new(big.Int).SetString(ns.String, 10)
	if !ok {
		return nil
	}
	return v
}
