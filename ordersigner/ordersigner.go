// Package ordersigner is C7 (spec.md §4.7): builds the GPv2 sell order,
// signs it under the settlement contract's EIP-712 domain, uploads the
// app-data document, and submits the signed order to the orderbook.
package ordersigner

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/cbbtc-swap/coordinator/chains"
	"github.com/cbbtc-swap/coordinator/orderbook"
)

// OrderHorizon is how far in the future validTo is set, per spec.md §4.7.
const OrderHorizon = 24 * time.Hour

// Request is everything OrderSigner needs to build, sign, and submit
// one order (spec.md §4.7's field table).
type Request struct {
	Chain           chains.ID
	SellToken       ethcommon.Address
	BuyToken        ethcommon.Address // already resolved to the native sentinel for ether
	Receiver        ethcommon.Address
	SellAmount      *big.Int
	QuoteBuyAmount  *big.Int
	SlippageBps     int
	AppDataHex      string
	AppDataDoc      []byte
	VaultKey        *ecdsa.PrivateKey
}

type Signer struct {
	orderbook *orderbook.Client
}

func New(ob *orderbook.Client) *Signer {
	return &Signer{orderbook: ob}
}

// orderTypes is the GPv2Order.Data EIP-712 struct the settlement
// contract and the orderbook both expect (spec.md §4.7).
var orderTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	"Order": {
		{Name: "sellToken", Type: "address"},
		{Name: "buyToken", Type: "address"},
		{Name: "receiver", Type: "address"},
		{Name: "sellAmount", Type: "uint256"},
		{Name: "buyAmount", Type: "uint256"},
		{Name: "validTo", Type: "uint32"},
		{Name: "appData", Type: "bytes32"},
		{Name: "feeAmount", Type: "uint256"},
		{Name: "kind", Type: "string"},
		{Name: "partiallyFillable", Type: "bool"},
		{Name: "sellTokenBalance", Type: "string"},
		{Name: "buyTokenBalance", Type: "string"},
	},
}

// SignAndSubmit runs spec.md §4.7: apply slippage to the quote's buy
// amount, build the GPv2 order, sign it under the settlement domain,
// upload the app-data document, submit, and return the assigned UID.
func (s *Signer) SignAndSubmit(ctx context.Context, req Request) (string, error) {
	buyAmount := applySlippage(req.QuoteBuyAmount, req.SlippageBps)
	validTo := uint32(time.Now().Add(OrderHorizon).Unix())
	owner := crypto.PubkeyToAddress(req.VaultKey.PublicKey)

	sig, err := s.sign(req.Chain, req, buyAmount, validTo, req.VaultKey)
	if err != nil {
		return "", fmt.Errorf("ordersigner: sign: %w", err)
	}

	if err := s.orderbook.UploadAppData(ctx, req.Chain, req.AppDataHex, req.AppDataDoc); err != nil {
		return "", fmt.Errorf("ordersigner: upload app-data: %w", err)
	}

	uid, err := s.orderbook.Submit(ctx, req.Chain, orderbook.Order{
		SellToken:         req.SellToken.Hex(),
		BuyToken:          req.BuyToken.Hex(),
		Receiver:          req.Receiver.Hex(),
		SellAmount:        req.SellAmount.String(),
		BuyAmount:         buyAmount.String(),
		ValidTo:           validTo,
		AppData:           req.AppDataHex,
		FeeAmount:         "0",
		Kind:              "sell",
		PartiallyFillable: false,
		SellTokenBalance:  "erc20",
		BuyTokenBalance:   "erc20",
		SigningScheme:     "eip712",
		Signature:         "0x" + hex.EncodeToString(sig),
		From:              owner.Hex(),
	})
	if err != nil {
		return "", fmt.Errorf("ordersigner: submit: %w", err)
	}
	return uid, nil
}

func (s *Signer) sign(chain chains.ID, req Request, buyAmount *big.Int, validTo uint32, key *ecdsa.PrivateKey) ([]byte, error) {
	typedData := apitypes.TypedData{
		Types:       orderTypes,
		PrimaryType: "Order",
		Domain: apitypes.TypedDataDomain{
			Name:              chains.SettlementDomainName,
			Version:           chains.SettlementDomainVersion,
			ChainId:           chainID256(chain),
			VerifyingContract: chains.SettlementContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"sellToken":         req.SellToken.Hex(),
			"buyToken":          req.BuyToken.Hex(),
			"receiver":          req.Receiver.Hex(),
			"sellAmount":        req.SellAmount.String(),
			"buyAmount":         buyAmount.String(),
			"validTo":           strconv.FormatUint(uint64(validTo), 10),
			"appData":           req.AppDataHex,
			"feeAmount":         "0",
			"kind":              "sell",
			"partiallyFillable": false,
			"sellTokenBalance":  "erc20",
			"buyTokenBalance":   "erc20",
		},
	}

	rawHash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, err
	}

	sig, err := crypto.Sign(rawHash, key)
	if err != nil {
		return nil, err
	}
	sig[64] += 27
	return sig, nil
}

func chainID256(chain chains.ID) *math.HexOrDecimal256 {
	return (*math.HexOrDecimal256)(new(big.Int).SetUint64(uint64(chain)))
}

func applySlippage(buyAmount *big.Int, bps int) *big.Int {
	num := new(big.Int).Mul(buyAmount, big.NewInt(10_000-int64(bps)))
	return num.Div(num, big.NewInt(10_000))
}

// PackOrderUID builds the 56-byte order UID the settlement contract and
// the orderbook API both use: digest(32) || owner(20) || validTo(4)
// (spec.md §8's round-trip law, the ethflow-verification property).
func PackOrderUID(digest [32]byte, owner ethcommon.Address, validTo uint32) []byte {
	uid := make([]byte, 56)
	copy(uid[0:32], digest[:])
	copy(uid[32:52], owner[:])
	uid[52] = byte(validTo >> 24)
	uid[53] = byte(validTo >> 16)
	uid[54] = byte(validTo >> 8)
	uid[55] = byte(validTo)
	return uid
}

// OrderDigest computes the EIP-712 hashStruct of the Order message alone
// (no domain separator) — the first 32 bytes PackOrderUID consumes.
func OrderDigest(req Request, buyAmount *big.Int, validTo uint32) ([32]byte, error) {
	typedData := apitypes.TypedData{
		Types:       orderTypes,
		PrimaryType: "Order",
		Domain: apitypes.TypedDataDomain{
			Name:              chains.SettlementDomainName,
			Version:           chains.SettlementDomainVersion,
			ChainId:           chainID256(req.Chain),
			VerifyingContract: chains.SettlementContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"sellToken":         req.SellToken.Hex(),
			"buyToken":          req.BuyToken.Hex(),
			"receiver":          req.Receiver.Hex(),
			"sellAmount":        req.SellAmount.String(),
			"buyAmount":         buyAmount.String(),
			"validTo":           strconv.FormatUint(uint64(validTo), 10),
			"appData":           req.AppDataHex,
			"feeAmount":         "0",
			"kind":              "sell",
			"partiallyFillable": false,
			"sellTokenBalance":  "erc20",
			"buyTokenBalance":   "erc20",
		},
	}

	hashed, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return [32]byte{}, err
	}
	var out [32]byte
	copy(out[:], hashed)
	return out, nil
}
