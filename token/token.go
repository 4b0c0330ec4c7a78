// Package token implements the Token sum type: an ERC-20 address or the
// sentinel meaning native ETH on the buy side of a swap (spec.md §6.1,
// §9 "Dynamic union types → tagged variants").
package token

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/cbbtc-swap/coordinator/chains"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

type Kind string

const (
	KindERC20 Kind = "erc20"
	KindEther Kind = "ether"
)

var ErrUnknownKind = errors.New("unknown token kind")

// Token is a tagged variant: Kind discriminates whether Address is
// meaningful. Every call site must exhaust both variants rather than
// branch on Address being the zero value.
type Token struct {
	Kind    Kind
	Address ethcommon.Address // zero value for KindEther
}

func ERC20(addr ethcommon.Address) Token {
	return Token{Kind: KindERC20, Address: addr}
}

func Ether() Token {
	return Token{Kind: KindEther}
}

// OnChainAddress returns the address to place in an order's buyToken/
// sellToken field: the real ERC-20 address, or the native sentinel.
func (t Token) OnChainAddress() ethcommon.Address {
	if t.Kind == KindEther {
		return chains.NativeSentinel
	}
	return t.Address
}

// wireToken mirrors the JSON request/response shape of spec.md §6.1:
// {"type":"erc20","address":"0x..."} or {"type":"ether"}.
type wireToken struct {
	Type    string `json:"type"`
	Address string `json:"address,omitempty"`
}

func (t Token) MarshalJSON() ([]byte, error) {
	w := wireToken{Type: string(t.Kind)}
	if t.Kind == KindERC20 {
		w.Address = t.Address.Hex()
	}
	return json.Marshal(w)
}

func (t *Token) UnmarshalJSON(data []byte) error {
	var w wireToken
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch Kind(strings.ToLower(w.Type)) {
	case KindEther:
		*t = Ether()
		return nil
	case KindERC20:
		if !ethcommon.IsHexAddress(w.Address) {
			return errors.New("erc20 token requires a valid address")
		}
		*t = ERC20(ethcommon.HexToAddress(w.Address))
		return nil
	default:
		return ErrUnknownKind
	}
}

// Serialize/Deserialize round-trip the descriptor to the compact string
// form persisted in the Store (spec.md §3.1 "serialized token descriptor").
func (t Token) Serialize() string {
	if t.Kind == KindEther {
		return "ether"
	}
	return "erc20:" + t.Address.Hex()
}

func Deserialize(s string) (Token, error) {
	if s == "ether" {
		return Ether(), nil
	}
	addr, ok := strings.CutPrefix(s, "erc20:")
	if !ok || !ethcommon.IsHexAddress(addr) {
		return Token{}, ErrUnknownKind
	}
	return ERC20(ethcommon.HexToAddress(addr)), nil
}
