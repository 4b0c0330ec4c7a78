package common

import (
	"errors"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

var ErrInvalidAddress = errors.New("invalid evm address")

// ParseChecksumAddress validates hexAddr as a well-formed EVM address and
// returns it normalized to EIP-55 checksum form.
func ParseChecksumAddress(hexAddr string) (ethcommon.Address, error) {
	if !ethcommon.IsHexAddress(hexAddr) {
		return ethcommon.Address{}, ErrInvalidAddress
	}
	return ethcommon.HexToAddress(hexAddr), nil
}
