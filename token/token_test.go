package token

import (
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestSerializeRoundTrip(t *testing.T) {
	cases := []Token{
		Ether(),
		ERC20(ethcommon.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")),
	}
	for _, tok := range cases {
		got, err := Deserialize(tok.Serialize())
		assert.NoError(t, err)
		assert.Equal(t, tok, got)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	in := ERC20(ethcommon.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"))
	b, err := in.MarshalJSON()
	assert.NoError(t, err)

	var out Token
	assert.NoError(t, out.UnmarshalJSON(b))
	assert.Equal(t, in, out)
}

func TestEtherOnChainAddressUsesSentinel(t *testing.T) {
	assert.Equal(t, "0xEeeeeEeeeEeEeeeeeeeeeeeeeeeeeeeeeeeeEEeE", Ether().OnChainAddress().Hex())
}

func TestUnmarshalUnknownKind(t *testing.T) {
	var tok Token
	err := tok.UnmarshalJSON([]byte(`{"type":"nft"}`))
	assert.ErrorIs(t, err, ErrUnknownKind)
}
