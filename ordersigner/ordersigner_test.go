package ordersigner

import (
	"math/big"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/cbbtc-swap/coordinator/chains"
)

func sampleRequest() Request {
	return Request{
		Chain:          chains.Base,
		SellToken:      chains.CBBTC,
		BuyToken:       ethcommon.HexToAddress("0xbuybuybuybuybuybuybuybuybuybuybuybuybuy"),
		Receiver:       ethcommon.HexToAddress("0x00000000000000000000000000000000000099"),
		SellAmount:     big.NewInt(10_000),
		QuoteBuyAmount: big.NewInt(9_950),
		SlippageBps:    50,
		AppDataHex:     "0xabcdef0000000000000000000000000000000000000000000000000000000000",
	}
}

func TestOrderDigestIsDeterministic(t *testing.T) {
	req := sampleRequest()
	d1, err := OrderDigest(req, big.NewInt(9_950), 123456)
	require.NoError(t, err)
	d2, err := OrderDigest(req, big.NewInt(9_950), 123456)
	require.NoError(t, err)
	require.Equal(t, d1, d2)
}

func TestOrderDigestVariesWithValidTo(t *testing.T) {
	req := sampleRequest()
	d1, err := OrderDigest(req, big.NewInt(9_950), 123456)
	require.NoError(t, err)
	d2, err := OrderDigest(req, big.NewInt(9_950), 999999)
	require.NoError(t, err)
	require.NotEqual(t, d1, d2)
}

func TestPackOrderUIDLayout(t *testing.T) {
	var digest [32]byte
	for i := range digest {
		digest[i] = byte(i)
	}
	ownerBytes := make([]byte, 20)
	for i := range ownerBytes {
		ownerBytes[i] = byte(i + 100)
	}
	owner := ethcommon.BytesToAddress(ownerBytes)
	uid := PackOrderUID(digest, owner, 0x01020304)

	require.Len(t, uid, 56)
	require.Equal(t, digest[:], uid[0:32])
	require.Equal(t, owner.Bytes(), uid[32:52])
	require.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, uid[52:56])
}

func TestApplySlippageExactIntegerMath(t *testing.T) {
	got := applySlippage(big.NewInt(10_000), 50)
	require.Equal(t, big.NewInt(9_950), got)
}
