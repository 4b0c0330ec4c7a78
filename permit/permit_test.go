package permit

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/cbbtc-swap/coordinator/chains"
)

func TestCanonicalJSONSortsKeysRecursively(t *testing.T) {
	a := map[string]interface{}{
		"b": 1,
		"a": map[string]interface{}{"z": 1, "y": 2},
	}
	out, err := CanonicalJSON(a)
	require.NoError(t, err)
	require.Equal(t, `{"a":{"y":2,"z":1},"b":1}`, string(out))
}

func TestCanonicalJSONIsOrderIndependent(t *testing.T) {
	doc1 := map[string]interface{}{"x": 1, "y": 2}
	doc2 := map[string]interface{}{"y": 2, "x": 1}

	out1, err := CanonicalJSON(doc1)
	require.NoError(t, err)
	out2, err := CanonicalJSON(doc2)
	require.NoError(t, err)
	require.Equal(t, out1, out2)
}

func TestSignPermitIsDeterministicGivenSameInputs(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	owner := crypto.PubkeyToAddress(key.PublicKey)

	sig1, err := signPermit(chains.Base, chains.CBBTC, owner, chains.VaultRelayer, big.NewInt(0), key)
	require.NoError(t, err)
	sig2, err := signPermit(chains.Base, chains.CBBTC, owner, chains.VaultRelayer, big.NewInt(0), key)
	require.NoError(t, err)
	require.Equal(t, sig1, sig2)
	require.True(t, sig1.V == 27 || sig1.V == 28)
}

func TestSignPermitVariesWithChain(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	owner := crypto.PubkeyToAddress(key.PublicKey)

	sigEth, err := signPermit(chains.Ethereum, chains.CBBTC, owner, chains.VaultRelayer, big.NewInt(0), key)
	require.NoError(t, err)
	sigBase, err := signPermit(chains.Base, chains.CBBTC, owner, chains.VaultRelayer, big.NewInt(0), key)
	require.NoError(t, err)
	require.NotEqual(t, sigEth, sigBase)
}
