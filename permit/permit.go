// Package permit is C6 (spec.md §4.6): builds the EIP-2612 permit that
// rides as a pre-hook in the order's app-data document, plus the
// app-data document itself and its deterministic hash.
package permit

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/cbbtc-swap/coordinator/chains"
	"github.com/cbbtc-swap/coordinator/contracts/erc20"
)

// MaxUint256 is used for both the permit's value and deadline, per
// spec.md §4.6 step 2: an unlimited, non-expiring allowance since the
// permit and the order it unlocks are consumed together, atomically, by
// the solver.
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// AppCode is the fixed appCode field spec.md §4.6 step 4 requires.
const AppCode = "cbbtc-swap-coordinator"

// Signature is the split (v, r, s) form the ERC-20 permit ABI expects.
type Signature struct {
	V uint8
	R [32]byte
	S [32]byte
}

// Built is everything PermitBuilder produces for one swap's execution.
type Built struct {
	Calldata       []byte
	AppDataHex     string
	AppDataDoc     json.RawMessage
}

// Builder fetches on-chain permit nonces and signs the EIP-712 Permit
// message with the vault's derived key.
type Builder struct {
	backend bind.ContractBackend
}

func New(backend bind.ContractBackend) *Builder {
	return &Builder{backend: backend}
}

// Build runs spec.md §4.6 steps 1-5: fetch the nonce, sign the permit,
// encode its calldata, assemble the app-data document, and hash it.
func (b *Builder) Build(ctx context.Context, chain chains.ID, sellToken ethcommon.Address, vaultKey *ecdsa.PrivateKey, slippageBps int) (*Built, error) {
	vaultAddr := crypto.PubkeyToAddress(vaultKey.PublicKey)

	token := erc20.New(sellToken, b.backend)
	nonce, err := token.Nonces(ctx, vaultAddr)
	if err != nil {
		return nil, fmt.Errorf("permit: fetch nonce: %w", err)
	}

	sig, err := signPermit(chain, sellToken, vaultAddr, chains.VaultRelayer, nonce, vaultKey)
	if err != nil {
		return nil, fmt.Errorf("permit: sign: %w", err)
	}

	calldata, err := erc20.PackPermit(vaultAddr, chains.VaultRelayer, MaxUint256, MaxUint256, sig.V, sig.R, sig.S)
	if err != nil {
		return nil, fmt.Errorf("permit: pack calldata: %w", err)
	}

	doc := buildAppDataDoc(sellToken, calldata, slippageBps)
	canonical, err := CanonicalJSON(doc)
	if err != nil {
		return nil, fmt.Errorf("permit: canonicalize app-data: %w", err)
	}
	hash := crypto.Keccak256Hash(canonical)

	return &Built{
		Calldata:   calldata,
		AppDataHex: hash.Hex(),
		AppDataDoc: canonical,
	}, nil
}

func signPermit(chain chains.ID, sellToken, owner, spender ethcommon.Address, nonce *big.Int, key *ecdsa.PrivateKey) (Signature, error) {
	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Permit": {
				{Name: "owner", Type: "address"},
				{Name: "spender", Type: "address"},
				{Name: "value", Type: "uint256"},
				{Name: "nonce", Type: "uint256"},
				{Name: "deadline", Type: "uint256"},
			},
		},
		PrimaryType: "Permit",
		Domain: apitypes.TypedDataDomain{
			Name:              chains.CBBTCPermitName,
			Version:           chains.CBBTCPermitVersion,
			ChainId:           math256(chain),
			VerifyingContract: sellToken.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"owner":    owner.Hex(),
			"spender":  spender.Hex(),
			"value":    MaxUint256.String(),
			"nonce":    nonce.String(),
			"deadline": MaxUint256.String(),
		},
	}

	rawHash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return Signature{}, err
	}

	sig, err := crypto.Sign(rawHash, key)
	if err != nil {
		return Signature{}, err
	}

	var out Signature
	copy(out.R[:], sig[0:32])
	copy(out.S[:], sig[32:64])
	out.V = sig[64] + 27
	return out, nil
}

func math256(chain chains.ID) *math.HexOrDecimal256 {
	return (*math.HexOrDecimal256)(new(big.Int).SetUint64(uint64(chain)))
}

type preHook struct {
	Target   string `json:"target"`
	CallData string `json:"callData"`
	GasLimit string `json:"gasLimit"`
}

func buildAppDataDoc(sellToken ethcommon.Address, permitCalldata []byte, slippageBps int) map[string]interface{} {
	return map[string]interface{}{
		"version":  "1.1.0",
		"appCode":  AppCode,
		"metadata": map[string]interface{}{
			"hooks": map[string]interface{}{
				"pre": []preHook{
					{Target: sellToken.Hex(), CallData: "0x" + ethcommon.Bytes2Hex(permitCalldata), GasLimit: "80000"},
				},
			},
			"orderClass": map[string]interface{}{"orderClass": "market"},
			"quote": map[string]interface{}{
				"slippageBips":  slippageBps,
				"smartSlippage": true,
			},
		},
	}
}

// CanonicalJSON deterministically stringifies v: recursively sorted
// object keys, no inserted whitespace. Because the app-data hash commits
// to these exact bytes, any two logically equal documents must produce
// byte-identical output (spec.md §4.6 step 5, §9 "Deterministic JSON").
func CanonicalJSON(v interface{}) ([]byte, error) {
	normalized, err := normalize(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(normalized)
}

// normalize flattens v into plain map[string]interface{} / []interface{}
// values via a marshal/unmarshal pass, so that nested structs (whose
// fields json.Marshal emits in declaration order) become maps, whose keys
// encoding/json emits in sorted order.
func normalize(v interface{}) (interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return sortKeys(generic), nil
}

// sortKeys is a no-op for encoding/json's own map marshaling (it already
// emits sorted keys for map[string]interface{}), but makes the ordering
// an explicit, testable contract rather than an incidental stdlib detail.
func sortKeys(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(map[string]interface{}, len(val))
		for _, k := range keys {
			out[k] = sortKeys(val[k])
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, e := range val {
			out[i] = sortKeys(e)
		}
		return out
	default:
		return val
	}
}
