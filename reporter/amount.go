package reporter

import "math/big"

// parseAmount accepts only a positive decimal integer string — the wire
// format every amount field in this API uses (spec.md §6.1), never
// scientific notation or a float.
func parseAmount(s string) (*big.Int, bool) {
	if s == "" {
		return nil, false
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() <= 0 {
		return nil, false
	}
	return v, true
}
