package primitives

import "math/big"

// COSIGN_CONTEXT is the domain-separation tag used when signing or
// verifying a cosign (spec.md §4.4, §6).
const COSIGN_CONTEXT = "serai-cosign"

// Supermajority reports whether weight crosses strictly more than 83% of
// total, implemented per spec.md §4.3 as
// weight >= floor(total*83/100) + 1 to avoid floating point and guarantee
// strict >83%. Intermediate products are widened to 128 bits (via
// math/big) per spec.md §9's overflow guard, since total*83 can exceed
// 2^64 for a total approaching 2^63.
func Supermajority(weight, total uint64) bool {
	return weight >= supermajorityThreshold(total)
}

func supermajorityThreshold(total uint64) uint64 {
	t := new(big.Int).SetUint64(total)
	t.Mul(t, big.NewInt(83))
	t.Div(t, big.NewInt(100))
	t.Add(t, big.NewInt(1))
	return clampUint64(t)
}

// FaultThreshold reports whether weight crosses >=17% of total, the bound
// at which disagreeing cosigns indicate a Byzantine fault under the 83%
// supermajority rule (spec.md §4.4, §9 GLOSSARY).
func FaultThreshold(weight, total uint64) bool {
	return weight >= faultThreshold(total)
}

func faultThreshold(total uint64) uint64 {
	t := new(big.Int).SetUint64(total)
	t.Mul(t, big.NewInt(17))
	t.Div(t, big.NewInt(100))
	return clampUint64(t)
}

func clampUint64(v *big.Int) uint64 {
	if v.IsUint64() {
		return v.Uint64()
	}
	return ^uint64(0)
}
