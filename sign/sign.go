// Package sign wraps the two cryptographic primitives the cosigning engine
// depends on: the Blake2s-256 global-session-id digest (spec.md §4.1) and
// schnorrkel signature verification over a cosign (spec.md §4.4, §6).
// Modeled on core/vote/vote_signer.go's pattern of wrapping one external
// crypto library behind a small, logged, error-wrapped surface; the role is
// reversed here (verify only, no local signing — cosigns are produced by
// external validator networks per spec.md §1).
package sign

import (
	"github.com/ChainSafe/go-schnorrkel"
	"github.com/cosign-network/cosigning/primitives"
	"golang.org/x/crypto/blake2s"
)

// SessionID computes the Blake2s-256 digest of the canonical, sorted
// serialization of sets, the global session id spec.md §4.1 defines. The
// id is invariant under permutation of the input list because sets is
// sorted before hashing.
func SessionID(sets []primitives.ValidatorSet) [32]byte {
	sorted := primitives.SortValidatorSets(sets)
	return blake2s.Sum256(primitives.CanonicalSetList(sorted))
}

// Verify checks a 64-byte schnorrkel signature over cosign's canonical
// encoding under domain tag primitives.COSIGN_CONTEXT, using the 32-byte
// sr25519 public key pub. It never returns an error: an unparseable key or
// signature is simply not a valid one (spec.md §4.4 step 5 treats both
// identically — an Invalid cosign).
func Verify(pub [32]byte, cosign primitives.Cosign, sig [64]byte) bool {
	var pubBytes [32]byte = pub
	publicKey := &schnorrkel.PublicKey{}
	if err := publicKey.Decode(pubBytes); err != nil {
		return false
	}

	var sigBytes [64]byte = sig
	signature := &schnorrkel.Signature{}
	if err := signature.Decode(sigBytes); err != nil {
		return false
	}

	transcript := schnorrkel.NewSigningContext([]byte(primitives.COSIGN_CONTEXT), cosign.MarshalCanonical())
	ok, err := publicKey.Verify(signature, transcript)
	if err != nil {
		return false
	}
	return ok
}
