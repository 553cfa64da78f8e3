package primitives

import (
	"bytes"
	"encoding/binary"
	"sort"
)

// MarshalCanonical encodes a ValidatorSet as network(1) || session(4, LE),
// the layout used both for global-session-id sorting and for at-rest
// storage keys.
func (v ValidatorSet) MarshalCanonical() []byte {
	buf := make([]byte, 5)
	buf[0] = byte(v.Network)
	binary.LittleEndian.PutUint32(buf[1:], uint32(v.Session))
	return buf
}

// SortValidatorSets returns a new, canonically sorted copy of sets:
// lexicographic order over each entry's canonical serialization. This is
// the sort spec.md §4.1 requires before hashing a global session's id, so
// that the id is invariant under permutation of the input list.
func SortValidatorSets(sets []ValidatorSet) []ValidatorSet {
	sorted := make([]ValidatorSet, len(sets))
	copy(sorted, sets)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].MarshalCanonical(), sorted[j].MarshalCanonical()) < 0
	})
	return sorted
}

// CanonicalSetList serializes a sorted list of validator sets into the flat
// byte string that is hashed to produce a global session id.
func CanonicalSetList(sortedSets []ValidatorSet) []byte {
	buf := make([]byte, 0, len(sortedSets)*5)
	for _, set := range sortedSets {
		buf = append(buf, set.MarshalCanonical()...)
	}
	return buf
}

// cosignEncodedLen is the byte length of Cosign's canonical encoding:
// global_session[32] || block_number(u64 LE) || block_hash[32] || cosigner(u8).
const cosignEncodedLen = 32 + 8 + 32 + 1

// MarshalCanonical encodes a Cosign in the exact wire layout spec.md §6
// specifies. This is the byte string that is signed and verified; it is
// distinct from any at-rest database encoding.
func (c Cosign) MarshalCanonical() []byte {
	buf := make([]byte, cosignEncodedLen)
	copy(buf[0:32], c.GlobalSession[:])
	binary.LittleEndian.PutUint64(buf[32:40], c.BlockNumber)
	copy(buf[40:72], c.BlockHash[:])
	buf[72] = byte(c.Cosigner)
	return buf
}

// UnmarshalCosignCanonical decodes the wire layout produced by
// Cosign.MarshalCanonical.
func UnmarshalCosignCanonical(buf []byte) (Cosign, bool) {
	if len(buf) != cosignEncodedLen {
		return Cosign{}, false
	}
	var c Cosign
	copy(c.GlobalSession[:], buf[0:32])
	c.BlockNumber = binary.LittleEndian.Uint64(buf[32:40])
	copy(c.BlockHash[:], buf[40:72])
	c.Cosigner = NetworkId(buf[72])
	return c, true
}

// MarshalCanonical encodes a SignedCosign as Cosign.MarshalCanonical() ||
// signature[64].
func (s SignedCosign) MarshalCanonical() []byte {
	buf := make([]byte, 0, cosignEncodedLen+64)
	buf = append(buf, s.Cosign.MarshalCanonical()...)
	buf = append(buf, s.Signature[:]...)
	return buf
}
