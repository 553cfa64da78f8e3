package cosigndb

import "github.com/ethereum/go-ethereum/rlp"

// PutRLP stores v at key using RLP, the at-rest encoding this repo uses for
// every durable index value (spec.md §3). This is distinct from the
// canonical wire encoding primitives.Cosign.MarshalCanonical produces,
// which is what gets signed/verified, never what's written to the store.
func PutRLP[T any](t *Txn, key []byte, v T) error {
	data, err := rlp.EncodeToBytes(v)
	if err != nil {
		return err
	}
	t.Put(key, data)
	return nil
}

// GetRLP reads and RLP-decodes the value at key. The second return value
// is false (with a zero T) if the key is unset.
func GetRLP[T any](t *Txn, key []byte) (T, bool, error) {
	var out T
	data, err := t.Get(key)
	if err == ErrNotFound {
		return out, false, nil
	}
	if err != nil {
		return out, false, err
	}
	if err := rlp.DecodeBytes(data, &out); err != nil {
		return out, false, err
	}
	return out, true, nil
}
