package cosigndb

import "encoding/binary"

// Channel is a named, single-producer/single-consumer FIFO queue backed by
// an auto-incrementing index plus a read cursor, both stored durably in the
// same Txn as every other write of the producing/consuming task's
// iteration (spec.md §3 "Channels", §5 ordering guarantees). An optional
// subkey namespaces independent queues under one name, used for
// IntendedCosigns' per-ValidatorSet sub-channels (spec.md §3).
type Channel[T any] struct {
	name string
}

func NewChannel[T any](name string) *Channel[T] {
	return &Channel[T]{name: name}
}

func (c *Channel[T]) headKey(subkey []byte) []byte { return c.part(subkey, "head") }
func (c *Channel[T]) tailKey(subkey []byte) []byte { return c.part(subkey, "tail") }

func (c *Channel[T]) part(subkey []byte, part string) []byte {
	buf := make([]byte, 0, len(c.name)+len(subkey)+len(part)+8)
	buf = append(buf, "chan:"...)
	buf = append(buf, c.name...)
	buf = append(buf, ':')
	buf = append(buf, byte(len(subkey)))
	buf = append(buf, subkey...)
	buf = append(buf, ':')
	buf = append(buf, part...)
	return buf
}

func (c *Channel[T]) entryKey(subkey []byte, index uint64) []byte {
	idx := make([]byte, 8)
	binary.BigEndian.PutUint64(idx, index)
	return append(c.part(subkey, "e"), idx...)
}

func (c *Channel[T]) cursor(txn *Txn, key []byte) (uint64, error) {
	v, found, err := GetRLP[uint64](txn, key)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}
	return v, nil
}

// Send appends value to the channel (optionally namespaced by subkey).
func (c *Channel[T]) Send(txn *Txn, subkey []byte, value T) error {
	tail, err := c.cursor(txn, c.tailKey(subkey))
	if err != nil {
		return err
	}
	if err := PutRLP(txn, c.entryKey(subkey, tail), value); err != nil {
		return err
	}
	return PutRLP(txn, c.tailKey(subkey), tail+1)
}

// Peek returns the next unconsumed entry without removing it.
func (c *Channel[T]) Peek(txn *Txn, subkey []byte) (T, bool, error) {
	var zero T
	head, err := c.cursor(txn, c.headKey(subkey))
	if err != nil {
		return zero, false, err
	}
	tail, err := c.cursor(txn, c.tailKey(subkey))
	if err != nil {
		return zero, false, err
	}
	if head >= tail {
		return zero, false, nil
	}
	v, found, err := GetRLP[T](txn, c.entryKey(subkey, head))
	if err != nil || !found {
		return zero, false, err
	}
	return v, true, nil
}

// TryRecv consumes and returns the next unconsumed entry, advancing the
// read cursor. Returns ok=false if the channel is empty.
func (c *Channel[T]) TryRecv(txn *Txn, subkey []byte) (T, bool, error) {
	var zero T
	head, err := c.cursor(txn, c.headKey(subkey))
	if err != nil {
		return zero, false, err
	}
	v, ok, err := c.Peek(txn, subkey)
	if err != nil || !ok {
		return zero, false, err
	}
	txn.Delete(c.entryKey(subkey, head))
	if err := PutRLP(txn, c.headKey(subkey), head+1); err != nil {
		return zero, false, err
	}
	return v, true, nil
}
