package cosigndb

// Txn buffers writes over a Database snapshot and commits them as a single
// atomic batch. Every task iteration in this repo (intend, evaluate, delay)
// and every accepted cosign (intake) does its work inside exactly one Txn,
// per spec.md §5's "all reads and writes that must be consistent occur
// within a single transaction committed at the end of each iteration"
// requirement.
type Txn struct {
	db      Database
	pending map[string][]byte
	deleted map[string]bool
	order   []string
}

// NewTxn opens a transaction over db. Reads see db's committed state
// overlaid with this transaction's own uncommitted writes. Each Get reads
// db afresh; there is no point-in-time snapshot, so a commit made by
// another Txn between two reads is visible to the second read.
func NewTxn(db Database) *Txn {
	return &Txn{
		db:      db,
		pending: make(map[string][]byte),
		deleted: make(map[string]bool),
	}
}

func (t *Txn) Get(key []byte) ([]byte, error) {
	k := string(key)
	if t.deleted[k] {
		return nil, ErrNotFound
	}
	if v, ok := t.pending[k]; ok {
		return v, nil
	}
	return t.db.Get(key)
}

func (t *Txn) Has(key []byte) (bool, error) {
	_, err := t.Get(key)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (t *Txn) Put(key, value []byte) {
	k := string(key)
	if _, exists := t.pending[k]; !exists {
		t.order = append(t.order, k)
	}
	delete(t.deleted, k)
	t.pending[k] = append([]byte(nil), value...)
}

func (t *Txn) Delete(key []byte) {
	k := string(key)
	if _, exists := t.pending[k]; !exists {
		t.order = append(t.order, k)
	}
	delete(t.pending, k)
	t.deleted[k] = true
}

// Commit writes every buffered key in a single atomic batch when db
// implements Batcher (both backends in this repo do); for any other
// Database it writes the keys one by one, without atomicity. Commits are
// idempotent by key: replaying the same Txn's writes against the same
// starting state yields the same final state, satisfying spec.md §5's
// at-least-once-delivery requirement for crash-resume.
func (t *Txn) Commit() error {
	batcher, ok := t.db.(Batcher)
	if !ok {
		// Fall back to sequential writes for backends without native
		// batching (e.g. a decorator Database); still in insertion order.
		return t.commitSequential()
	}
	batch := batcher.NewBatch()
	for _, k := range t.order {
		if t.deleted[k] {
			if err := batch.Delete([]byte(k)); err != nil {
				return err
			}
			continue
		}
		if err := batch.Put([]byte(k), t.pending[k]); err != nil {
			return err
		}
	}
	return batch.Write()
}

func (t *Txn) commitSequential() error {
	for _, k := range t.order {
		if t.deleted[k] {
			if err := t.db.Delete([]byte(k)); err != nil {
				return err
			}
			continue
		}
		if err := t.db.Put([]byte(k), t.pending[k]); err != nil {
			return err
		}
	}
	return nil
}
