package ledger

import (
	"sync"

	"botty/internal/domain/model"
)

// Book owns the latest portfolio snapshot. The ledger functions are pure
// snapshot-in/snapshot-out with no compare-and-swap, so all mutations must
// go through a single writer; Book serializes them behind a mutex and
// bumps a version on every applied update so readers can detect staleness.
type Book struct {
	mu       sync.RWMutex
	snapshot model.Portfolio
	version  uint64
}

func NewBook(initial model.Portfolio) *Book {
	return &Book{snapshot: initial}
}

// Snapshot returns the latest portfolio. The value shares its Positions
// and Trades slices with the stored snapshot; callers must treat it as
// read-only, which the ledger functions guarantee by copying on write.
func (b *Book) Snapshot() model.Portfolio {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snapshot
}

// Version returns the number of applied updates.
func (b *Book) Version() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// Update applies fn to the latest snapshot and publishes the result
// atomically. fn runs under the write lock: it must be a pure
// transformation (no I/O, no blocking). If fn returns an error the
// snapshot is left untouched.
func (b *Book) Update(fn func(model.Portfolio) (model.Portfolio, error)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	next, err := fn(b.snapshot)
	if err != nil {
		return err
	}
	b.snapshot = next
	b.version++
	return nil
}

// Reset replaces the snapshot with a fresh portfolio at the given
// starting balance.
func (b *Book) Reset(startingBalance float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshot = model.NewPortfolio(startingBalance)
	b.version++
}
