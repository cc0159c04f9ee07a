// Package validator implements per-register transaction admission and
// priority ordering (Mempool), and periodic hash-chained docket sealing
// (DocketBuilder) — the only component permitted to construct a Docket.
package validator

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/StuartF303/sorcha/pkg/ledger"
)

var (
	ErrDuplicateTransaction = errors.New("validator: transaction already admitted")
	ErrUnknownTransaction   = errors.New("validator: transaction not found in mempool")
)

// keyedMutex serializes access per register id without holding a single
// global lock across unrelated registers, mirroring this module's
// per-register locking model.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Mempool holds admitted, not-yet-docketed transactions per register,
// ordered by priority (High first) and then by admission order (FIFO)
// within a priority class.
type Mempool struct {
	perRegister *keyedMutex
	mu          sync.RWMutex
	byRegister  map[string][]ledger.Transaction
}

func NewMempool() *Mempool {
	return &Mempool{
		perRegister: newKeyedMutex(),
		byRegister:  make(map[string][]ledger.Transaction),
	}
}

// Submit admits tx into its register's mempool. Genesis transactions are
// always treated as High priority regardless of the value the caller set.
func (m *Mempool) Submit(ctx context.Context, tx ledger.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tx.Type == ledger.TxGenesis {
		tx.Priority = ledger.PriorityHigh
	}

	unlock := m.perRegister.lock(tx.RegisterID)
	defer unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byRegister[tx.RegisterID] {
		if existing.ID == tx.ID {
			return ErrDuplicateTransaction
		}
	}
	m.byRegister[tx.RegisterID] = append(m.byRegister[tx.RegisterID], tx)
	return nil
}

// Drain removes and returns every pending transaction for a register,
// ordered High-then-Normal-then-Low priority with FIFO order preserved
// within each class. Called exclusively by the DocketBuilder when sealing.
func (m *Mempool) Drain(registerID string) []ledger.Transaction {
	unlock := m.perRegister.lock(registerID)
	defer unlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	txs := m.byRegister[registerID]
	delete(m.byRegister, registerID)
	if len(txs) == 0 {
		return nil
	}

	ordered := append([]ledger.Transaction{}, txs...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority > ordered[j].Priority })
	return ordered
}

// Size returns how many transactions are currently pending for registerID.
func (m *Mempool) Size(registerID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byRegister[registerID])
}

// RegisterIDs returns the IDs of every register that currently holds at
// least one pending transaction, letting a periodic sealing loop skip
// registers with nothing to seal instead of walking every known register.
func (m *Mempool) RegisterIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.byRegister))
	for id, txs := range m.byRegister {
		if len(txs) > 0 {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Remove drops a single transaction from the mempool without sealing it,
// used when a transaction fails downstream validation before docketing.
func (m *Mempool) Remove(registerID, txID string) error {
	unlock := m.perRegister.lock(registerID)
	defer unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	txs := m.byRegister[registerID]
	for i, tx := range txs {
		if tx.ID == txID {
			m.byRegister[registerID] = append(txs[:i], txs[i+1:]...)
			return nil
		}
	}
	return ErrUnknownTransaction
}

// clock is a small seam so DocketBuilder tests can control sealing time
// without depending on wall-clock sleeps; production callers use time.Now.
type clock func() time.Time
