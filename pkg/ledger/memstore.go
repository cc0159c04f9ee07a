package ledger

import (
	"context"
	"sort"
	"sync"
)

// MemStore is an in-memory RegisterRepository, used by tests and by
// cmd/sorchad when no SORCHA_DATABASE_URL is configured. It guards its state
// behind a single RWMutex; pkg/store.Postgres is the durable counterpart for
// production deployments.
type MemStore struct {
	mu            sync.RWMutex
	registers     map[string]Register
	transactions  map[string]map[string]Transaction // registerID -> txID -> tx
	dockets       map[string]map[uint64]Docket       // registerID -> height -> docket
}

// NewMemStore returns an empty in-memory repository.
func NewMemStore() *MemStore {
	return &MemStore{
		registers:    make(map[string]Register),
		transactions: make(map[string]map[string]Transaction),
		dockets:      make(map[string]map[uint64]Docket),
	}
}

func (s *MemStore) CreateRegister(ctx context.Context, reg Register) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.registers[reg.ID]; exists {
		return ErrDuplicateID
	}
	s.registers[reg.ID] = reg
	s.transactions[reg.ID] = make(map[string]Transaction)
	s.dockets[reg.ID] = make(map[uint64]Docket)
	return nil
}

func (s *MemStore) GetRegister(ctx context.Context, registerID string) (Register, error) {
	if err := ctx.Err(); err != nil {
		return Register{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	reg, ok := s.registers[registerID]
	if !ok {
		return Register{}, ErrRegisterNotFound
	}
	return reg, nil
}

// ListRegisters returns every register, sorted by ID for deterministic
// iteration order across repeated calls.
func (s *MemStore) ListRegisters(ctx context.Context) ([]Register, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Register, 0, len(s.registers))
	for _, reg := range s.registers {
		out = append(out, reg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) UpdateRegisterHead(ctx context.Context, registerID string, height uint64, hash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.registers[registerID]
	if !ok {
		return ErrRegisterNotFound
	}
	reg.LatestHeight = height
	reg.LatestHash = hash
	s.registers[registerID] = reg
	return nil
}

func (s *MemStore) AppendTransaction(ctx context.Context, tx Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	byID, ok := s.transactions[tx.RegisterID]
	if !ok {
		return ErrRegisterNotFound
	}
	if _, exists := byID[tx.ID]; exists {
		return ErrDuplicateID
	}
	byID[tx.ID] = tx
	return nil
}

func (s *MemStore) GetTransaction(ctx context.Context, registerID, txID string) (Transaction, error) {
	if err := ctx.Err(); err != nil {
		return Transaction{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	byID, ok := s.transactions[registerID]
	if !ok {
		return Transaction{}, ErrRegisterNotFound
	}
	tx, ok := byID[txID]
	if !ok {
		return Transaction{}, ErrTransactionNotFound
	}
	return tx, nil
}

func (s *MemStore) ListTransactions(ctx context.Context, registerID string) ([]Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	byID, ok := s.transactions[registerID]
	if !ok {
		return nil, ErrRegisterNotFound
	}
	out := make([]Transaction, 0, len(byID))
	for _, tx := range byID {
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out, nil
}

func (s *MemStore) ListControlTransactions(ctx context.Context, registerID string) ([]Transaction, error) {
	all, err := s.ListTransactions(ctx, registerID)
	if err != nil {
		return nil, err
	}
	out := all[:0:0]
	for _, tx := range all {
		if tx.Type == TxGenesis || tx.Type == TxControl {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *MemStore) AppendDocket(ctx context.Context, d Docket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	byHeight, ok := s.dockets[d.RegisterID]
	if !ok {
		return ErrRegisterNotFound
	}
	if _, exists := byHeight[d.Height]; exists {
		return ErrDuplicateID
	}
	byHeight[d.Height] = d
	return nil
}

func (s *MemStore) GetDocket(ctx context.Context, registerID string, height uint64) (Docket, error) {
	if err := ctx.Err(); err != nil {
		return Docket{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	byHeight, ok := s.dockets[registerID]
	if !ok {
		return Docket{}, ErrRegisterNotFound
	}
	d, ok := byHeight[height]
	if !ok {
		return Docket{}, ErrDocketNotFound
	}
	return d, nil
}

func (s *MemStore) GetLatestDocket(ctx context.Context, registerID string) (Docket, error) {
	dockets, err := s.ListDockets(ctx, registerID)
	if err != nil {
		return Docket{}, err
	}
	if len(dockets) == 0 {
		return Docket{}, ErrDocketNotFound
	}
	return dockets[len(dockets)-1], nil
}

func (s *MemStore) ListDockets(ctx context.Context, registerID string) ([]Docket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	byHeight, ok := s.dockets[registerID]
	if !ok {
		return nil, ErrRegisterNotFound
	}
	out := make([]Docket, 0, len(byHeight))
	for _, d := range byHeight {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Height < out[j].Height })
	return out, nil
}
