package validator

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/StuartF303/sorcha/pkg/canon"
	"github.com/StuartF303/sorcha/pkg/ledger"
)

// SealObserver receives counts as dockets are sealed; pkg/metrics implements
// this to drive its Prometheus counters without validator importing metrics.
type SealObserver interface {
	ObserveDocketSealed(transactionCount int)
}

// DocketBuilder seals a register's mempool into the next Docket. This is the
// only component that may construct a Docket: its hash is computed here and
// nowhere else, so every sealed docket is hash-chained to its predecessor by
// construction.
type DocketBuilder struct {
	mempool  *Mempool
	repo     ledger.RegisterRepository
	now      clock
	observer SealObserver
}

func NewDocketBuilder(mempool *Mempool, repo ledger.RegisterRepository) *DocketBuilder {
	return &DocketBuilder{mempool: mempool, repo: repo, now: time.Now}
}

// WithObserver attaches a SealObserver notified after each successful seal.
func (b *DocketBuilder) WithObserver(o SealObserver) *DocketBuilder {
	b.observer = o
	return b
}

// Seal drains registerID's mempool and, if it is non-empty, builds and
// persists the next Docket. An empty mempool seals nothing and returns
// (nil, nil) — sealing is driven by a periodic caller, not by every tick
// needing a docket.
func (b *DocketBuilder) Seal(ctx context.Context, registerID string) (*ledger.Docket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	txs := b.mempool.Drain(registerID)
	if len(txs) == 0 {
		return nil, nil
	}

	prev, err := b.repo.GetLatestDocket(ctx, registerID)
	var previousHash string
	var height uint64
	switch {
	case err == nil:
		previousHash = prev.Hash
		height = prev.Height + 1
	case err == ledger.ErrDocketNotFound:
		previousHash = ""
		height = 1
	default:
		return nil, fmt.Errorf("validator: load latest docket: %w", err)
	}

	ids := make([]string, 0, len(txs))
	for _, tx := range txs {
		ids = append(ids, tx.ID)
	}
	sortedIDs := append([]string{}, ids...)
	sort.Strings(sortedIDs)

	docketID := strconv.FormatUint(height, 10)
	sealedAt := b.now()

	hashBytes := canon.HashConcat(
		[]byte(docketID),
		[]byte(previousHash),
		[]byte(concatIDs(sortedIDs)),
		[]byte(strconv.FormatInt(sealedAt.UnixNano(), 10)),
	)
	hash := fmt.Sprintf("%x", hashBytes)

	d := ledger.Docket{
		ID:             docketID,
		RegisterID:     registerID,
		Height:         height,
		PreviousHash:   previousHash,
		Hash:           hash,
		TransactionIDs: ids,
		State:          ledger.DocketSealed,
		SealedAt:       sealedAt,
	}

	for i := range txs {
		txs[i].DocketID = docketID
		if err := b.repo.AppendTransaction(ctx, txs[i]); err != nil {
			return nil, fmt.Errorf("validator: append transaction %s: %w", txs[i].ID, err)
		}
	}
	if err := b.repo.AppendDocket(ctx, d); err != nil {
		return nil, fmt.Errorf("validator: append docket: %w", err)
	}
	if err := b.repo.UpdateRegisterHead(ctx, registerID, d.Height, d.Hash); err != nil {
		return nil, fmt.Errorf("validator: update register head: %w", err)
	}

	if b.observer != nil {
		b.observer.ObserveDocketSealed(len(txs))
	}

	return &d, nil
}

func concatIDs(sortedIDs []string) string {
	out := ""
	for _, id := range sortedIDs {
		out += id
	}
	return out
}
