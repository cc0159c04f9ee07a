package validator

import (
	"context"
	"testing"
	"time"

	"github.com/StuartF303/sorcha/pkg/ledger"
)

func TestMempoolSubmitRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	m := NewMempool()
	tx := ledger.Transaction{ID: "tx1", RegisterID: "r1"}
	if err := m.Submit(ctx, tx); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := m.Submit(ctx, tx); err != ErrDuplicateTransaction {
		t.Fatalf("expected ErrDuplicateTransaction, got %v", err)
	}
}

func TestMempoolDrainOrdersByPriorityThenFIFO(t *testing.T) {
	ctx := context.Background()
	m := NewMempool()
	low := ledger.Transaction{ID: "low", RegisterID: "r1", Priority: ledger.PriorityLow}
	normal1 := ledger.Transaction{ID: "normal1", RegisterID: "r1", Priority: ledger.PriorityNormal}
	normal2 := ledger.Transaction{ID: "normal2", RegisterID: "r1", Priority: ledger.PriorityNormal}
	high := ledger.Transaction{ID: "high", RegisterID: "r1", Priority: ledger.PriorityHigh}

	for _, tx := range []ledger.Transaction{low, normal1, normal2, high} {
		if err := m.Submit(ctx, tx); err != nil {
			t.Fatalf("submit %s: %v", tx.ID, err)
		}
	}

	drained := m.Drain("r1")
	want := []string{"high", "normal1", "normal2", "low"}
	if len(drained) != len(want) {
		t.Fatalf("expected %d transactions, got %d", len(want), len(drained))
	}
	for i, id := range want {
		if drained[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, drained[i].ID)
		}
	}

	if m.Size("r1") != 0 {
		t.Fatalf("expected mempool empty after drain, size=%d", m.Size("r1"))
	}
}

func TestMempoolGenesisAlwaysHighPriority(t *testing.T) {
	ctx := context.Background()
	m := NewMempool()
	genesis := ledger.Transaction{ID: "g1", RegisterID: "r1", Type: ledger.TxGenesis, Priority: ledger.PriorityLow}
	normal := ledger.Transaction{ID: "n1", RegisterID: "r1", Priority: ledger.PriorityNormal}

	if err := m.Submit(ctx, normal); err != nil {
		t.Fatalf("submit normal: %v", err)
	}
	if err := m.Submit(ctx, genesis); err != nil {
		t.Fatalf("submit genesis: %v", err)
	}

	drained := m.Drain("r1")
	if drained[0].ID != "g1" {
		t.Fatalf("expected genesis transaction first despite Low priority field, got %s", drained[0].ID)
	}
}

func TestDocketBuilderSealsEmptyMempoolAsNoop(t *testing.T) {
	ctx := context.Background()
	repo := ledger.NewMemStore()
	if err := repo.CreateRegister(ctx, ledger.Register{ID: "r1"}); err != nil {
		t.Fatalf("create register: %v", err)
	}
	b := NewDocketBuilder(NewMempool(), repo)

	d, err := b.Seal(ctx, "r1")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if d != nil {
		t.Fatalf("expected nil docket for empty mempool, got %+v", d)
	}
}

func TestDocketBuilderHashChaining(t *testing.T) {
	ctx := context.Background()
	repo := ledger.NewMemStore()
	if err := repo.CreateRegister(ctx, ledger.Register{ID: "r1"}); err != nil {
		t.Fatalf("create register: %v", err)
	}
	mempool := NewMempool()
	b := NewDocketBuilder(mempool, repo)
	b.now = func() time.Time { return time.Unix(1000, 0) }

	if err := mempool.Submit(ctx, ledger.Transaction{ID: "tx1", RegisterID: "r1", Type: ledger.TxGenesis}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	first, err := b.Seal(ctx, "r1")
	if err != nil {
		t.Fatalf("seal 1: %v", err)
	}
	if first.Height != 1 || first.PreviousHash != "" {
		t.Fatalf("expected genesis docket height 1 with empty previous hash: %+v", first)
	}

	b.now = func() time.Time { return time.Unix(2000, 0) }
	if err := mempool.Submit(ctx, ledger.Transaction{ID: "tx2", RegisterID: "r1"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	second, err := b.Seal(ctx, "r1")
	if err != nil {
		t.Fatalf("seal 2: %v", err)
	}
	if second.Height != 2 {
		t.Fatalf("expected height 2, got %d", second.Height)
	}
	if second.PreviousHash != first.Hash {
		t.Fatalf("expected docket chain to link: %s != %s", second.PreviousHash, first.Hash)
	}

	reg, err := repo.GetRegister(ctx, "r1")
	if err != nil {
		t.Fatalf("get register: %v", err)
	}
	if reg.LatestHash != second.Hash || reg.LatestHeight != second.Height {
		t.Fatalf("expected register head updated to latest docket: %+v", reg)
	}
}
