package ledger

import (
	"context"
	"testing"
	"time"
)

func TestMemStoreRegisterLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	reg := Register{ID: "r1", OwnerDID: "w:alice", CreatedAt: time.Now()}
	if err := s.CreateRegister(ctx, reg); err != nil {
		t.Fatalf("create register: %v", err)
	}
	if err := s.CreateRegister(ctx, reg); err != ErrDuplicateID {
		t.Fatalf("expected ErrDuplicateID on re-create, got %v", err)
	}

	got, err := s.GetRegister(ctx, "r1")
	if err != nil {
		t.Fatalf("get register: %v", err)
	}
	if got.OwnerDID != "w:alice" {
		t.Fatalf("unexpected owner: %v", got.OwnerDID)
	}

	if _, err := s.GetRegister(ctx, "missing"); err != ErrRegisterNotFound {
		t.Fatalf("expected ErrRegisterNotFound, got %v", err)
	}

	if err := s.UpdateRegisterHead(ctx, "r1", 1, "0xabc"); err != nil {
		t.Fatalf("update head: %v", err)
	}
	got, _ = s.GetRegister(ctx, "r1")
	if got.LatestHeight != 1 || got.LatestHash != "0xabc" {
		t.Fatalf("head not updated: %+v", got)
	}

	if err := s.CreateRegister(ctx, Register{ID: "r2", OwnerDID: "w:bob", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("create second register: %v", err)
	}
	all, err := s.ListRegisters(ctx)
	if err != nil {
		t.Fatalf("list registers: %v", err)
	}
	if len(all) != 2 || all[0].ID != "r1" || all[1].ID != "r2" {
		t.Fatalf("expected [r1 r2] sorted, got %+v", all)
	}
}

func TestMemStoreTransactionsAndDockets(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	if err := s.CreateRegister(ctx, Register{ID: "r1"}); err != nil {
		t.Fatalf("create register: %v", err)
	}

	tx := Transaction{ID: "tx1", RegisterID: "r1", Type: TxGenesis, SubmittedAt: time.Now()}
	if err := s.AppendTransaction(ctx, tx); err != nil {
		t.Fatalf("append tx: %v", err)
	}
	if err := s.AppendTransaction(ctx, tx); err != ErrDuplicateID {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}

	got, err := s.GetTransaction(ctx, "r1", "tx1")
	if err != nil {
		t.Fatalf("get tx: %v", err)
	}
	if got.Type != TxGenesis {
		t.Fatalf("unexpected type: %v", got.Type)
	}

	controls, err := s.ListControlTransactions(ctx, "r1")
	if err != nil || len(controls) != 1 {
		t.Fatalf("expected 1 control tx, got %d err=%v", len(controls), err)
	}

	d := Docket{ID: "1", RegisterID: "r1", Height: 1, Hash: "h0", State: DocketSealed, TransactionIDs: []string{"tx1"}, SealedAt: time.Now()}
	if err := s.AppendDocket(ctx, d); err != nil {
		t.Fatalf("append docket: %v", err)
	}

	latest, err := s.GetLatestDocket(ctx, "r1")
	if err != nil {
		t.Fatalf("get latest docket: %v", err)
	}
	if latest.Hash != "h0" {
		t.Fatalf("unexpected latest docket: %+v", latest)
	}

	if _, err := s.GetDocket(ctx, "r1", 99); err != ErrDocketNotFound {
		t.Fatalf("expected ErrDocketNotFound, got %v", err)
	}
}

func TestMemStoreRegisterMissingPropagatesToChildren(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	if err := s.AppendTransaction(ctx, Transaction{ID: "tx1", RegisterID: "missing"}); err != ErrRegisterNotFound {
		t.Fatalf("expected ErrRegisterNotFound, got %v", err)
	}
}
