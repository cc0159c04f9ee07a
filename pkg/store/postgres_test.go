package store

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"

	"github.com/StuartF303/sorcha/pkg/ledger"
)

var testDB *sql.DB

func TestMain(m *testing.M) {
	connStr := os.Getenv("SORCHA_TEST_DB")
	if connStr == "" {
		os.Exit(0)
	}

	var err error
	testDB, err = sql.Open("postgres", connStr)
	if err != nil {
		panic("failed to connect to test database: " + err.Error())
	}

	migrations, err := readMigrationsFromFS()
	if err != nil {
		panic("failed to read migrations: " + err.Error())
	}
	for _, m := range migrations {
		if _, err := testDB.Exec(m.SQL); err != nil {
			panic("failed to apply migration " + m.Version + ": " + err.Error())
		}
	}

	code := m.Run()
	testDB.Close()
	os.Exit(code)
}

func readMigrationsFromFS() ([]Migration, error) {
	c := &Client{db: testDB}
	return c.readMigrations()
}

func newTestRepo(t *testing.T) ledger.RegisterRepository {
	t.Helper()
	if testDB == nil {
		t.Skip("SORCHA_TEST_DB not configured")
	}
	return NewPostgres(&Client{db: testDB})
}

func TestPostgresRegisterLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	registerID := "pg-reg-" + time.Now().Format("150405.000000000")

	reg := ledger.Register{ID: registerID, OwnerDID: "w:owner1", CreatedAt: time.Now()}
	if err := repo.CreateRegister(ctx, reg); err != nil {
		t.Fatalf("create register: %v", err)
	}
	defer testDB.Exec("DELETE FROM registers WHERE id = $1", registerID)

	if err := repo.CreateRegister(ctx, reg); err != ledger.ErrDuplicateID {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}

	got, err := repo.GetRegister(ctx, registerID)
	if err != nil {
		t.Fatalf("get register: %v", err)
	}
	if got.OwnerDID != reg.OwnerDID {
		t.Fatalf("owner mismatch: got %q", got.OwnerDID)
	}

	if err := repo.UpdateRegisterHead(ctx, registerID, 1, "0xabc"); err != nil {
		t.Fatalf("update head: %v", err)
	}
	got, err = repo.GetRegister(ctx, registerID)
	if err != nil {
		t.Fatalf("get register after update: %v", err)
	}
	if got.LatestHeight != 1 || got.LatestHash != "0xabc" {
		t.Fatalf("head not updated: %+v", got)
	}

	if _, err := repo.GetRegister(ctx, "does-not-exist"); err != ledger.ErrRegisterNotFound {
		t.Fatalf("expected ErrRegisterNotFound, got %v", err)
	}

	all, err := repo.ListRegisters(ctx)
	if err != nil {
		t.Fatalf("list registers: %v", err)
	}
	found := false
	for _, r := range all {
		if r.ID == registerID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected %s in ListRegisters result", registerID)
	}
}

func TestPostgresTransactionAndDocketLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	registerID := "pg-reg-tx-" + time.Now().Format("150405.000000000")

	if err := repo.CreateRegister(ctx, ledger.Register{ID: registerID, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("create register: %v", err)
	}
	defer func() {
		testDB.Exec("DELETE FROM dockets WHERE register_id = $1", registerID)
		testDB.Exec("DELETE FROM transactions WHERE register_id = $1", registerID)
		testDB.Exec("DELETE FROM registers WHERE id = $1", registerID)
	}()

	genesis := ledger.Transaction{
		ID: "tx-genesis", RegisterID: registerID, Type: ledger.TxGenesis,
		Priority: ledger.PriorityHigh, SubmittedAt: time.Now(),
		ControlRecord: &ledger.RegisterControlRecord{
			RegisterID: registerID,
			Attestations: []ledger.RegisterAttestation{
				{Role: ledger.RoleOwner, Subject: "w:owner1", GrantedAt: time.Now()},
			},
		},
	}
	if err := repo.AppendTransaction(ctx, genesis); err != nil {
		t.Fatalf("append genesis transaction: %v", err)
	}

	if _, err := repo.GetTransaction(ctx, registerID, "missing"); err != ledger.ErrTransactionNotFound {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}

	fetched, err := repo.GetTransaction(ctx, registerID, "tx-genesis")
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if fetched.ControlRecord == nil {
		t.Fatalf("control record not round-tripped: %+v", fetched)
	}
	owner, ok := fetched.ControlRecord.Owner()
	if !ok || owner.Subject != "w:owner1" {
		t.Fatalf("genesis owner not round-tripped: %+v", fetched.ControlRecord)
	}

	controls, err := repo.ListControlTransactions(ctx, registerID)
	if err != nil {
		t.Fatalf("list control transactions: %v", err)
	}
	if len(controls) != 1 {
		t.Fatalf("expected 1 control transaction, got %d", len(controls))
	}

	docket := ledger.Docket{
		ID: "1", RegisterID: registerID, Height: 1, PreviousHash: "",
		Hash: "abc123", TransactionIDs: []string{"tx-genesis"},
		State: ledger.DocketSealed, SealedAt: time.Now(),
	}
	if err := repo.AppendDocket(ctx, docket); err != nil {
		t.Fatalf("append docket: %v", err)
	}

	latest, err := repo.GetLatestDocket(ctx, registerID)
	if err != nil {
		t.Fatalf("get latest docket: %v", err)
	}
	if latest.Hash != "abc123" || len(latest.TransactionIDs) != 1 || latest.State != ledger.DocketSealed {
		t.Fatalf("latest docket mismatch: %+v", latest)
	}

	all, err := repo.ListDockets(ctx, registerID)
	if err != nil {
		t.Fatalf("list dockets: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 docket, got %d", len(all))
	}
}
