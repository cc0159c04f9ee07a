package ledger

import "context"

// RegisterRepository is the storage contract every component in this
// module depends on through an interface rather than a concrete database.
// Implementations live in pkg/store (Postgres) or this package's in-memory
// MemStore (tests, local runs). Every method accepts a context so callers
// can apply cooperative cancellation per the module's concurrency model:
// cancellation observed before a durable write returns ctx.Err(), observed
// after is swallowed — the write already happened.
type RegisterRepository interface {
	CreateRegister(ctx context.Context, reg Register) error
	GetRegister(ctx context.Context, registerID string) (Register, error)
	UpdateRegisterHead(ctx context.Context, registerID string, height uint64, hash string) error
	ListRegisters(ctx context.Context) ([]Register, error)

	AppendTransaction(ctx context.Context, tx Transaction) error
	GetTransaction(ctx context.Context, registerID, txID string) (Transaction, error)
	ListTransactions(ctx context.Context, registerID string) ([]Transaction, error)
	ListControlTransactions(ctx context.Context, registerID string) ([]Transaction, error)

	AppendDocket(ctx context.Context, d Docket) error
	GetDocket(ctx context.Context, registerID string, height uint64) (Docket, error)
	GetLatestDocket(ctx context.Context, registerID string) (Docket, error)
	ListDockets(ctx context.Context, registerID string) ([]Docket, error)
}

// TransactionReader is the narrow read-only slice of RegisterRepository the
// DID resolver needs; kept separate so pkg/did does not depend on write
// operations it never performs.
type TransactionReader interface {
	GetTransaction(ctx context.Context, registerID, txID string) (Transaction, error)
	ListControlTransactions(ctx context.Context, registerID string) ([]Transaction, error)
}
