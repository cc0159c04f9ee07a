package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/StuartF303/sorcha/pkg/ledger"
)

// Postgres is the durable RegisterRepository backing production
// deployments. Each register's own rows are its concurrency boundary:
// Postgres relies on per-row atomicity and does no application-level
// locking. Neither the docket builder nor the registration orchestrator
// serializes writes per register above this layer.
type Postgres struct {
	client *Client
}

func NewPostgres(client *Client) *Postgres {
	return &Postgres{client: client}
}

var _ ledger.RegisterRepository = (*Postgres)(nil)

func (p *Postgres) CreateRegister(ctx context.Context, reg ledger.Register) error {
	_, err := p.client.DB().ExecContext(ctx,
		`INSERT INTO registers (id, owner_did, created_at, latest_height, latest_hash)
		 VALUES ($1, $2, $3, $4, $5)`,
		reg.ID, string(reg.OwnerDID), reg.CreatedAt, reg.LatestHeight, reg.LatestHash,
	)
	if isUniqueViolation(err) {
		return ledger.ErrDuplicateID
	}
	if err != nil {
		return fmt.Errorf("store: create register: %w", err)
	}
	return nil
}

func (p *Postgres) GetRegister(ctx context.Context, registerID string) (ledger.Register, error) {
	var reg ledger.Register
	var owner string
	row := p.client.DB().QueryRowContext(ctx,
		`SELECT id, owner_did, created_at, latest_height, latest_hash FROM registers WHERE id = $1`, registerID)
	if err := row.Scan(&reg.ID, &owner, &reg.CreatedAt, &reg.LatestHeight, &reg.LatestHash); err != nil {
		if err == sql.ErrNoRows {
			return ledger.Register{}, ledger.ErrRegisterNotFound
		}
		return ledger.Register{}, fmt.Errorf("store: get register: %w", err)
	}
	reg.OwnerDID = ledger.DID(owner)
	return reg, nil
}

func (p *Postgres) UpdateRegisterHead(ctx context.Context, registerID string, height uint64, hash string) error {
	res, err := p.client.DB().ExecContext(ctx,
		`UPDATE registers SET latest_height = $2, latest_hash = $3 WHERE id = $1`, registerID, height, hash)
	if err != nil {
		return fmt.Errorf("store: update register head: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: update register head: %w", err)
	}
	if n == 0 {
		return ledger.ErrRegisterNotFound
	}
	return nil
}

func (p *Postgres) ListRegisters(ctx context.Context) ([]ledger.Register, error) {
	rows, err := p.client.DB().QueryContext(ctx,
		`SELECT id, owner_did, created_at, latest_height, latest_hash FROM registers ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("store: list registers: %w", err)
	}
	defer rows.Close()

	var out []ledger.Register
	for rows.Next() {
		var reg ledger.Register
		var owner string
		if err := rows.Scan(&reg.ID, &owner, &reg.CreatedAt, &reg.LatestHeight, &reg.LatestHash); err != nil {
			return nil, fmt.Errorf("store: scan register: %w", err)
		}
		reg.OwnerDID = ledger.DID(owner)
		out = append(out, reg)
	}
	return out, rows.Err()
}

func (p *Postgres) AppendTransaction(ctx context.Context, tx ledger.Transaction) error {
	payload, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("store: marshal transaction: %w", err)
	}
	_, err = p.client.DB().ExecContext(ctx,
		`INSERT INTO transactions (id, register_id, type, priority, submitter_did, docket_id, submitted_at, payload)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		tx.ID, tx.RegisterID, string(tx.Type), int(tx.Priority), string(tx.SubmitterDID), tx.DocketID, tx.SubmittedAt, payload,
	)
	if isUniqueViolation(err) {
		return ledger.ErrDuplicateID
	}
	if isForeignKeyViolation(err) {
		return ledger.ErrRegisterNotFound
	}
	if err != nil {
		return fmt.Errorf("store: append transaction: %w", err)
	}
	return nil
}

func (p *Postgres) GetTransaction(ctx context.Context, registerID, txID string) (ledger.Transaction, error) {
	var payload []byte
	row := p.client.DB().QueryRowContext(ctx,
		`SELECT payload FROM transactions WHERE register_id = $1 AND id = $2`, registerID, txID)
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return ledger.Transaction{}, ledger.ErrTransactionNotFound
		}
		return ledger.Transaction{}, fmt.Errorf("store: get transaction: %w", err)
	}
	var tx ledger.Transaction
	if err := json.Unmarshal(payload, &tx); err != nil {
		return ledger.Transaction{}, fmt.Errorf("store: unmarshal transaction: %w", err)
	}
	return tx, nil
}

func (p *Postgres) ListTransactions(ctx context.Context, registerID string) ([]ledger.Transaction, error) {
	rows, err := p.client.DB().QueryContext(ctx,
		`SELECT payload FROM transactions WHERE register_id = $1 ORDER BY submitted_at ASC`, registerID)
	if err != nil {
		return nil, fmt.Errorf("store: list transactions: %w", err)
	}
	defer rows.Close()

	var out []ledger.Transaction
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("store: scan transaction: %w", err)
		}
		var tx ledger.Transaction
		if err := json.Unmarshal(payload, &tx); err != nil {
			return nil, fmt.Errorf("store: unmarshal transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (p *Postgres) ListControlTransactions(ctx context.Context, registerID string) ([]ledger.Transaction, error) {
	rows, err := p.client.DB().QueryContext(ctx,
		`SELECT payload FROM transactions WHERE register_id = $1 AND type IN ($2, $3) ORDER BY submitted_at ASC`,
		registerID, string(ledger.TxGenesis), string(ledger.TxControl))
	if err != nil {
		return nil, fmt.Errorf("store: list control transactions: %w", err)
	}
	defer rows.Close()

	var out []ledger.Transaction
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("store: scan control transaction: %w", err)
		}
		var tx ledger.Transaction
		if err := json.Unmarshal(payload, &tx); err != nil {
			return nil, fmt.Errorf("store: unmarshal control transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (p *Postgres) AppendDocket(ctx context.Context, d ledger.Docket) error {
	txIDs, err := json.Marshal(d.TransactionIDs)
	if err != nil {
		return fmt.Errorf("store: marshal transaction ids: %w", err)
	}
	_, err = p.client.DB().ExecContext(ctx,
		`INSERT INTO dockets (id, register_id, height, previous_hash, hash, transaction_ids, state, sealed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		d.ID, d.RegisterID, d.Height, d.PreviousHash, d.Hash, txIDs, string(d.State), d.SealedAt,
	)
	if isUniqueViolation(err) {
		return ledger.ErrDuplicateID
	}
	if isForeignKeyViolation(err) {
		return ledger.ErrRegisterNotFound
	}
	if err != nil {
		return fmt.Errorf("store: append docket: %w", err)
	}
	return nil
}

func (p *Postgres) GetDocket(ctx context.Context, registerID string, height uint64) (ledger.Docket, error) {
	return p.scanDocket(ctx,
		`SELECT id, register_id, height, previous_hash, hash, transaction_ids, state, sealed_at
		 FROM dockets WHERE register_id = $1 AND height = $2`, registerID, height)
}

func (p *Postgres) GetLatestDocket(ctx context.Context, registerID string) (ledger.Docket, error) {
	return p.scanDocket(ctx,
		`SELECT id, register_id, height, previous_hash, hash, transaction_ids, state, sealed_at
		 FROM dockets WHERE register_id = $1 ORDER BY height DESC LIMIT 1`, registerID)
}

func (p *Postgres) scanDocket(ctx context.Context, query string, args ...interface{}) (ledger.Docket, error) {
	var d ledger.Docket
	var txIDs []byte
	var state string
	row := p.client.DB().QueryRowContext(ctx, query, args...)
	if err := row.Scan(&d.ID, &d.RegisterID, &d.Height, &d.PreviousHash, &d.Hash, &txIDs, &state, &d.SealedAt); err != nil {
		if err == sql.ErrNoRows {
			return ledger.Docket{}, ledger.ErrDocketNotFound
		}
		return ledger.Docket{}, fmt.Errorf("store: get docket: %w", err)
	}
	d.State = ledger.DocketState(state)
	if err := json.Unmarshal(txIDs, &d.TransactionIDs); err != nil {
		return ledger.Docket{}, fmt.Errorf("store: unmarshal transaction ids: %w", err)
	}
	return d, nil
}

func (p *Postgres) ListDockets(ctx context.Context, registerID string) ([]ledger.Docket, error) {
	rows, err := p.client.DB().QueryContext(ctx,
		`SELECT id, register_id, height, previous_hash, hash, transaction_ids, state, sealed_at
		 FROM dockets WHERE register_id = $1 ORDER BY height ASC`, registerID)
	if err != nil {
		return nil, fmt.Errorf("store: list dockets: %w", err)
	}
	defer rows.Close()

	var out []ledger.Docket
	for rows.Next() {
		var d ledger.Docket
		var txIDs []byte
		var state string
		if err := rows.Scan(&d.ID, &d.RegisterID, &d.Height, &d.PreviousHash, &d.Hash, &txIDs, &state, &d.SealedAt); err != nil {
			return nil, fmt.Errorf("store: scan docket: %w", err)
		}
		d.State = ledger.DocketState(state)
		if err := json.Unmarshal(txIDs, &d.TransactionIDs); err != nil {
			return nil, fmt.Errorf("store: unmarshal transaction ids: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// isUniqueViolation and isForeignKeyViolation inspect lib/pq's error text
// for the Postgres SQLSTATE codes (23505, 23503) rather than importing the
// pq.Error type directly, keeping this file usable against any driver that
// reports compatible error strings.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23503")
}
