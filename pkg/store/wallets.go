package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/StuartF303/sorcha/pkg/did"
)

// WalletDirectory is the durable did.WalletStore backing production
// deployments: a flat address-to-public-key directory, deliberately leaving
// HD key derivation and wallet provisioning to the external wallet service
// the resolver treats as a collaborator.
type WalletDirectory struct {
	client *Client
}

func NewWalletDirectory(client *Client) *WalletDirectory {
	return &WalletDirectory{client: client}
}

var _ did.WalletStore = (*WalletDirectory)(nil)

// Register upserts a wallet's public key, used by operator tooling to seed
// the directory ahead of the wallets resolving against it.
func (w *WalletDirectory) Register(ctx context.Context, address, algorithm string, publicKey []byte) error {
	_, err := w.client.DB().ExecContext(ctx,
		`INSERT INTO wallets (address, algorithm, public_key) VALUES ($1, $2, $3)
		 ON CONFLICT (address) DO UPDATE SET algorithm = $2, public_key = $3`,
		address, algorithm, publicKey,
	)
	if err != nil {
		return fmt.Errorf("store: register wallet: %w", err)
	}
	return nil
}

func (w *WalletDirectory) PublicKeyForWallet(ctx context.Context, address string) (did.PublicKey, error) {
	var pk did.PublicKey
	row := w.client.DB().QueryRowContext(ctx,
		`SELECT algorithm, public_key FROM wallets WHERE address = $1`, address)
	if err := row.Scan(&pk.Algorithm, &pk.KeyBytes); err != nil {
		if err == sql.ErrNoRows {
			return did.PublicKey{}, did.ErrUnknownWallet
		}
		return did.PublicKey{}, fmt.Errorf("store: get wallet: %w", err)
	}
	return pk, nil
}
