package did

import "context"

// MemWalletStore is an in-memory WalletStore used by tests and by cmd/sorchad
// when no durable store is configured.
type MemWalletStore struct {
	wallets map[string]PublicKey
}

func NewMemWalletStore() *MemWalletStore {
	return &MemWalletStore{wallets: make(map[string]PublicKey)}
}

// Register records address's public key, overwriting any prior entry.
func (m *MemWalletStore) Register(address string, pk PublicKey) {
	m.wallets[address] = pk
}

func (m *MemWalletStore) PublicKeyForWallet(ctx context.Context, address string) (PublicKey, error) {
	if err := ctx.Err(); err != nil {
		return PublicKey{}, err
	}
	pk, ok := m.wallets[address]
	if !ok {
		return PublicKey{}, ErrUnknownWallet
	}
	return pk, nil
}
