// Package did resolves Sorcha DIDs — either a wallet DID ("w:<address>") or
// a register transaction DID ("r:<registerId>:t:<txId>") — to the public key
// material pkg/sorchacrypto verifies signatures against.
package did

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/StuartF303/sorcha/pkg/ledger"
)

var (
	ErrMalformedDID  = errors.New("did: malformed identifier")
	ErrUnknownWallet = errors.New("did: wallet not found")
	ErrUnresolvable  = errors.New("did: transaction does not carry an on-chain public key")
)

// PublicKey is the resolved key material plus the algorithm it is used with.
type PublicKey struct {
	Algorithm string
	KeyBytes  []byte
}

// WalletStore resolves a wallet address to its current public key; the
// external collaborator spec.md leaves abstract.
type WalletStore interface {
	PublicKeyForWallet(ctx context.Context, address string) (PublicKey, error)
}

// Resolver resolves DIDs without recursion: a "r:" DID is resolved by
// reading the already-sealed transaction it names out of the ledger and
// looking up its first signer's wallet address in the wallet store, never by
// calling Resolve on another DID found inside it.
type Resolver struct {
	wallets WalletStore
	txs     ledger.TransactionReader
}

func NewResolver(wallets WalletStore, txs ledger.TransactionReader) *Resolver {
	return &Resolver{wallets: wallets, txs: txs}
}

// Resolve returns the public key the given DID names.
func (r *Resolver) Resolve(ctx context.Context, id ledger.DID) (PublicKey, error) {
	s := string(id)
	switch {
	case strings.HasPrefix(s, "w:"):
		return r.resolveWallet(ctx, strings.TrimPrefix(s, "w:"))
	case strings.HasPrefix(s, "r:"):
		return r.resolveRegisterTx(ctx, s)
	default:
		return PublicKey{}, fmt.Errorf("%w: %q", ErrMalformedDID, s)
	}
}

func (r *Resolver) resolveWallet(ctx context.Context, address string) (PublicKey, error) {
	if address == "" {
		return PublicKey{}, fmt.Errorf("%w: empty wallet address", ErrMalformedDID)
	}
	pk, err := r.wallets.PublicKeyForWallet(ctx, address)
	if err != nil {
		return PublicKey{}, fmt.Errorf("%w: %v", ErrUnknownWallet, err)
	}
	return pk, nil
}

// resolveRegisterTx parses "r:<registerId>:t:<txId>", loads the named,
// already-sealed transaction, and resolves the signer DID of its first
// signature as a wallet address through the wallet store — it never follows
// that signerDid back through Resolve. The attestations in the
// transaction's control record are not read, so their keys are not used.
func (r *Resolver) resolveRegisterTx(ctx context.Context, did string) (PublicKey, error) {
	registerID, txID, err := parseRegisterTxDID(did)
	if err != nil {
		return PublicKey{}, err
	}

	tx, err := r.txs.GetTransaction(ctx, registerID, txID)
	if err != nil {
		return PublicKey{}, fmt.Errorf("did: resolve %q: %w", did, err)
	}
	if len(tx.Signatures) == 0 {
		return PublicKey{}, fmt.Errorf("%w: %q", ErrUnresolvable, did)
	}
	sig := tx.Signatures[0]
	// The signature itself does not carry the public key; a register
	// transaction DID resolves to whatever key was used to sign it, looked
	// up through the same wallet store as any other DID reference.
	return r.resolveWallet(ctx, walletAddressFromSignerDID(sig.SignerDID))
}

func parseRegisterTxDID(did string) (registerID, txID string, err error) {
	// expected shape: r:<registerId>:t:<txId>
	rest := strings.TrimPrefix(did, "r:")
	parts := strings.SplitN(rest, ":t:", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedDID, did)
	}
	return parts[0], parts[1], nil
}

func walletAddressFromSignerDID(d ledger.DID) string {
	return strings.TrimPrefix(string(d), "w:")
}
