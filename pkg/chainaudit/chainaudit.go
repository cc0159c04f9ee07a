// Package chainaudit implements the two independent chain integrity checks:
// ValidateDocketChain walks a register's docket hash chain and recomputes
// each hash; ValidateTransactionChain checks that every transaction
// referenced by a sealed docket exists and that prevTxId links resolve.
// Both report a structured Result rather than a single aggregate error, so
// callers can distinguish hard failures from advisory findings.
package chainaudit

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/StuartF303/sorcha/pkg/canon"
	"github.com/StuartF303/sorcha/pkg/ledger"
)

// Result is the outcome of a chain audit. IsValid is true if and only if no
// entry was added to Errors; Warnings and Info never affect IsValid.
type Result struct {
	IsValid  bool
	Errors   []string
	Warnings []string
	Info     []string
}

// collector accumulates findings into their classified slices and derives
// IsValid from whether any error was recorded.
type collector struct {
	errors   []string
	warnings []string
	info     []string
}

func (c *collector) addError(format string, args ...interface{})   { c.errors = append(c.errors, fmt.Sprintf(format, args...)) }
func (c *collector) addWarning(format string, args ...interface{}) { c.warnings = append(c.warnings, fmt.Sprintf(format, args...)) }
func (c *collector) addInfo(format string, args ...interface{})    { c.info = append(c.info, fmt.Sprintf(format, args...)) }

func (c *collector) result() Result {
	return Result{
		IsValid:  len(c.errors) == 0,
		Errors:   c.errors,
		Warnings: c.warnings,
		Info:     c.info,
	}
}

// ValidateDocketChain recomputes each docket's hash from its own fields and
// checks it links to the previous docket's hash, in height order starting
// from 1. An empty chain is not an error — a register need not have sealed
// anything yet.
func ValidateDocketChain(ctx context.Context, repo ledger.RegisterRepository, registerID string) (Result, error) {
	c := &collector{}

	dockets, err := repo.ListDockets(ctx, registerID)
	if err != nil {
		return Result{}, fmt.Errorf("chainaudit: list dockets: %w", err)
	}
	if len(dockets) == 0 {
		c.addInfo("register %s has no dockets", registerID)
		return c.result(), nil
	}

	c.addInfo("validating %d docket(s) for register %s", len(dockets), registerID)

	var maxSealedHeight uint64
	previousHash := ""
	for i, d := range dockets {
		expectedHeight := uint64(i + 1)
		if i == 0 {
			if d.Height != 1 {
				c.addError("First docket ID should be 1, got %d", d.Height)
			}
			if d.PreviousHash != "" {
				c.addWarning("first docket %s has a non-empty previousHash %q", d.ID, d.PreviousHash)
			}
		} else if d.Height != expectedHeight {
			c.addError("Docket chain break: docket at index %d has height %d, expected %d", i, d.Height, expectedHeight)
		}

		if d.PreviousHash != previousHash {
			c.addError("PreviousHash does not match: docket %s got %q, expected %q", d.ID, d.PreviousHash, previousHash)
		}

		recomputed := recomputeDocketHash(d)
		if recomputed != d.Hash {
			c.addError("docket %s hash mismatch: stored %q, recomputed %q", d.ID, d.Hash, recomputed)
		}

		if d.State != ledger.DocketSealed {
			c.addWarning("docket %s is in state %q, expected Sealed", d.ID, d.State)
		} else if d.Height > maxSealedHeight {
			maxSealedHeight = d.Height
		}

		previousHash = d.Hash
	}

	register, err := repo.GetRegister(ctx, registerID)
	if err != nil {
		return Result{}, fmt.Errorf("chainaudit: get register: %w", err)
	}
	if register.LatestHeight != maxSealedHeight {
		c.addError("Register height %d does not match max sealed docket id %d", register.LatestHeight, maxSealedHeight)
	}

	return c.result(), nil
}

// ValidateTransactionChain checks that every transaction referenced by a
// sealed docket actually exists, that prevTxId links resolve within the
// same register, and reports the count of transactions not yet sealed into
// any docket ("orphaned") as a single informational finding.
func ValidateTransactionChain(ctx context.Context, repo ledger.RegisterRepository, registerID string) (Result, error) {
	c := &collector{}

	dockets, err := repo.ListDockets(ctx, registerID)
	if err != nil {
		return Result{}, fmt.Errorf("chainaudit: list dockets: %w", err)
	}
	txs, err := repo.ListTransactions(ctx, registerID)
	if err != nil {
		return Result{}, fmt.Errorf("chainaudit: list transactions: %w", err)
	}
	if len(dockets) == 0 && len(txs) == 0 {
		c.addInfo("register %s has no dockets", registerID)
		return c.result(), nil
	}

	txByID := make(map[string]ledger.Transaction, len(txs))
	for _, tx := range txs {
		txByID[tx.ID] = tx
	}

	for _, tx := range txs {
		if tx.PrevTxID == "" {
			continue
		}
		if _, ok := txByID[tx.PrevTxID]; !ok {
			c.addWarning("transaction %s references prevTxId %s which does not exist", tx.ID, tx.PrevTxID)
		}
	}

	sealed := make(map[string]bool, len(txs))
	for _, d := range dockets {
		if d.State != ledger.DocketSealed {
			continue
		}
		for _, txID := range d.TransactionIDs {
			if _, ok := txByID[txID]; !ok {
				c.addError("docket %s references non-existent transaction %s", d.ID, txID)
				continue
			}
			sealed[txID] = true
		}
	}

	orphaned := 0
	for _, tx := range txs {
		if !sealed[tx.ID] {
			orphaned++
		}
	}
	if orphaned > 0 {
		c.addInfo("%d orphaned transactions", orphaned)
	}

	return c.result(), nil
}

// ValidateCompleteChain runs both audits and merges their findings; IsValid
// is false if either sub-audit reported an error.
func ValidateCompleteChain(ctx context.Context, repo ledger.RegisterRepository, registerID string) (Result, error) {
	docketResult, err := ValidateDocketChain(ctx, repo, registerID)
	if err != nil {
		return Result{}, err
	}
	txResult, err := ValidateTransactionChain(ctx, repo, registerID)
	if err != nil {
		return Result{}, err
	}

	merged := collector{}
	merged.errors = append(merged.errors, docketResult.Errors...)
	merged.errors = append(merged.errors, txResult.Errors...)
	merged.warnings = append(merged.warnings, docketResult.Warnings...)
	merged.warnings = append(merged.warnings, txResult.Warnings...)
	merged.info = append(merged.info, docketResult.Info...)
	merged.info = append(merged.info, txResult.Info...)
	return merged.result(), nil
}

// recomputeDocketHash mirrors pkg/validator's docket builder: bare 64-hex,
// no "0x" prefix.
func recomputeDocketHash(d ledger.Docket) string {
	sortedIDs := append([]string{}, d.TransactionIDs...)
	sort.Strings(sortedIDs)
	concatenated := ""
	for _, id := range sortedIDs {
		concatenated += id
	}
	hashBytes := canon.HashConcat(
		[]byte(d.ID),
		[]byte(d.PreviousHash),
		[]byte(concatenated),
		[]byte(strconv.FormatInt(d.SealedAt.UnixNano(), 10)),
	)
	return fmt.Sprintf("%x", hashBytes)
}
