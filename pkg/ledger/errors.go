package ledger

import "errors"

// Sentinel errors returned by RegisterRepository implementations. Callers
// should check against these with errors.Is rather than inspecting driver-
// specific error text.
var (
	ErrRegisterNotFound    = errors.New("ledger: register not found")
	ErrTransactionNotFound = errors.New("ledger: transaction not found")
	ErrDocketNotFound      = errors.New("ledger: docket not found")
	ErrDuplicateID         = errors.New("ledger: id already exists")
)
