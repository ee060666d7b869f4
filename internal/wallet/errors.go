package wallet

// Error is a caller-correctable business rejection. Code is a stable
// machine-readable reason, distinct from the human-readable message.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	// ErrInvalidAmount rejects non-positive mutation amounts before any I/O.
	ErrInvalidAmount = &Error{Code: "INVALID_AMOUNT", Message: "amount must be greater than zero"}

	// ErrSameAccount rejects transfers where sender and recipient match.
	ErrSameAccount = &Error{Code: "SAME_ACCOUNT", Message: "cannot transfer to the same account"}

	// ErrRateLimited rejects a mutation while a guard marker is armed.
	ErrRateLimited = &Error{Code: "RATE_LIMITED", Message: "too many attempts, try again later"}

	// ErrNotFound indicates no wallet exists for the owner.
	ErrNotFound = &Error{Code: "NOT_FOUND", Message: "wallet not found"}

	// ErrWalletInactive indicates the wallet is not accepting mutations.
	ErrWalletInactive = &Error{Code: "WALLET_INACTIVE", Message: "wallet is not active"}

	// ErrInsufficientFunds indicates the ledger balance cannot cover the debit.
	ErrInsufficientFunds = &Error{Code: "INSUFFICIENT_FUNDS", Message: "insufficient funds"}

	// ErrInvalidPIN indicates the transaction PIN did not match.
	ErrInvalidPIN = &Error{Code: "INVALID_PIN", Message: "invalid pin"}

	// ErrTooManyAttempts indicates the PIN failure lockout is active.
	ErrTooManyAttempts = &Error{Code: "TOO_MANY_ATTEMPTS", Message: "too many failed pin attempts, try again later"}
)
