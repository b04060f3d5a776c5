package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrValidationFailed    = NewDomainError("VALIDATION_FAILED", "Validation failed")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrProtectedEntity     = NewDomainError("PROTECTED_ENTITY", "Protected entries cannot be deleted")
	ErrTransactionMisuse   = NewDomainError("TRANSACTION_MISUSE", "Operation requires a correctly managed transaction")
	ErrIntegrityViolation  = NewDomainError("INTEGRITY_VIOLATION", "Stored hash does not match recomputed hash")
)
