package updater

import "fmt"

// ErrorCode classifies update failures. The API layer maps codes to
// HTTP statuses.
type ErrorCode string

const (
	ErrCodeInvalidState   ErrorCode = "INVALID_STATE"
	ErrCodeCheckFailed    ErrorCode = "CHECK_FAILED"
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrCodeNoUpdate       ErrorCode = "NO_UPDATE"
	ErrCodeApplyFailed    ErrorCode = "APPLY_FAILED"
	ErrCodeBackupFailed   ErrorCode = "BACKUP_FAILED"
	ErrCodeRollbackFailed ErrorCode = "ROLLBACK_FAILED"
	ErrCodeNoBackup       ErrorCode = "NO_BACKUP"
	ErrCodeDisabled       ErrorCode = "DISABLED"
)

// Error is an update failure with a stable code.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func newError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }
