package services

import "fmt"

type ErrorKind string

const (
	KindValidation           ErrorKind = "validation"
	KindDuplicateEmail       ErrorKind = "duplicate_email"
	KindInvalidCredentials   ErrorKind = "invalid_credentials"
	KindInsufficientFunds    ErrorKind = "insufficient_funds"
	KindInsufficientHoldings ErrorKind = "insufficient_holdings"
	KindUnauthorized         ErrorKind = "unauthorized"
	KindTransaction          ErrorKind = "transaction"
)

// Error is returned by every service operation that fails for a reason the
// caller can act on. Message is safe to show to end users.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the Err* values below can be
// used with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrValidation           = &Error{Kind: KindValidation, Message: "Datos inválidos"}
	ErrDuplicateEmail       = &Error{Kind: KindDuplicateEmail, Message: "El email ya está registrado"}
	ErrInvalidCredentials   = &Error{Kind: KindInvalidCredentials, Message: "Credenciales inválidas"}
	ErrInsufficientFunds    = &Error{Kind: KindInsufficientFunds, Message: "Saldo insuficiente"}
	ErrInsufficientHoldings = &Error{Kind: KindInsufficientHoldings, Message: "No tienes esta criptomoneda para vender"}
	ErrUnauthorized         = &Error{Kind: KindUnauthorized, Message: "Sesión inválida o expirada"}
	ErrTransaction          = &Error{Kind: KindTransaction, Message: "Error al procesar la transacción"}
)

var errOutOfRange = validationError("Monto fuera de rango")

func validationError(message string) error {
	return &Error{Kind: KindValidation, Message: message}
}

func transactionError(message string, err error) error {
	return &Error{Kind: KindTransaction, Message: message, Err: err}
}
