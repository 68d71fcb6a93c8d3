package errs

import "github.com/gorilla/websocket"

// WebSocket close codes used by the gateway. 4000-4999 are reserved for
// applications by RFC 6455.
const (
	CloseTokenRequired = 4001
	CloseTokenInvalid  = 4002
	CloseInternalError = websocket.CloseInternalServerErr // 1011
	CloseGoingAway     = websocket.CloseGoingAway         // 1001
)

const (
	BadRequestError   = 400
	UnauthorizedError = 401
	NotFoundError     = 404
)

var (
	ErrTokenRequired = NewCodeError(CloseTokenRequired, "token required")
	ErrTokenInvalid  = NewCodeError(CloseTokenInvalid, "invalid token")
	ErrInternal      = NewCodeError(CloseInternalError, "internal error")
	ErrGoingAway     = NewCodeError(CloseGoingAway, "server shutting down")

	ErrBadRequest   = NewCodeError(BadRequestError, "bad request")
	ErrUnauthorized = NewCodeError(UnauthorizedError, "unauthorized")
	ErrNotFound     = NewCodeError(NotFoundError, "not found")
)

// CloseCode maps err to the close code a connection should be terminated with.
// Errors that carry a code in the application range, 1001 or 1011 keep it;
// anything else is an internal error.
func CloseCode(err error) int {
	if err == nil {
		return websocket.CloseNormalClosure
	}
	if ce, ok := AsCode(err); ok {
		if ce.Code == CloseInternalError || ce.Code == CloseGoingAway || (ce.Code >= 4000 && ce.Code <= 4999) {
			return ce.Code
		}
	}
	return CloseInternalError
}
