package chat

// Handler processes one inbound event type.
type Handler interface {
	Event() string
	Handle(ctx *Context, f *Envelope, conn *Connection) error
}

type Context struct {
	S *Server
}

// TokenVerifier maps an opaque bearer token to a user identity. Any error means
// the token is rejected.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

type VerifierFunc func(token string) (string, error)

func (f VerifierFunc) Verify(token string) (string, error) { return f(token) }

type handlerFunc struct {
	event string
	fn    func(*Context, *Envelope, *Connection) error
}

// HandlerFunc adapts fn to a Handler for event.
func HandlerFunc(event string, fn func(*Context, *Envelope, *Connection) error) Handler {
	return &handlerFunc{event: event, fn: fn}
}

func (h *handlerFunc) Event() string { return h.event }
func (h *handlerFunc) Handle(ctx *Context, f *Envelope, conn *Connection) error {
	return h.fn(ctx, f, conn)
}
