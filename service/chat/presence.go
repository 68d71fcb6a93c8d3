package chat

import "context"

// Presence mirrors connection lifecycle into an external store so other
// services can ask whether a user is online. It is never on the delivery path.
type Presence interface {
	Online(ctx context.Context, userID, connID string) error
	Offline(ctx context.Context, userID, connID string) error
	Touch(ctx context.Context, userID, connID string) error
}

type nopPresence struct{}

func (nopPresence) Online(context.Context, string, string) error  { return nil }
func (nopPresence) Offline(context.Context, string, string) error { return nil }
func (nopPresence) Touch(context.Context, string, string) error   { return nil }
