package notify

import (
	"PPCommunity/service/chat"
)

// Broadcaster delivers an event to every open connection of the given users.
type Broadcaster interface {
	Broadcast(userIDs []string, event string, payload any)
}

type MessageNew struct {
	ConversationID string `json:"conversationId"`
	Message        any    `json:"message"`
}

type ConversationRead struct {
	ConversationID string `json:"conversationId"`
}

// Notifier is what REST handlers call after their write commits. Every call
// is best effort and returns nothing.
type Notifier struct {
	b Broadcaster
}

func NewNotifier(b Broadcaster) *Notifier {
	return &Notifier{b: b}
}

// MessageCreated pushes message:new to the conversation's recipients.
func (n *Notifier) MessageCreated(recipients []string, conversationID string, message any) {
	n.b.Broadcast(recipients, chat.EventMessageNew, MessageNew{ConversationID: conversationID, Message: message})
}

// ConversationRead pushes conversation:read to the reader's other tabs and
// to the other participants.
func (n *Notifier) ConversationRead(userIDs []string, conversationID string) {
	n.b.Broadcast(userIDs, chat.EventConversationRead, ConversationRead{ConversationID: conversationID})
}

func (n *Notifier) Publish(userIDs []string, event string, payload any) {
	n.b.Broadcast(userIDs, event, payload)
}
