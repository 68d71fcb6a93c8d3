package chat

import (
	"sync/atomic"

	"PPCommunity/tools/safe"

	"go.uber.org/zap"
)

// Broadcaster pushes events to every open connection of a set of users.
// Delivery is best effort: offline users, half-closed connections and full
// send queues are skipped, and Broadcast never reports an error.
type Broadcaster struct {
	reg *Registry
	log *zap.Logger

	sent    atomic.Uint64
	dropped atomic.Uint64
}

func NewBroadcaster(reg *Registry, log *zap.Logger) *Broadcaster {
	if log == nil {
		log = zap.NewNop()
	}
	return &Broadcaster{reg: reg, log: log}
}

// Broadcast serializes {event, data: payload} once and queues it on every open
// connection of userIDs. A user listed twice is notified once.
func (b *Broadcaster) Broadcast(userIDs []string, event string, payload any) {
	defer safe.Recover(b.log, "broadcast", nil)

	if len(userIDs) == 0 {
		return
	}
	if event == "" {
		b.log.Warn("[fanout] empty event name, skipped")
		return
	}
	frame, err := EncodeFrame(event, payload)
	if err != nil {
		b.log.Error("[fanout] encode failed", zap.String("event", event), zap.Error(err))
		return
	}

	seen := make(map[string]struct{}, len(userIDs))
	for _, uid := range userIDs {
		if _, dup := seen[uid]; dup {
			continue
		}
		seen[uid] = struct{}{}

		for _, c := range b.reg.ConnectionsFor(uid) {
			if !c.IsOpen() {
				continue
			}
			if c.Send(frame) {
				b.sent.Add(1)
			} else {
				b.dropped.Add(1)
			}
		}
	}
}

// Stats returns the number of frames queued and dropped so far.
func (b *Broadcaster) Stats() (sent, dropped uint64) {
	return b.sent.Load(), b.dropped.Load()
}
