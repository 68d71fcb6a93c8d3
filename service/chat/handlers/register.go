package handlers

import "PPCommunity/service/chat"

// RegisterDefaults installs the built-in inbound handlers on s.
func RegisterDefaults(s *chat.Server) {
	s.Disp().Register(NewPingHandler())
}
