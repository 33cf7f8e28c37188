package sdk

import (
	"strings"
)

// Server is one regional deployment of the Flat server.
type Server struct {
	Region  string
	BaseURL string
	// RoomUUIDPrefix marks room UUIDs created on this server, e.g. "CN-"
	RoomUUIDPrefix string
	// InviteCodePrefix is the leading digit of this server's 11 digit invite codes
	InviteCodePrefix string
	// Legacy servers also own the 10 digit invite codes issued before regions existed
	Legacy bool
}

// DefaultServers returns the production deployments.
func DefaultServers() []Server {
	return []Server{
		{Region: "CN", BaseURL: "https://flat-api.whiteboard.agora.io", RoomUUIDPrefix: "CN-", InviteCodePrefix: "1", Legacy: true},
		{Region: "SG", BaseURL: "https://api.flat.agora.io", RoomUUIDPrefix: "SG-", InviteCodePrefix: "2"},
	}
}

// ServerRegistry routes a room to the server that owns it.
type ServerRegistry struct {
	servers []Server
}

// NewServerRegistry creates a registry. Without servers it uses DefaultServers.
func NewServerRegistry(servers ...Server) *ServerRegistry {
	if len(servers) == 0 {
		servers = DefaultServers()
	}
	return &ServerRegistry{servers: servers}
}

// Servers returns the registered servers.
func (r *ServerRegistry) Servers() []Server {
	return append([]Server(nil), r.servers...)
}

// BaseURLFor returns the base URL of the server owning a room UUID or invite
// code. ok is false when the identifier belongs to no known server and the
// default base URL should be used.
func (r *ServerRegistry) BaseURLFor(id string) (string, bool) {
	if isDigits(id) {
		switch len(id) {
		case 10:
			for _, s := range r.servers {
				if s.Legacy {
					return s.BaseURL, true
				}
			}
		case 11:
			for _, s := range r.servers {
				if s.InviteCodePrefix != "" && strings.HasPrefix(id, s.InviteCodePrefix) {
					return s.BaseURL, true
				}
			}
		}
		return "", false
	}

	for _, s := range r.servers {
		if s.RoomUUIDPrefix != "" && strings.HasPrefix(id, s.RoomUUIDPrefix) {
			return s.BaseURL, true
		}
	}
	return "", false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
