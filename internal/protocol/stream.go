// Package protocol defines the wire messages exchanged with the NeonDDoS dashboard backend.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Stream protocol messages on the /ws endpoint. All frames are JSON text
// frames carrying a "type" tag.

// StreamPath is the WebSocket endpoint path on the dashboard host.
const StreamPath = "/ws"

// Kind is the "type" tag of a stream message.
type Kind string

// Inbound kinds.
const (
	KindAuth           Kind = "auth"
	KindStats          Kind = "stats"
	KindAttackData     Kind = "attackData"
	KindConnectionData Kind = "connectionData"
	KindAttackAlert    Kind = "attackAlert"
	KindStatsUpdate    Kind = "statsUpdate"
	KindError          Kind = "error"
)

// Outbound kinds.
const (
	KindSubscribe Kind = "subscribe"
)

// EventStats is the only event the dashboard subscribes to.
const EventStats = "stats"

// ErrMissingType is returned by Decode for frames without a "type" tag.
var ErrMissingType = errors.New("message has no type")

// Message is an inbound stream message. The concrete type is one of
// *AuthResult, *Stats, *AttackData, *ConnectionData, *AttackAlert,
// *StatsUpdate, *ServerError or *Unknown.
type Message interface {
	Kind() Kind
}

// AuthResult answers an auth request.
type AuthResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Stats is the full statistics snapshot pushed after subscribing.
type Stats struct {
	DetectedAttacks  int      `json:"detectedAttacks"`
	BlockedIPs       int      `json:"blockedIps"`
	ActiveMonitoring bool     `json:"activeMonitoring"`
	BlockedIPList    []string `json:"blockedIpList,omitempty"`
}

// AttackRecord is a single recorded attack.
type AttackRecord struct {
	IP         string `json:"ip"`
	AttackType string `json:"attackType"`
	Severity   int    `json:"severity"`
	Timestamp  string `json:"timestamp,omitempty"`
}

// AttackData carries the recent attack history.
type AttackData struct {
	Attacks []AttackRecord `json:"attacks"`
}

// ConnectionRecord is the connection counter for one source address.
type ConnectionRecord struct {
	IP              string `json:"ip"`
	ConnectionCount int    `json:"connectionCount"`
	Blocked         bool   `json:"blocked"`
}

// ConnectionData carries the per-address connection table.
type ConnectionData struct {
	Connections []ConnectionRecord `json:"connections"`
}

// AttackAlert is pushed when the detector flags an address.
type AttackAlert struct {
	IP         string `json:"ip"`
	AttackType string `json:"attackType"`
	Score      int    `json:"score"`
}

// StatsUpdate is the lightweight live counter pushed periodically.
type StatsUpdate struct {
	ServerLoad           float64 `json:"currentServerLoad"`
	TrackingIPs          int     `json:"trackingIpsCount"`
	ConnectionsPerSecond float64 `json:"connectionsPerSecond"`
}

// ServerError is an error pushed by the server.
type ServerError struct {
	Message string `json:"message"`
}

// Unknown is any message whose type tag is not recognised.
type Unknown struct {
	Type string
}

func (*AuthResult) Kind() Kind     { return KindAuth }
func (*Stats) Kind() Kind          { return KindStats }
func (*AttackData) Kind() Kind     { return KindAttackData }
func (*ConnectionData) Kind() Kind { return KindConnectionData }
func (*AttackAlert) Kind() Kind    { return KindAttackAlert }
func (*StatsUpdate) Kind() Kind    { return KindStatsUpdate }
func (*ServerError) Kind() Kind    { return KindError }
func (u *Unknown) Kind() Kind      { return Kind(u.Type) }

// Decode parses one text frame into its message variant. Only the "type"
// tag is required: payload fields of the wrong JSON type are coerced where
// possible and left at their zero value otherwise, so a frame with a known
// tag always yields its variant.
func Decode(data []byte) (Message, error) {
	var f fields
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse frame: %w", err)
	}
	rawType, ok := f["type"]
	if !ok || isNull(rawType) {
		return nil, ErrMissingType
	}
	var tag string
	if err := json.Unmarshal(rawType, &tag); err != nil {
		return nil, fmt.Errorf("failed to parse frame type: %w", err)
	}

	switch Kind(tag) {
	case KindAuth:
		return &AuthResult{Success: f.boolean("success"), Message: f.str("message")}, nil
	case KindStats:
		return &Stats{
			DetectedAttacks:  f.integer("detectedAttacks"),
			BlockedIPs:       f.integer("blockedIps"),
			ActiveMonitoring: f.boolean("activeMonitoring"),
			BlockedIPList:    f.strList("blockedIpList"),
		}, nil
	case KindAttackData:
		m := &AttackData{}
		for _, a := range f.objects("attacks") {
			m.Attacks = append(m.Attacks, AttackRecord{
				IP:         a.str("ip"),
				AttackType: a.str("attackType"),
				Severity:   a.integer("severity"),
				Timestamp:  a.str("timestamp"),
			})
		}
		return m, nil
	case KindConnectionData:
		m := &ConnectionData{}
		for _, c := range f.objects("connections") {
			m.Connections = append(m.Connections, ConnectionRecord{
				IP:              c.str("ip"),
				ConnectionCount: c.integer("connectionCount"),
				Blocked:         c.boolean("blocked"),
			})
		}
		return m, nil
	case KindAttackAlert:
		return &AttackAlert{IP: f.str("ip"), AttackType: f.str("attackType"), Score: f.integer("score")}, nil
	case KindStatsUpdate:
		return &StatsUpdate{
			ServerLoad:           f.number("currentServerLoad"),
			TrackingIPs:          f.integer("trackingIpsCount"),
			ConnectionsPerSecond: f.number("connectionsPerSecond"),
		}, nil
	case KindError:
		return &ServerError{Message: f.str("message")}, nil
	default:
		return &Unknown{Type: tag}, nil
	}
}

// AuthRequest authenticates the stream with a session identifier.
type AuthRequest struct {
	Type      Kind   `json:"type"`
	SessionID string `json:"sessionId"`
}

// NewAuthRequest builds the auth frame for a session.
func NewAuthRequest(sessionID string) AuthRequest {
	return AuthRequest{Type: KindAuth, SessionID: sessionID}
}

// SubscribeRequest subscribes the stream to a server event.
type SubscribeRequest struct {
	Type  Kind   `json:"type"`
	Event string `json:"event"`
}

// NewSubscribeRequest builds the subscribe frame for an event.
func NewSubscribeRequest(event string) SubscribeRequest {
	return SubscribeRequest{Type: KindSubscribe, Event: event}
}
