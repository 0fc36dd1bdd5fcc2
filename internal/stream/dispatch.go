// Package stream maintains the dashboard's WebSocket subscription and routes
// pushed messages to their handlers.
package stream

import "github.com/neonddos/console/internal/protocol"

// Severity of a user-visible alert.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)

// Handler receives the data messages of the stream.
type Handler interface {
	HandleAuth(*protocol.AuthResult)
	HandleStats(*protocol.Stats)
	HandleAttackData(*protocol.AttackData)
	HandleConnectionData(*protocol.ConnectionData)
	HandleAttackAlert(*protocol.AttackAlert)
	HandleStatsUpdate(*protocol.StatsUpdate)
}

// Alerter surfaces a message to the user.
type Alerter interface {
	ShowAlert(text string, severity Severity)
}

// Dispatcher routes each message to exactly one handler.
type Dispatcher struct {
	handler Handler
	alerts  Alerter
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(h Handler, a Alerter) *Dispatcher {
	return &Dispatcher{handler: h, alerts: a}
}

// Dispatch hands msg to its handler. Server errors go to the alerter;
// unknown kinds are ignored.
func (d *Dispatcher) Dispatch(msg protocol.Message) {
	switch m := msg.(type) {
	case *protocol.AuthResult:
		d.handler.HandleAuth(m)
	case *protocol.Stats:
		d.handler.HandleStats(m)
	case *protocol.AttackData:
		d.handler.HandleAttackData(m)
	case *protocol.ConnectionData:
		d.handler.HandleConnectionData(m)
	case *protocol.AttackAlert:
		d.handler.HandleAttackAlert(m)
	case *protocol.StatsUpdate:
		d.handler.HandleStatsUpdate(m)
	case *protocol.ServerError:
		d.alerts.ShowAlert(m.Message, SeverityDanger)
	case *protocol.Unknown:
	}
}
