// Package ui provides the terminal dashboard: the model fed by the stream,
// sidebar navigation and rendering.
package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/neonddos/console/internal/protocol"
	"github.com/neonddos/console/internal/store"
	"github.com/neonddos/console/internal/stream"
)

// MaxAlerts is the size of the alert feed.
const MaxAlerts = 50

// Alert is one entry of the alert feed.
type Alert struct {
	Time     time.Time
	Text     string
	Severity stream.Severity
}

// AlertRecorder persists alerts.
type AlertRecorder interface {
	WriteAlert(server, severity, message string) error
}

// Snapshot is a consistent copy of the dashboard model.
type Snapshot struct {
	Authenticated bool
	AuthMessage   string
	Stats         *protocol.Stats
	Live          *protocol.StatsUpdate
	Attacks       []protocol.AttackRecord
	Connections   []protocol.ConnectionRecord
	Alerts        []Alert // newest first
	Updated       time.Time
}

// Dashboard is the model the stream handlers write into. It implements
// stream.Handler and stream.Alerter and is safe for concurrent use.
type Dashboard struct {
	mu   sync.RWMutex
	snap Snapshot

	server   string
	recorder AlertRecorder
	log      *store.Logger
	changed  chan struct{}
	now      func() time.Time
}

// NewDashboard creates an empty dashboard for server. recorder and logger
// may be nil.
func NewDashboard(server string, recorder AlertRecorder, logger *store.Logger) *Dashboard {
	if logger == nil {
		logger = store.Discard()
	}
	return &Dashboard{
		server:   server,
		recorder: recorder,
		log:      logger,
		changed:  make(chan struct{}, 1),
		now:      time.Now,
	}
}

// Changed is signalled after every update. Signals are coalesced.
func (d *Dashboard) Changed() <-chan struct{} { return d.changed }

// Snapshot returns a copy of the current model.
func (d *Dashboard) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s := d.snap
	s.Attacks = append([]protocol.AttackRecord(nil), d.snap.Attacks...)
	s.Connections = append([]protocol.ConnectionRecord(nil), d.snap.Connections...)
	s.Alerts = append([]Alert(nil), d.snap.Alerts...)
	return s
}

func (d *Dashboard) update(fn func(s *Snapshot)) {
	d.mu.Lock()
	fn(&d.snap)
	d.snap.Updated = d.now()
	d.mu.Unlock()

	select {
	case d.changed <- struct{}{}:
	default:
	}
}

// HandleAuth records the result of the stream authentication.
func (d *Dashboard) HandleAuth(m *protocol.AuthResult) {
	d.update(func(s *Snapshot) {
		s.Authenticated = m.Success
		s.AuthMessage = m.Message
	})
	if !m.Success {
		text := m.Message
		if text == "" {
			text = "Authentication failed"
		}
		d.ShowAlert(text, stream.SeverityWarning)
	}
}

// HandleStats replaces the statistics snapshot.
func (d *Dashboard) HandleStats(m *protocol.Stats) {
	stats := *m
	stats.BlockedIPList = append([]string(nil), m.BlockedIPList...)
	d.update(func(s *Snapshot) { s.Stats = &stats })
}

// HandleAttackData replaces the attack history.
func (d *Dashboard) HandleAttackData(m *protocol.AttackData) {
	attacks := append([]protocol.AttackRecord(nil), m.Attacks...)
	d.update(func(s *Snapshot) { s.Attacks = attacks })
}

// HandleConnectionData replaces the connection table.
func (d *Dashboard) HandleConnectionData(m *protocol.ConnectionData) {
	conns := append([]protocol.ConnectionRecord(nil), m.Connections...)
	d.update(func(s *Snapshot) { s.Connections = conns })
}

// HandleAttackAlert raises an alert for a detected attack.
func (d *Dashboard) HandleAttackAlert(m *protocol.AttackAlert) {
	attackType := m.AttackType
	if attackType == "" {
		attackType = "unknown"
	}
	d.ShowAlert(fmt.Sprintf("Attack detected from %s (%s, score %d)", m.IP, attackType, m.Score), stream.SeverityWarning)
}

// HandleStatsUpdate replaces the live counters.
func (d *Dashboard) HandleStatsUpdate(m *protocol.StatsUpdate) {
	live := *m
	d.update(func(s *Snapshot) { s.Live = &live })
}

// ShowAlert adds an alert to the top of the feed.
func (d *Dashboard) ShowAlert(text string, severity stream.Severity) {
	a := Alert{Time: d.now(), Text: text, Severity: severity}
	d.update(func(s *Snapshot) {
		s.Alerts = append([]Alert{a}, s.Alerts...)
		if len(s.Alerts) > MaxAlerts {
			s.Alerts = s.Alerts[:MaxAlerts]
		}
	})
	if d.recorder != nil {
		if err := d.recorder.WriteAlert(d.server, string(severity), text); err != nil {
			d.log.Warn("Failed to record alert: %v", err)
		}
	}
}
