package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/neonddos/console/internal/protocol"
	"github.com/neonddos/console/internal/store"
	"github.com/neonddos/console/internal/stream"
)

// kindAlert labels alerts raised by the dispatcher or the connection manager.
const kindAlert protocol.Kind = "alert"

// printer writes each dispatched message as one line of text or JSON.
type printer struct {
	mu       sync.Mutex
	out      io.Writer
	json     bool
	server   string
	recorder alertRecorder
	log      *store.Logger
	now      func() time.Time
}

type alertRecorder interface {
	WriteAlert(server, severity, message string) error
}

func newPrinter(out io.Writer, asJSON bool, server string, recorder alertRecorder, logger *store.Logger) *printer {
	if logger == nil {
		logger = store.Discard()
	}
	return &printer{out: out, json: asJSON, server: server, recorder: recorder, log: logger, now: time.Now}
}

// line is the JSON form of a printed message.
type line struct {
	Time     string          `json:"time"`
	Type     protocol.Kind   `json:"type"`
	Severity stream.Severity `json:"severity,omitempty"`
	Data     interface{}     `json:"data"`
}

func (p *printer) emit(kind protocol.Kind, severity stream.Severity, data interface{}, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ts := p.now()
	if p.json {
		b, err := json.Marshal(line{Time: ts.Format(time.RFC3339), Type: kind, Severity: severity, Data: data})
		if err != nil {
			return
		}
		fmt.Fprintln(p.out, string(b))
		return
	}
	fmt.Fprintf(p.out, "%s %-14s %s\n", ts.Format("15:04:05"), kind, text)
}

func (p *printer) HandleAuth(m *protocol.AuthResult) {
	text := "authenticated"
	if !m.Success {
		text = "authentication failed"
		if m.Message != "" {
			text += ": " + m.Message
		}
	}
	p.emit(protocol.KindAuth, "", m, text)
}

func (p *printer) HandleStats(m *protocol.Stats) {
	text := fmt.Sprintf("attacks=%d blocked=%d monitoring=%t", m.DetectedAttacks, m.BlockedIPs, m.ActiveMonitoring)
	if len(m.BlockedIPList) > 0 {
		text += " [" + strings.Join(m.BlockedIPList, " ") + "]"
	}
	p.emit(protocol.KindStats, "", m, text)
}

func (p *printer) HandleAttackData(m *protocol.AttackData) {
	p.emit(protocol.KindAttackData, "", m, fmt.Sprintf("%d attacks", len(m.Attacks)))
}

func (p *printer) HandleConnectionData(m *protocol.ConnectionData) {
	blocked := 0
	for _, c := range m.Connections {
		if c.Blocked {
			blocked++
		}
	}
	p.emit(protocol.KindConnectionData, "", m, fmt.Sprintf("%d connections, %d blocked", len(m.Connections), blocked))
}

func (p *printer) HandleAttackAlert(m *protocol.AttackAlert) {
	text := fmt.Sprintf("%s%s %s score=%d%s", colorYellow, m.IP, m.AttackType, m.Score, colorReset)
	p.emit(protocol.KindAttackAlert, stream.SeverityWarning, m, text)
	p.record(stream.SeverityWarning, fmt.Sprintf("Attack detected from %s (%s, score %d)", m.IP, m.AttackType, m.Score))
}

func (p *printer) HandleStatsUpdate(m *protocol.StatsUpdate) {
	p.emit(protocol.KindStatsUpdate, "", m,
		fmt.Sprintf("load=%.1f%% tracking=%d cps=%.1f", m.ServerLoad, m.TrackingIPs, m.ConnectionsPerSecond))
}

func (p *printer) ShowAlert(text string, severity stream.Severity) {
	color := colorBlue
	switch severity {
	case stream.SeverityDanger:
		color = colorRed
	case stream.SeverityWarning:
		color = colorYellow
	}
	p.emit(kindAlert, severity, map[string]string{"message": text}, color+text+colorReset)
	p.record(severity, text)
}

func (p *printer) record(severity stream.Severity, text string) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.WriteAlert(p.server, string(severity), text); err != nil {
		p.log.Warn("Failed to record alert: %v", err)
	}
}
