package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/neonddos/console/internal/cli"
	"github.com/neonddos/console/internal/protocol"
	"github.com/neonddos/console/internal/store"
	"github.com/neonddos/console/internal/stream"
)

type recordedAlerts []string

func (r *recordedAlerts) WriteAlert(server, severity, message string) error {
	*r = append(*r, server+"|"+severity+"|"+message)
	return nil
}

func fixedPrinter(asJSON bool, rec alertRecorder) (*printer, *bytes.Buffer) {
	var buf bytes.Buffer
	p := newPrinter(&buf, asJSON, "shield.example.com", rec, nil)
	p.now = func() time.Time { return time.Date(2024, 1, 17, 14, 35, 10, 0, time.UTC) }
	return p, &buf
}

func TestPrinterText(t *testing.T) {
	p, buf := fixedPrinter(false, nil)
	d := stream.NewDispatcher(p, p)

	msg, err := protocol.Decode([]byte(`{"type":"statsUpdate","currentServerLoad":42.5,"trackingIpsCount":3,"connectionsPerSecond":1.5}`))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	d.Dispatch(msg)

	got := buf.String()
	want := "14:35:10 statsUpdate    load=42.5% tracking=3 cps=1.5\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestPrinterJSON(t *testing.T) {
	rec := &recordedAlerts{}
	p, buf := fixedPrinter(true, rec)
	d := stream.NewDispatcher(p, p)

	msg, err := protocol.Decode([]byte(`{"type":"error","message":"X"}`))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	d.Dispatch(msg)

	var l struct {
		Time     string            `json:"time"`
		Type     string            `json:"type"`
		Severity string            `json:"severity"`
		Data     map[string]string `json:"data"`
	}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &l); err != nil {
		t.Fatalf("output is not one JSON line: %v (%q)", err, buf.String())
	}
	if l.Type != "alert" || l.Severity != "danger" || l.Data["message"] != "X" {
		t.Fatalf("unexpected line: %+v", l)
	}
	if len(*rec) != 1 || (*rec)[0] != "shield.example.com|danger|X" {
		t.Fatalf("unexpected recorded alerts: %v", *rec)
	}
}

func TestPrinterAttackAlertRecorded(t *testing.T) {
	rec := &recordedAlerts{}
	p, buf := fixedPrinter(false, rec)

	p.HandleAttackAlert(&protocol.AttackAlert{IP: "9.9.9.9", AttackType: "BURST", Score: 91})

	if !strings.Contains(buf.String(), "9.9.9.9 BURST score=91") {
		t.Fatalf("unexpected output %q", buf.String())
	}
	if len(*rec) != 1 || (*rec)[0] != "shield.example.com|warning|Attack detected from 9.9.9.9 (BURST, score 91)" {
		t.Fatalf("unexpected recorded alerts: %v", *rec)
	}
}

type brokenRecorder struct{}

func (brokenRecorder) WriteAlert(server, severity, message string) error {
	return errors.New("disk full")
}

func TestPrinterLogsRecorderFailure(t *testing.T) {
	var logs bytes.Buffer
	logger := store.NewLogger(nil, "watch")
	logger.SetOutput(&logs)

	var buf bytes.Buffer
	p := newPrinter(&buf, false, "h", brokenRecorder{}, logger)
	p.ShowAlert("Connection to server lost. Please refresh the page.", stream.SeverityDanger)

	if !strings.Contains(buf.String(), "Connection to server lost") {
		t.Fatalf("alert not printed: %q", buf.String())
	}
	if !strings.Contains(logs.String(), "[watch] [WARN] Failed to record alert: disk full") {
		t.Fatalf("unexpected log output %q", logs.String())
	}
}

func TestPrintErrorSkipsReportedLoginErrors(t *testing.T) {
	var buf bytes.Buffer
	printError(&buf, fmt.Errorf("%w: bad creds", cli.ErrRejected))
	printError(&buf, cli.ErrValidation)
	if buf.Len() != 0 {
		t.Fatalf("expected login view errors not to be repeated, got %q", buf.String())
	}

	printError(&buf, errors.New(`invalid server "x"`))
	if buf.String() != "Error: invalid server \"x\"\n" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestPrintStorageStats(t *testing.T) {
	var buf bytes.Buffer
	printStorageStats(&buf, map[string]float64{"db_size_mb": 1.5, "log_count": 12, "alert_count": 3, "session_count": 1})

	out := buf.String()
	for _, want := range []string{"1.50 MB (limit 20 MB)", "Logs:      12", "Alerts:    3", "Sessions:  1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}
