package store

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCookieRoundTrip(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Cookie("dash.example.com", "neonddos_session"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession on empty store, got %v", err)
	}

	if err := s.SaveCookie("dash.example.com", &http.Cookie{Name: "neonddos_session", Value: "abc"}); err != nil {
		t.Fatalf("SaveCookie returned error: %v", err)
	}
	if err := s.SaveCookie("dash.example.com", &http.Cookie{Name: "neonddos_session", Value: "def"}); err != nil {
		t.Fatalf("SaveCookie returned error: %v", err)
	}

	value, err := s.Cookie("dash.example.com", "neonddos_session")
	if err != nil {
		t.Fatalf("Cookie returned error: %v", err)
	}
	if value != "def" {
		t.Fatalf("expected latest cookie value def, got %q", value)
	}

	if _, err := s.Cookie("other.example.com", "neonddos_session"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected cookies to be scoped by host, got %v", err)
	}

	if err := s.DeleteCookie("dash.example.com", "neonddos_session"); err != nil {
		t.Fatalf("DeleteCookie returned error: %v", err)
	}
	if _, err := s.Cookie("dash.example.com", "neonddos_session"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession after delete, got %v", err)
	}
	if err := s.DeleteCookie("dash.example.com", "neonddos_session"); err != nil {
		t.Fatalf("deleting a missing cookie should not fail: %v", err)
	}
}

func TestExpiredCookieIsAbsent(t *testing.T) {
	s := newTestStore(t)

	expired := &http.Cookie{Name: "neonddos_session", Value: "old", Expires: time.Now().Add(-time.Hour)}
	if err := s.SaveCookie("h", expired); err != nil {
		t.Fatalf("SaveCookie returned error: %v", err)
	}
	if _, err := s.Cookie("h", "neonddos_session"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected expired cookie to be ignored, got %v", err)
	}
}

func TestQueryLogsFilters(t *testing.T) {
	s := newTestStore(t)

	s.WriteLog("INFO", "stream", "connection established", "")
	s.WriteLog("WARN", "stream", "dropping malformed frame", `{"len":3}`)
	s.WriteLog("ERROR", "login", "login request failed", "")

	result, err := s.QueryLogs(LogQuery{})
	if err != nil {
		t.Fatalf("QueryLogs returned error: %v", err)
	}
	if result.TotalCount != 3 || len(result.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d/%d", len(result.Entries), result.TotalCount)
	}

	result, err = s.QueryLogs(LogQuery{Components: []string{"stream"}, Levels: []string{"warn"}})
	if err != nil {
		t.Fatalf("QueryLogs returned error: %v", err)
	}
	if len(result.Entries) != 1 || result.Entries[0].Message != "dropping malformed frame" {
		t.Fatalf("unexpected filtered entries: %+v", result.Entries)
	}
	if result.Entries[0].Fields != `{"len":3}` {
		t.Fatalf("expected fields to round trip, got %q", result.Entries[0].Fields)
	}

	result, err = s.QueryLogs(LogQuery{Search: "login", Limit: 1})
	if err != nil {
		t.Fatalf("QueryLogs returned error: %v", err)
	}
	if len(result.Entries) != 1 || result.HasMore {
		t.Fatalf("expected one entry without more, got %d (more=%v)", len(result.Entries), result.HasMore)
	}

	result, err = s.QueryLogs(LogQuery{Limit: 2})
	if err != nil {
		t.Fatalf("QueryLogs returned error: %v", err)
	}
	if !result.HasMore {
		t.Fatal("expected HasMore with limit below total")
	}
}

func TestAlerts(t *testing.T) {
	s := newTestStore(t)

	s.WriteAlert("a.example.com", "danger", "first")
	s.WriteAlert("a.example.com", "warning", "second")
	s.WriteAlert("b.example.com", "danger", "other")

	alerts, err := s.RecentAlerts("a.example.com", 10)
	if err != nil {
		t.Fatalf("RecentAlerts returned error: %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(alerts))
	}
	if alerts[0].Message != "second" {
		t.Fatalf("expected newest first, got %q", alerts[0].Message)
	}

	all, err := s.RecentAlerts("", 10)
	if err != nil {
		t.Fatalf("RecentAlerts returned error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 alerts across servers, got %d", len(all))
	}
}

func TestLoggerWritesConsoleAndStore(t *testing.T) {
	s := newTestStore(t)

	var buf bytes.Buffer
	logger := NewLogger(s, "stream")
	logger.SetOutput(&buf)

	logger.Debug("hidden %d", 1)
	logger.WithField("attempt", 2).Info("reconnecting in %s", "6s")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line printed at info level: %q", out)
	}
	if !strings.Contains(out, "[stream] [INFO] reconnecting in 6s {\"attempt\":2}") {
		t.Fatalf("unexpected console output: %q", out)
	}

	result, err := s.QueryLogs(LogQuery{})
	if err != nil {
		t.Fatalf("QueryLogs returned error: %v", err)
	}
	if result.TotalCount != 2 {
		t.Fatalf("expected both entries stored regardless of level, got %d", result.TotalCount)
	}
}

func TestLoggerSetLevel(t *testing.T) {
	logger := Discard()
	if err := logger.SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel returned error: %v", err)
	}
	if err := logger.SetLevel("verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestLoggerSetLevelReachesDerivedLoggers(t *testing.T) {
	var buf bytes.Buffer
	root := NewLogger(nil, "cli")
	root.SetOutput(&buf)
	child := root.Component("stream").WithFields(map[string]interface{}{"attempt": 1})

	child.Debug("before")
	if err := root.SetLevel("DEBUG"); err != nil {
		t.Fatalf("SetLevel returned error: %v", err)
	}
	child.Debug("after")

	out := buf.String()
	if strings.Contains(out, "before") {
		t.Fatalf("debug line printed at info level: %q", out)
	}
	if !strings.Contains(out, "[stream] [DEBUG] after {\"attempt\":1}") {
		t.Fatalf("derived logger did not pick up the level: %q", out)
	}

	if err := child.SetLevel("error"); err != nil {
		t.Fatalf("SetLevel returned error: %v", err)
	}
	buf.Reset()
	root.Warn("quiet")
	if buf.Len() != 0 {
		t.Fatalf("expected warn suppressed at error level, got %q", buf.String())
	}
}

func TestParseTimeRange(t *testing.T) {
	now := time.Date(2024, 1, 17, 14, 35, 10, 0, time.Local) // Wednesday

	tests := []struct {
		earliest string
		want     time.Time
	}{
		{"-15m", now.Add(-15 * time.Minute)},
		{"-1h@h", time.Date(2024, 1, 17, 13, 0, 0, 0, time.Local)},
		{"@d", time.Date(2024, 1, 17, 0, 0, 0, 0, time.Local)},
		{"@w", time.Date(2024, 1, 15, 0, 0, 0, 0, time.Local)},
		{"yesterday", time.Date(2024, 1, 16, 0, 0, 0, 0, time.Local)},
		{"2024-01-10", time.Date(2024, 1, 10, 0, 0, 0, 0, time.Local)},
	}

	for _, tt := range tests {
		tr, err := parseTimeRangeAt(tt.earliest, "now", now)
		if err != nil {
			t.Fatalf("parseTimeRangeAt(%q) returned error: %v", tt.earliest, err)
		}
		if !tr.Start.Equal(tt.want) {
			t.Fatalf("parseTimeRangeAt(%q) start = %s, want %s", tt.earliest, tr.Start, tt.want)
		}
		if !tr.End.Equal(now) {
			t.Fatalf("expected end to be now, got %s", tr.End)
		}
	}

	if _, err := parseTimeRangeAt("now", "-1h", now); err == nil {
		t.Fatal("expected error when earliest is after latest")
	}
	if _, err := parseTimeRangeAt("soon", "now", now); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestStorageStats(t *testing.T) {
	s := newTestStore(t)

	s.WriteLog("INFO", "cli", "one", "")
	s.WriteLog("WARN", "stream", "two", "")
	s.WriteAlert("h", "danger", "X")
	s.SaveCookie("h", &http.Cookie{Name: "neonddos_session", Value: "abc"})

	stats, err := s.GetStorageStats()
	if err != nil {
		t.Fatalf("GetStorageStats returned error: %v", err)
	}
	if stats["log_count"] != 2 || stats["alert_count"] != 1 || stats["session_count"] != 1 {
		t.Fatalf("unexpected counts: %v", stats)
	}
	if _, ok := stats["db_size_mb"]; !ok {
		t.Fatalf("expected database size in %v", stats)
	}

	s.Close()
	if _, err := s.GetStorageStats(); err == nil {
		t.Fatal("expected error from a closed store")
	}
}
