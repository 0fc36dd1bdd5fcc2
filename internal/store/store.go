// Package store provides SQLite-based local storage for the console: the
// session cookie jar, client logs with Splunk-like querying and the alert history.
package store

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const (
	// MaxStorageBytes is the maximum storage size (20MB)
	MaxStorageBytes = 20 * 1024 * 1024

	// LogsRetention is default log retention (7 days, subject to size limit)
	LogsRetention = 7 * 24 * time.Hour

	// AlertsRetention is how long the alert history is kept (30 days)
	AlertsRetention = 30 * 24 * time.Hour

	// DBFile is the database file name inside the data directory.
	DBFile = "console.db"
)

// Store manages SQLite storage for sessions, logs and alerts.
type Store struct {
	db        *sql.DB
	dbPath    string
	mu        sync.RWMutex
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// LogEntry represents a single log entry.
type LogEntry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"` // DEBUG, INFO, WARN, ERROR
	Component string    `json:"component"`
	Message   string    `json:"message"`
	Fields    string    `json:"fields,omitempty"` // JSON-encoded extra fields
}

// AlertEntry is a persisted dashboard alert.
type AlertEntry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Server    string    `json:"server"`
	Severity  string    `json:"severity"`
	Message   string    `json:"message"`
}

// New creates a new Store instance.
func New(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, DBFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{
		db:       db,
		dbPath:   dbPath,
		stopChan: make(chan struct{}),
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	s.wg.Add(1)
	go s.maintenanceLoop()

	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	-- Logs table
	CREATE TABLE IF NOT EXISTS logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp INTEGER NOT NULL,  -- Unix timestamp in milliseconds
		level TEXT NOT NULL,
		component TEXT NOT NULL,
		message TEXT NOT NULL,
		fields TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_logs_timestamp ON logs(timestamp);
	CREATE INDEX IF NOT EXISTS idx_logs_level ON logs(level);
	CREATE INDEX IF NOT EXISTS idx_logs_component ON logs(component);

	-- Session cookies, one per server host and cookie name
	CREATE TABLE IF NOT EXISTS sessions (
		host TEXT NOT NULL,
		name TEXT NOT NULL,
		value TEXT NOT NULL,
		expires INTEGER,             -- Unix timestamp in milliseconds, NULL = session
		updated INTEGER NOT NULL,
		PRIMARY KEY (host, name)
	);

	-- Alerts raised on the dashboard
	CREATE TABLE IF NOT EXISTS alerts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp INTEGER NOT NULL,
		server TEXT NOT NULL,
		severity TEXT NOT NULL,
		message TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_alerts_timestamp ON alerts(timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// WriteLog writes a log entry.
func (s *Store) WriteLog(level, component, message, fields string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"INSERT INTO logs (timestamp, level, component, message, fields) VALUES (?, ?, ?, ?, ?)",
		time.Now().UnixMilli(), level, component, message, fields,
	)
	return err
}

// WriteAlert records an alert raised for a server.
func (s *Store) WriteAlert(server, severity, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"INSERT INTO alerts (timestamp, server, severity, message) VALUES (?, ?, ?, ?)",
		time.Now().UnixMilli(), server, severity, message,
	)
	return err
}

// RecentAlerts returns the newest alerts, optionally for one server.
func (s *Store) RecentAlerts(server string, limit int) ([]AlertEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, timestamp, server, severity, message FROM alerts"
	var args []interface{}
	if server != "" {
		query += " WHERE server = ?"
		args = append(args, server)
	}
	query += " ORDER BY timestamp DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var alerts []AlertEntry
	for rows.Next() {
		var a AlertEntry
		var ts int64
		if err := rows.Scan(&a.ID, &ts, &a.Server, &a.Severity, &a.Message); err != nil {
			return nil, err
		}
		a.Timestamp = time.UnixMilli(ts)
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// Close closes the store. Safe to call multiple times.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *Store) maintenanceLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.enforceRetention()
			s.enforceStorageLimit()
		}
	}
}

func (s *Store) enforceRetention() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	cutoff := now.Add(-LogsRetention).UnixMilli()
	s.db.Exec("DELETE FROM logs WHERE timestamp < ?", cutoff)

	cutoff = now.Add(-AlertsRetention).UnixMilli()
	s.db.Exec("DELETE FROM alerts WHERE timestamp < ?", cutoff)

	s.db.Exec("DELETE FROM sessions WHERE expires IS NOT NULL AND expires < ?", now.UnixMilli())
}

func (s *Store) enforceStorageLimit() {
	info, err := os.Stat(s.dbPath)
	if err != nil {
		return
	}

	if info.Size() < MaxStorageBytes {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	log.Printf("[store] Storage limit reached (%d bytes), evicting old logs", info.Size())

	// Delete oldest 20% of logs
	s.db.Exec(`
		DELETE FROM logs WHERE id IN (
			SELECT id FROM logs ORDER BY timestamp ASC LIMIT (SELECT COUNT(*) / 5 FROM logs)
		)
	`)

	s.db.Exec("VACUUM")
}

// GetStorageStats returns the database size and row counts.
func (s *Store) GetStorageStats() (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]float64)

	info, err := os.Stat(s.dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat database: %w", err)
	}
	stats["db_size_mb"] = float64(info.Size()) / (1024 * 1024)

	for key, table := range map[string]string{
		"log_count":     "logs",
		"alert_count":   "alerts",
		"session_count": "sessions",
	} {
		var count int64
		if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		stats[key] = float64(count)
	}

	return stats, nil
}
