package store

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrNoSession is returned when no cookie is stored for a host.
var ErrNoSession = errors.New("no session stored")

// SaveCookie stores a cookie for a server host, replacing any previous value.
func (s *Store) SaveCookie(host string, c *http.Cookie) error {
	var expires interface{}
	if !c.Expires.IsZero() {
		expires = c.Expires.UnixMilli()
	}
	if c.MaxAge > 0 {
		expires = time.Now().Add(time.Duration(c.MaxAge) * time.Second).UnixMilli()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO sessions (host, name, value, expires, updated) VALUES (?, ?, ?, ?, ?)",
		host, c.Name, c.Value, expires, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save cookie: %w", err)
	}
	return nil
}

// Cookie returns the stored value of a cookie for a host.
// Expired cookies are treated as absent.
func (s *Store) Cookie(host, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	var expires sql.NullInt64
	err := s.db.QueryRow(
		"SELECT value, expires FROM sessions WHERE host = ? AND name = ?",
		host, name,
	).Scan(&value, &expires)
	if err == sql.ErrNoRows {
		return "", ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("failed to read cookie: %w", err)
	}

	if expires.Valid && expires.Int64 < time.Now().UnixMilli() {
		return "", ErrNoSession
	}
	return value, nil
}

// DeleteCookie removes a stored cookie. Deleting a missing cookie is not an error.
func (s *Store) DeleteCookie(host, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM sessions WHERE host = ? AND name = ?", host, name); err != nil {
		return fmt.Errorf("failed to delete cookie: %w", err)
	}
	return nil
}
