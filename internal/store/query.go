package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const (
	defaultLogLimit = 100
	maxLogLimit     = 10000
)

// LogQuery represents a query for client logs.
type LogQuery struct {
	TimeRange  *TimeRange
	Levels     []string // DEBUG, INFO, WARN, ERROR
	Components []string // stream, login, ui, ...
	Search     string   // Substring of the message
	Limit      int
	Offset     int
}

// LogQueryResult contains query results, newest first.
type LogQueryResult struct {
	Entries    []*LogEntry `json:"entries"`
	TotalCount int64       `json:"total_count"`
	HasMore    bool        `json:"has_more"`
}

// where builds the WHERE clause and its arguments.
func (q *LogQuery) where() (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if q.TimeRange != nil {
		conditions = append(conditions, "timestamp >= ? AND timestamp <= ?")
		args = append(args, q.TimeRange.Start.UnixMilli(), q.TimeRange.End.UnixMilli())
	}

	if len(q.Levels) > 0 {
		levels := make([]string, len(q.Levels))
		for i, level := range q.Levels {
			levels[i] = strings.ToUpper(level)
		}
		clause, inArgs := inClause("level", levels)
		conditions = append(conditions, clause)
		args = append(args, inArgs...)
	}

	if len(q.Components) > 0 {
		clause, inArgs := inClause("component", q.Components)
		conditions = append(conditions, clause)
		args = append(args, inArgs...)
	}

	if q.Search != "" {
		conditions = append(conditions, "message LIKE ?")
		args = append(args, "%"+q.Search+"%")
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

func inClause(column string, values []string) (string, []interface{}) {
	placeholders := make([]string, len(values))
	args := make([]interface{}, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		args[i] = v
	}
	return fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ",")), args
}

// QueryLogs queries logs with filters.
func (s *Store) QueryLogs(q LogQuery) (*LogQueryResult, error) {
	if q.Limit <= 0 {
		q.Limit = defaultLogLimit
	}
	if q.Limit > maxLogLimit {
		q.Limit = maxLogLimit
	}

	whereClause, args := q.where()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var totalCount int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM logs "+whereClause, args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("count failed: %w", err)
	}

	selectQuery := fmt.Sprintf(
		"SELECT id, timestamp, level, component, message, fields FROM logs %s ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?",
		whereClause,
	)
	args = append(args, q.Limit+1, q.Offset) // +1 to check if there are more

	rows, err := s.db.Query(selectQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var entries []*LogEntry
	for rows.Next() {
		var e LogEntry
		var ts int64
		var fields sql.NullString
		if err := rows.Scan(&e.ID, &ts, &e.Level, &e.Component, &e.Message, &fields); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		e.Timestamp = time.UnixMilli(ts)
		e.Fields = fields.String
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hasMore := len(entries) > q.Limit
	if hasMore {
		entries = entries[:q.Limit]
	}

	return &LogQueryResult{
		Entries:    entries,
		TotalCount: totalCount,
		HasMore:    hasMore,
	}, nil
}
