package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// A StatsRow is one persisted measurement row as read back for the
// graphing consumer. Missing channel values stay absent from Values.
type StatsRow struct {
	Stamp  time.Time
	Addr   int64
	Values map[string]float64
}

// A CommentRow is one persisted operational event.
type CommentRow struct {
	Stamp time.Time
	Addr  int64
	Text  string
}

// QueryStats returns the rows of the half open range [from, to),
// ordered by stamp, restricted to the given channel columns.
func (s *Store) QueryStats(from, to time.Time, channels []string) ([]StatsRow, error) {
	cols := []string{"stamp", "addr"}
	for _, name := range channels {
		cols = append(cols, pq.QuoteIdentifier(name))
	}
	q := fmt.Sprintf("SELECT %s FROM stats WHERE stamp >= $1 AND stamp < $2 ORDER BY stamp",
		strings.Join(cols, ", "))
	rows, err := s.db.Query(q, Stamp(from), Stamp(to))
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	var out []StatsRow
	for rows.Next() {
		row := StatsRow{Values: make(map[string]float64)}
		dest := make([]any, 0, len(cols))
		dest = append(dest, &row.Stamp, &row.Addr)
		vals := make([]*float64, len(channels))
		for i := range channels {
			dest = append(dest, &vals[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		for i, name := range channels {
			if vals[i] != nil {
				row.Values[name] = *vals[i]
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// QueryComments returns the comment events of the half open range
// [from, to), ordered by stamp.
func (s *Store) QueryComments(from, to time.Time) ([]CommentRow, error) {
	rows, err := s.db.Query(
		"SELECT stamp, addr, comment FROM comments WHERE stamp >= $1 AND stamp < $2 ORDER BY stamp",
		Stamp(from), Stamp(to))
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	var out []CommentRow
	for rows.Next() {
		var row CommentRow
		if err := rows.Scan(&row.Stamp, &row.Addr, &row.Text); err != nil {
			return nil, fmt.Errorf("scan comments: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
