// Package store persists poll output to a SQL database: one stats row
// per device and cycle, and a comments stream of operational events.
//
// The schema matches the graphing consumer:
//
//	stats(stamp timestamp, addr int, "E-Total", "h-Total", "Pac",
//	      "Vac", "Fac", "Ipv", "Vpv", "Temperature" double precision)
//	comments(stamp timestamp, addr int, comment text)
//
// Timestamps are bound as local time strings, MM/DD/YYYY HH:MM:SS; the
// reader expects exactly this rendering.
package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"

	"github.com/j256/goswrnet/pkg/device"
)

// StampLayout is the timestamp rendering of the stats reader.
const StampLayout = "01/02/2006 15:04:05"

// Stamp renders a timestamp the way the reader expects it.
func Stamp(t time.Time) string {
	return t.Local().Format(StampLayout)
}

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open connects to the database and verifies the connection. The
// driver is "postgres" in any normal deployment; anything database/sql
// compatible with $n placeholders works.
func Open(driver, dsn string) (*Store, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// insertStatsSQL builds the INSERT for one row. The column list is
// derived from the values actually present, so a cycle that lost a
// channel still lands with the others NULL.
func insertStatsSQL(row device.Stats) (string, []any) {
	cols := []string{"stamp", "addr"}
	args := []any{Stamp(row.Time), int64(row.Addr)}
	for _, v := range row.Values {
		cols = append(cols, pq.QuoteIdentifier(v.Name))
		args = append(args, v.Value)
	}
	marks := make([]string, len(args))
	for i := range marks {
		marks[i] = fmt.Sprintf("$%d", i+1)
	}
	q := fmt.Sprintf("INSERT INTO stats (%s) VALUES (%s)",
		strings.Join(cols, ", "), strings.Join(marks, ", "))
	return q, args
}

// AppendStats appends one stats row.
func (s *Store) AppendStats(row device.Stats) error {
	q, args := insertStatsSQL(row)
	if _, err := s.db.Exec(q, args...); err != nil {
		return fmt.Errorf("insert stats: %w", err)
	}
	log.Debugf("[STORE] stats row for device %d at %s", row.Addr, Stamp(row.Time))
	return nil
}

// AppendComment appends one operational event. Address 0 marks events
// not tied to a single device.
func (s *Store) AppendComment(addr uint16, text string) error {
	_, err := s.db.Exec("INSERT INTO comments (stamp, addr, comment) VALUES ($1, $2, $3)",
		Stamp(s.now()), int64(addr), text)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}
