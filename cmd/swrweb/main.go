// swrweb serves the persisted measurements as CSV over HTTP, the query
// side of the stats stream consumed by graphing front ends:
//
//	GET /stats.csv?from=2006-01-02T15:04:05&to=2006-01-03T00:00:00
//	GET /comments.csv?from=...&to=...
//
// Rows come back ordered by stamp. An omitted from defaults to 24
// hours ago, an omitted to defaults to now.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/j256/goswrnet/pkg/device"
	"github.com/j256/goswrnet/pkg/store"
)

const timeParam = "2006-01-02T15:04:05"

type server struct {
	st *store.Store
}

func parseRange(r *http.Request) (time.Time, time.Time, error) {
	from := time.Now().Add(-24 * time.Hour)
	to := time.Now()
	var err error
	if v := r.URL.Query().Get("from"); v != "" {
		if from, err = time.ParseInLocation(timeParam, v, time.Local); err != nil {
			return from, to, fmt.Errorf("bad from: %w", err)
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if to, err = time.ParseInLocation(timeParam, v, time.Local); err != nil {
			return from, to, fmt.Errorf("bad to: %w", err)
		}
	}
	return from, to, nil
}

func (s *server) stats(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rows, err := s.st.QueryStats(from, to, device.DefaultChannels)
	if err != nil {
		log.Errorf("[WEB] stats query: %v", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	cw := csv.NewWriter(w)
	header := append([]string{"stamp", "addr"}, device.DefaultChannels...)
	cw.Write(header)
	for _, row := range rows {
		rec := []string{store.Stamp(row.Stamp), strconv.FormatInt(row.Addr, 10)}
		for _, name := range device.DefaultChannels {
			if v, ok := row.Values[name]; ok {
				rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
			} else {
				rec = append(rec, "")
			}
		}
		cw.Write(rec)
	}
	cw.Flush()
}

func (s *server) comments(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rows, err := s.st.QueryComments(from, to)
	if err != nil {
		log.Errorf("[WEB] comments query: %v", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	cw := csv.NewWriter(w)
	cw.Write([]string{"stamp", "addr", "comment"})
	for _, row := range rows {
		cw.Write([]string{store.Stamp(row.Stamp), strconv.FormatInt(row.Addr, 10), row.Text})
	}
	cw.Flush()
}

func main() {
	addr := flag.String("a", ":8080", "listen address")
	driver := flag.String("D", "postgres", "database driver")
	dsn := flag.String("d", "dbname=sunnyboy sslmode=disable", "database connection string")
	flag.Parse()

	st, err := store.Open(*driver, *dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "swrweb: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	s := &server{st: st}
	mux := http.NewServeMux()
	mux.HandleFunc("/stats.csv", s.stats)
	mux.HandleFunc("/comments.csv", s.comments)

	log.Infof("[WEB] listening on %s", *addr)
	if err := http.ListenAndServe(*addr, mux); err != nil {
		fmt.Fprintf(os.Stderr, "swrweb: %v\n", err)
		os.Exit(1)
	}
}
