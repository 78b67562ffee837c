package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j256/goswrnet/pkg/device"
)

func TestStampLayout(t *testing.T) {
	ts := time.Date(2006, 8, 2, 13, 5, 9, 0, time.Local)
	assert.Equal(t, "08/02/2006 13:05:09", Stamp(ts))
}

func TestInsertStatsSQL(t *testing.T) {
	row := device.Stats{
		Time: time.Date(2006, 1, 2, 15, 4, 5, 0, time.Local),
		Addr: 2,
		Values: []device.Value{
			{Name: "Pac", Value: 1500},
			{Name: "E-Total", Value: 8000.123},
		},
	}
	q, args := insertStatsSQL(row)
	assert.Equal(t,
		`INSERT INTO stats (stamp, addr, "Pac", "E-Total") VALUES ($1, $2, $3, $4)`, q)
	require.Len(t, args, 4)
	assert.Equal(t, "01/02/2006 15:04:05", args[0])
	assert.Equal(t, int64(2), args[1])
	assert.Equal(t, 1500.0, args[2])
	assert.Equal(t, 8000.123, args[3])
}

func TestInsertStatsSQLNoValues(t *testing.T) {
	row := device.Stats{Time: time.Unix(0, 0), Addr: 7}
	q, args := insertStatsSQL(row)
	assert.Equal(t, "INSERT INTO stats (stamp, addr) VALUES ($1, $2)", q)
	assert.Len(t, args, 2)
}

func TestInsertStatsSQLQuotesIdentifiers(t *testing.T) {
	row := device.Stats{
		Time:   time.Unix(0, 0),
		Addr:   1,
		Values: []device.Value{{Name: `h-Total`, Value: 1}},
	}
	q, _ := insertStatsSQL(row)
	assert.Contains(t, q, `"h-Total"`)
}
