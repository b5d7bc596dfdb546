package register_repo

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/id"
)

var setColumnRe = regexp.MustCompile(`(\w+) = `)

// setColumns renders q and returns the columns its SET clause assigns.
func setColumns(t *testing.T, q squirrel.UpdateBuilder) []string {
	t.Helper()
	sql, _, err := q.ToSql()
	require.NoError(t, err)
	_, set, ok := strings.Cut(sql, " SET ")
	require.True(t, ok, sql)
	set, _, _ = strings.Cut(set, " WHERE ")

	var cols []string
	for _, m := range setColumnRe.FindAllStringSubmatch(set, -1) {
		cols = append(cols, m[1])
	}
	return cols
}

func assertAssignedOnce(t *testing.T, cols []string) {
	t.Helper()
	seen := make(map[string]int, len(cols))
	for _, c := range cols {
		seen[c]++
	}
	for c, n := range seen {
		assert.Equal(t, 1, n, "%s assigned %d times", c, n)
	}
}

func TestStockRepo_SetBookedQuery(t *testing.T) {
	r := NewStockRepo(nil)

	on := r.setBookedQuery(id.New(), true, time.Now())
	cols := setColumns(t, on)
	assertAssignedOnce(t, cols)
	assert.Equal(t, []string{"booked", "booked_at"}, cols)
	sql, _, err := on.ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "COALESCE(booked_at, $2)")

	off := setColumns(t, r.setBookedQuery(id.New(), false, time.Time{}))
	assert.Equal(t, []string{"booked", "booked_at"}, off)
}
