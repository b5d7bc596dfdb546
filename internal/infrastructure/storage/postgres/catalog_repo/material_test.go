package catalog_repo

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/id"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/types"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/material"
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

func TestMaterialRepo_UpdateQuery(t *testing.T) {
	r := NewMaterialRepo(nil)
	m := &material.Material{
		ID:        id.New(),
		Name:      "Papir 80g",
		Unit:      "kg",
		Price:     types.MustMoney("1.25"),
		OnHand:    types.NewQuantity(12),
		Active:    true,
		UpdatedAt: time.Now().Add(-time.Hour),
	}
	now := time.Now().UTC()

	q := r.updateQuery(m, now)
	cols := setColumns(t, q)
	assertAssignedOnce(t, cols)
	assert.Equal(t, []string{"active", "category", "min_stock", "name", "price", "unit", "updated_at"}, cols)

	_, args, err := q.ToSql()
	require.NoError(t, err)
	require.Len(t, args, len(cols)+1)
	assert.Equal(t, now, args[len(cols)-1])
	assert.Equal(t, m.ID, args[len(cols)])
}
