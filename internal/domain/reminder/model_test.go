package reminder

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/types"
)

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in   string
		want Priority
		ok   bool
	}{
		{"", PriorityMedium, true},
		{"high", PriorityHigh, true},
		{"Visok", PriorityHigh, true},
		{"srednji", PriorityMedium, true},
		{" low ", PriorityLow, true},
		{"nizak", PriorityLow, true},
		{"urgent", "", false},
	}
	for _, tt := range tests {
		got, ok := ParsePriority(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestLineLabel(t *testing.T) {
	assert.Equal(t, "Letak (250 kom)", LineLabel("Letak", types.NewQuantity(250), ""))
	assert.Equal(t, "Folija (1.5 m2)", LineLabel("Folija", types.MustQuantity("1.5"), "m2"))
	assert.Equal(t, "Dizajn", LineLabel("Dizajn", 0, "h"))
}

func TestLess(t *testing.T) {
	day := func(d int) *time.Time {
		v := time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC)
		return &v
	}
	base := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	rs := []Reminder{
		{Text: "done high", Done: true, Priority: PriorityHigh, CreatedAt: base},
		{Text: "low", Priority: PriorityLow, CreatedAt: base},
		{Text: "medium no due", Priority: PriorityMedium, CreatedAt: base},
		{Text: "medium due 3", Priority: PriorityMedium, DueDate: day(3), CreatedAt: base},
		{Text: "medium due 2", Priority: PriorityMedium, DueDate: day(2), CreatedAt: base},
		{Text: "high older", Priority: PriorityHigh, CreatedAt: base},
		{Text: "high newer", Priority: PriorityHigh, CreatedAt: base.Add(time.Hour)},
	}
	sort.Slice(rs, func(i, j int) bool { return Less(&rs[i], &rs[j]) })

	var got []string
	for _, r := range rs {
		got = append(got, r.Text)
	}
	assert.Equal(t, []string{
		"high newer",
		"high older",
		"medium due 2",
		"medium due 3",
		"medium no due",
		"low",
		"done high",
	}, got)
}
