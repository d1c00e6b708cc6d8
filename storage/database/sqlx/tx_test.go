package sqlxrepos

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/darasa/core"
)

func TestContainsPattern(t *testing.T) {
	tests := []struct {
		search string
		want   string
	}{
		{"go", "%go%"},
		{"100%", `%100\%%`},
		{"snake_case", `%snake\_case%`},
		{`C:\go`, `%C:\\go%`},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			assert.Equal(t, tt.want, containsPattern(tt.search))
		})
	}
}

func TestOrderBy(t *testing.T) {
	assert.Equal(t, "", orderBy(nil, "c."))
	got := orderBy([]core.DBOrdering{{Field: "title", Ascending: true}, {Field: "created_at"}}, "c.")
	assert.Contains(t, got, "c.title")
	assert.Contains(t, got, "c.created_at")
}
