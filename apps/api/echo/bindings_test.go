package echoapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/darasa/core"
)

func TestQueryOrdering(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []core.DBOrdering
	}{
		{name: "none", query: "", want: nil},
		{name: "blank", query: "?ordering=%20", want: nil},
		{
			name:  "mixed",
			query: "?ordering=title,-created_at",
			want:  []core.DBOrdering{{Field: "title", Ascending: true}, {Field: "created_at", Ascending: false}},
		},
		{
			name:  "blank and repeated fields skipped",
			query: "?ordering=-price,,price,%20title%20,-",
			want:  []core.DBOrdering{{Field: "price", Ascending: false}, {Field: "title", Ascending: true}},
		},
	}
	e := echo.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/courses"+tt.query, nil)
			ctx := e.NewContext(req, httptest.NewRecorder())
			assert.Equal(t, tt.want, queryOrdering(ctx))
		})
	}
}
