package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/darasa/core"
)

const orderingParam = "ordering"

// queryOrdering reads `?ordering=title,-created_at` into DB orderings.
// Blank and repeated fields are skipped; the first occurrence wins.
func queryOrdering(ctx echo.Context) []core.DBOrdering {
	raw := strings.TrimSpace(ctx.QueryParam(orderingParam))
	if raw == "" {
		return nil
	}

	seen := make(map[string]bool)
	var ordering []core.DBOrdering
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		ascending := !strings.HasPrefix(field, "-")
		field = strings.TrimPrefix(field, "-")
		if field == "" || seen[field] {
			continue
		}
		seen[field] = true
		ordering = append(ordering, core.DBOrdering{Field: field, Ascending: ascending})
	}
	return ordering
}
