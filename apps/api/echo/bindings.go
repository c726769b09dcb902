package echoapi

import (
	"fmt"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/council/core"
)

const orderingParam = "ordering"

// Ordering binds `?ordering=name,-created_at`; a leading "-" sorts descending.
type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind rejects any field missing from allowed with a 400 on the ordering param.
func (ord *Ordering) Bind(ctx echo.Context, allowed ...string) error {
	raw := ctx.QueryParam(orderingParam)
	if raw == "" {
		return nil
	}

	for _, field := range strings.Split(raw, ",") {
		field = strings.ToLower(strings.TrimSpace(field))
		descending := strings.HasPrefix(field, "-")
		field = strings.TrimPrefix(field, "-")
		if field == "" {
			continue
		}
		if !slices.Contains(allowed, field) {
			return core.NewValidationError(nil, core.FieldError{
				Field: orderingParam,
				Error: fmt.Sprintf("unknown field %q", field),
			})
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
	return nil
}
