package echoapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/tutorly/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// delete scopes of DELETE /lessons/:id
const (
	scopeOccurrence = "occurrence"
	scopeFollowing  = "following"
	scopeSeries     = "series"
)

// DeleteScope selects which occurrences a lesson deletion removes. `deleteAll=true` is an alias of scope=series.
type DeleteScope struct {
	Scope string
}

func (ds *DeleteScope) Bind(ctx echo.Context) error {
	ds.Scope = core.CleanString(ctx.QueryParam("scope"), true /* lower */)
	if all, err := strconv.ParseBool(ctx.QueryParam("deleteAll")); err == nil && all {
		if ds.Scope != "" && ds.Scope != scopeSeries {
			return echo.NewHTTPError(http.StatusBadRequest, "deleteAll conflicts with scope "+ds.Scope)
		}
		ds.Scope = scopeSeries
	}

	switch ds.Scope {
	case "":
		ds.Scope = scopeOccurrence
	case scopeOccurrence, scopeFollowing, scopeSeries:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "scope must be one of occurrence, following and series")
	}
	return nil
}

type AffectedResponse struct {
	Affected int `json:"affected"`
}
