package validators

import (
	"net/http"
	"strings"

	"github.com/carretedigital/carrete-backend/internal/rollupapi"
	pkgerrors "github.com/carretedigital/carrete-backend/pkg/errors"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type rollupQuery struct {
	DayFrom string `validate:"omitempty,datetime=2006-01-02"`
	DayTo   string `validate:"omitempty,datetime=2006-01-02"`
}

// ParseRollupFilter reads the optional day_from/day_to query parameters
// and validates them as day keys.
func ParseRollupFilter(r *http.Request) (rollupapi.Filter, error) {
	q := rollupQuery{
		DayFrom: strings.TrimSpace(r.URL.Query().Get("day_from")),
		DayTo:   strings.TrimSpace(r.URL.Query().Get("day_to")),
	}

	if err := validate.Struct(q); err != nil {
		return rollupapi.Filter{}, pkgerrors.New(pkgerrors.CodeValidation, "day filters must be YYYY-MM-DD").
			WithDetails(map[string]any{"day_from": q.DayFrom, "day_to": q.DayTo})
	}
	if q.DayFrom != "" && q.DayTo != "" && q.DayFrom > q.DayTo {
		return rollupapi.Filter{}, pkgerrors.New(pkgerrors.CodeValidation, "day_from must not be after day_to")
	}

	return rollupapi.Filter{DayFrom: q.DayFrom, DayTo: q.DayTo}, nil
}
