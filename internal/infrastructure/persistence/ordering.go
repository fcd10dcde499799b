package persistence

import (
	"strings"

	"gorm.io/gorm/clause"
)

// sortableRunColumns lists the ec_export_runs columns a listing may be ordered by
var sortableRunColumns = map[string]struct{}{
	"created_at":    {},
	"updated_at":    {},
	"started_at":    {},
	"completed_at":  {},
	"shop_id":       {},
	"status":        {},
	"fail_count":    {},
	"success_count": {},
}

// orderByColumn turns user supplied sort options into a quoted ORDER BY column.
// Columns outside allowed fall back to fallback; any direction but "asc" sorts
// descending.
func orderByColumn(column, direction string, allowed map[string]struct{}, fallback string) clause.OrderByColumn {
	column = strings.TrimSpace(column)
	if _, ok := allowed[column]; !ok {
		column = fallback
	}
	return clause.OrderByColumn{
		Column: clause.Column{Name: column},
		Desc:   !strings.EqualFold(strings.TrimSpace(direction), "asc"),
	}
}
