package persistence

import (
	"strings"

	"gorm.io/gorm/clause"
)

// SaleSortFields contains allowed sort fields for sales
var SaleSortFields = map[string]bool{
	"created_at":     true,
	"updated_at":     true,
	"total":          true,
	"payment_method": true,
	"invoiced":       true,
	"invoiced_at":    true,
	"voucher_number": true,
}

// QuoteSortFields contains allowed sort fields for quotes
var QuoteSortFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"total":      true,
	"status":     true,
	"expires_at": true,
}

const defaultSortField = "created_at"

// orderClause builds the ORDER BY of a list query. Unknown fields fall back
// to created_at and any direction other than asc sorts descending. The id
// tie-break keeps pages stable when many rows share the sort value, which
// is common for totals and for sales created in the same transaction burst.
func orderClause(orderBy, orderDir string, allowed map[string]bool) clause.OrderBy {
	field := strings.TrimSpace(orderBy)
	if !allowed[field] {
		field = defaultSortField
	}
	desc := !strings.EqualFold(strings.TrimSpace(orderDir), "asc")

	return clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: clause.Column{Name: field}, Desc: desc},
		{Column: clause.Column{Name: "id"}, Desc: desc},
	}}
}
