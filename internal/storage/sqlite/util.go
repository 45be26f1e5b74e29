package sqlite

import (
	"strings"

	"github.com/ahoskins/burndown/internal/types"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// normalizePage clamps page parameters to sane bounds.
func normalizePage(page types.Page) types.Page {
	if page.Number < 1 {
		page.Number = 1
	}
	if page.Size < 1 {
		page.Size = defaultPageSize
	}
	if page.Size > maxPageSize {
		page.Size = maxPageSize
	}
	return page
}

// orderClause builds an ORDER BY clause from a sort parameter. The column
// must be in the whitelist; a leading '-' requests descending order.
// Unknown columns fall back to the default clause, never into the SQL.
func orderClause(sort, fallback string, columns map[string]string) string {
	if sort == "" {
		return fallback
	}
	desc := false
	if strings.HasPrefix(sort, "-") {
		desc = true
		sort = sort[1:]
	}
	col, ok := columns[sort]
	if !ok {
		return fallback
	}
	if desc {
		return col + " DESC"
	}
	return col + " ASC"
}
