package store

import (
	"fmt"
	"sort"
	"strings"
)

// ListOptions controls filtering, ordering and windowing of FindAll and
// Count. The zero value lists all live rows in default order.
type ListOptions struct {
	// Where filters rows by exact column match, ANDed together.
	Where Values

	// SortBy must name a mapped column; anything else falls back to
	// created_at. Sort allow-listing for client input happens upstream
	// in the pagination layer, this is the last line of defense.
	SortBy    string
	SortOrder string

	// Limit/Offset window the result. Zero means unbounded.
	Limit  int
	Offset int

	// IncludeDeleted lifts the default deleted_at IS NULL filter.
	IncludeDeleted bool

	// CursorField/CursorBefore select rows strictly below a previously
	// returned field value, for cursor-based pagination. CursorField
	// must be a mapped column.
	CursorField  string
	CursorBefore any
}

func (c *CRUD[T]) buildSelect(opts ListOptions) (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", c.selectList, c.table)

	clause, args := c.whereClause(opts.Where, opts.IncludeDeleted, 1)
	b.WriteString(clause)

	if opts.CursorField != "" && c.columns[opts.CursorField] && opts.CursorBefore != nil {
		if clause == "" {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		args = append(args, opts.CursorBefore)
		fmt.Fprintf(&b, "%s < $%d", opts.CursorField, len(args))
	}

	sortBy := opts.SortBy
	if !c.columns[sortBy] {
		sortBy = "created_at"
	}
	order := "DESC"
	if strings.EqualFold(opts.SortOrder, "ASC") {
		order = "ASC"
	}
	fmt.Fprintf(&b, " ORDER BY %s %s", sortBy, order)

	if opts.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", opts.Limit)
	}
	if opts.Offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", opts.Offset)
	}
	return b.String(), args
}

// whereClause renders the filter conditions plus the soft-delete guard.
// Filter columns outside the mapping are dropped: they can only come
// from code, never from raw client input, and a typo must not turn into
// an injection surface.
func (c *CRUD[T]) whereClause(where Values, includeDeleted bool, start int) (string, []any) {
	conds := make([]string, 0, len(where)+1)
	args := make([]any, 0, len(where))

	cols := make([]string, 0, len(where))
	for col := range where {
		if c.columns[col] {
			cols = append(cols, col)
		}
	}
	sort.Strings(cols)

	idx := start
	for _, col := range cols {
		if where[col] == nil {
			conds = append(conds, fmt.Sprintf("%s IS NULL", col))
			continue
		}
		conds = append(conds, fmt.Sprintf("%s = $%d", col, idx))
		args = append(args, where[col])
		idx++
	}
	if !includeDeleted {
		conds = append(conds, "deleted_at IS NULL")
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
