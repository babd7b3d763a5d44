package core

import "strings"

const (
	SortByDate   SortField = "date"
	SortByAmount SortField = "amount"
	SortByTitle  SortField = "title"

	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"

	ScopeAll   Scope = "all"
	ScopeOwner Scope = "owner"
)

type (
	SortField string
	SortOrder string
	Scope     string

	// ListQuery is the validated filter/sort specification the repository
	// executes. Handlers decode raw query-string values into it so that no
	// user-supplied string ever reaches query construction.
	ListQuery struct {
		Search string
		SortBy SortField
		Order  SortOrder
		Scope  Scope
		Owner  string
	}
)

// ParseSortField maps a raw parameter to a sort field. Unrecognized values
// fall back to date so the output order stays defined across runs.
func ParseSortField(s string) SortField {
	switch SortField(strings.TrimSpace(s)) {
	case SortByAmount:
		return SortByAmount
	case SortByTitle:
		return SortByTitle
	default:
		return SortByDate
	}
}

// ParseSortOrder maps a raw parameter to a sort direction, defaulting to desc.
func ParseSortOrder(s string) SortOrder {
	if SortOrder(strings.TrimSpace(s)) == OrderAsc {
		return OrderAsc
	}
	return OrderDesc
}

// NewListQuery builds a query over all expenses from raw request parameters.
func NewListQuery(search, sortBy, order string) ListQuery {
	return ListQuery{
		Search: strings.TrimSpace(search),
		SortBy: ParseSortField(sortBy),
		Order:  ParseSortOrder(order),
		Scope:  ScopeAll,
	}
}

// ForOwner narrows the query to rows owned by the given identity.
func (q ListQuery) ForOwner(owner string) ListQuery {
	q.Scope = ScopeOwner
	q.Owner = owner
	return q
}
