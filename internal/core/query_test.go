package core

import "testing"

func TestParseSortField(t *testing.T) {
	cases := []struct {
		in   string
		want SortField
	}{
		{"date", SortByDate},
		{"amount", SortByAmount},
		{"title", SortByTitle},
		{" title ", SortByTitle},
		{"", SortByDate},
		{"owner_username", SortByDate},
		{"date; DROP TABLE expenses", SortByDate},
	}
	for _, tc := range cases {
		if got := ParseSortField(tc.in); got != tc.want {
			t.Fatalf("ParseSortField(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseSortOrder(t *testing.T) {
	cases := []struct {
		in   string
		want SortOrder
	}{
		{"asc", OrderAsc},
		{"desc", OrderDesc},
		{"", OrderDesc},
		{"ASC", OrderDesc},
		{"garbage", OrderDesc},
	}
	for _, tc := range cases {
		if got := ParseSortOrder(tc.in); got != tc.want {
			t.Fatalf("ParseSortOrder(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNewListQuery(t *testing.T) {
	q := NewListQuery("  grocery  ", "amount", "asc")
	if q.Search != "grocery" {
		t.Fatalf("search not trimmed: %q", q.Search)
	}
	if q.SortBy != SortByAmount || q.Order != OrderAsc {
		t.Fatalf("unexpected sort spec: %+v", q)
	}
	if q.Scope != ScopeAll || q.Owner != "" {
		t.Fatalf("default scope must be all: %+v", q)
	}

	owned := q.ForOwner("alice")
	if owned.Scope != ScopeOwner || owned.Owner != "alice" {
		t.Fatalf("ForOwner did not narrow scope: %+v", owned)
	}
	if q.Scope != ScopeAll {
		t.Fatalf("ForOwner must not mutate the receiver")
	}
}
