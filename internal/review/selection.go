package review

import (
	"fmt"

	"github.com/matsen/pubmerge/internal/dedupe"
)

// DefaultPageSize is the number of group members shown per page.
const DefaultPageSize = 6

// Selection is the reviewer's working choice for the current group.
// Paging through it never touches session state, and choices on one page
// survive visits to other pages.
type Selection struct {
	group    dedupe.Group
	keep     map[string]bool
	page     int
	pageSize int
}

// Selection returns a fresh selection for the current group. Every member
// not already auto-removed starts selected.
func (s *Session) Selection() (*Selection, error) {
	g, err := s.Current()
	if err != nil {
		return nil, err
	}
	sel := &Selection{
		group:    g,
		keep:     make(map[string]bool, len(g.Members)),
		pageSize: s.pageSize,
	}
	sel.SelectAll()
	return sel, nil
}

// SubmitSelection submits the kept members of sel.
func (s *Session) SubmitSelection(sel *Selection) error {
	return s.Submit(sel.group.Index, sel.Kept())
}

// Group returns the group the selection belongs to.
func (sel *Selection) Group() dedupe.Group {
	return sel.group
}

// Selectable reports whether the member can be kept.
func (sel *Selection) Selectable(id string) bool {
	m, ok := sel.group.Member(id)
	return ok && !m.AutoRemoved
}

// Selected reports whether the member is currently kept.
func (sel *Selection) Selected(id string) bool {
	return sel.keep[id]
}

// Set marks a member kept or discarded.
func (sel *Selection) Set(id string, keep bool) error {
	m, ok := sel.group.Member(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotInGroup, id)
	}
	if m.AutoRemoved && keep {
		return fmt.Errorf("%w: %q", ErrAutoRemoved, id)
	}
	if keep {
		sel.keep[id] = true
	} else {
		delete(sel.keep, id)
	}
	return nil
}

// Toggle flips a member between kept and discarded.
func (sel *Selection) Toggle(id string) error {
	return sel.Set(id, !sel.keep[id])
}

// SelectAll keeps every selectable member.
func (sel *Selection) SelectAll() {
	for _, m := range sel.group.Members {
		if !m.AutoRemoved {
			sel.keep[m.Record.ID] = true
		}
	}
}

// Clear discards every member.
func (sel *Selection) Clear() {
	clear(sel.keep)
}

// Kept returns the kept ids in member order.
func (sel *Selection) Kept() []string {
	var ids []string
	for _, m := range sel.group.Members {
		if sel.keep[m.Record.ID] {
			ids = append(ids, m.Record.ID)
		}
	}
	return ids
}

// PageCount returns the number of pages, at least 1.
func (sel *Selection) PageCount() int {
	n := len(sel.group.Members)
	if n == 0 {
		return 1
	}
	return (n + sel.pageSize - 1) / sel.pageSize
}

// PageSize returns the number of members per page.
func (sel *Selection) PageSize() int {
	return sel.pageSize
}

// CurrentPage returns the zero-based page being shown.
func (sel *Selection) CurrentPage() int {
	return sel.page
}

// SetPage moves to page p, clamped to the valid range.
func (sel *Selection) SetPage(p int) {
	sel.page = min(max(p, 0), sel.PageCount()-1)
}

// NextPage advances one page, reporting whether it moved.
func (sel *Selection) NextPage() bool {
	before := sel.page
	sel.SetPage(sel.page + 1)
	return sel.page != before
}

// PrevPage goes back one page, reporting whether it moved.
func (sel *Selection) PrevPage() bool {
	before := sel.page
	sel.SetPage(sel.page - 1)
	return sel.page != before
}

// Page returns the members shown on page p, or nil when p is out of range.
func (sel *Selection) Page(p int) []dedupe.Member {
	if p < 0 || p >= sel.PageCount() {
		return nil
	}
	start := p * sel.pageSize
	end := min(start+sel.pageSize, len(sel.group.Members))
	return sel.group.Members[start:end]
}

// Visible returns the members on the current page.
func (sel *Selection) Visible() []dedupe.Member {
	return sel.Page(sel.page)
}
