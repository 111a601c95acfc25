package entity

import "strings"

// Collection is a page's view state: All holds what the store returned,
// Visible what is currently shown after a search.
type Collection[T any] struct {
	All     []T
	Visible []T
	id      func(T) uint
}

func NewCollection[T any](id func(T) uint) *Collection[T] {
	return &Collection[T]{All: []T{}, Visible: []T{}, id: id}
}

// Load replaces both views with rows.
func (c *Collection[T]) Load(rows []T) {
	c.All = append([]T{}, rows...)
	c.Visible = append([]T{}, rows...)
}

// Search replaces Visible with the rows of All where any field contains
// term, ignoring case. A blank term shows everything.
func (c *Collection[T]) Search(term string, fields func(T) []string) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" || fields == nil {
		c.Visible = append([]T{}, c.All...)
		return
	}
	out := []T{}
	for _, row := range c.All {
		for _, f := range fields(row) {
			if strings.Contains(strings.ToLower(f), term) {
				out = append(out, row)
				break
			}
		}
	}
	c.Visible = out
}

// Remove drops id from both views. Unknown ids are ignored.
func (c *Collection[T]) Remove(id uint) {
	c.All = c.without(c.All, id)
	c.Visible = c.without(c.Visible, id)
}

func (c *Collection[T]) without(rows []T, id uint) []T {
	out := rows[:0:0]
	for _, r := range rows {
		if c.id(r) != id {
			out = append(out, r)
		}
	}
	return out
}
