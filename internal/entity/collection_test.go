package entity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	id    uint
	name  string
	email string
}

func rowID(r row) uint { return r.id }

func rowFields(r row) []string { return []string{r.name, r.email} }

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func ids(rows []row) (out []uint) {
	for _, r := range rows {
		out = append(out, r.id)
	}
	return out
}

func sample() *Collection[row] {
	c := NewCollection(rowID)
	c.Load([]row{
		{1, "Ana Pérez", "ana@example.com"},
		{2, "Luis", "luis@EXAMPLE.com"},
		{3, "Marta", "marta@otro.org"},
	})
	return c
}

func TestLoadPopulatesBothViews(t *testing.T) {
	c := sample()
	assert.Equal(t, []uint{1, 2, 3}, ids(c.All))
	assert.Equal(t, []uint{1, 2, 3}, ids(c.Visible))
}

func TestSearch(t *testing.T) {
	tests := []struct {
		term string
		want []uint
	}{
		{"", []uint{1, 2, 3}},
		{"   ", []uint{1, 2, 3}},
		{"example", []uint{1, 2}},
		{"ANA", []uint{1}},
		{"pérez", []uint{1}},
		{"nadie", nil},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			c := sample()
			c.Search(tt.term, rowFields)
			assert.Equal(t, tt.want, ids(c.Visible))
			assert.Len(t, c.All, 3, "search never touches All")
		})
	}
}

func TestSearchResultIsSubsetAndMatches(t *testing.T) {
	c := sample()
	for _, term := range []string{"a", "e", "m", "o", ".com", "x"} {
		c.Search(term, rowFields)
		for _, v := range c.Visible {
			assert.Contains(t, c.All, v)
			matched := false
			for _, f := range rowFields(v) {
				if containsFold(f, term) {
					matched = true
				}
			}
			assert.True(t, matched, "%v should match %q", v, term)
		}
	}
}

func TestRemove(t *testing.T) {
	c := sample()
	c.Search("example", rowFields)
	assert.Equal(t, []uint{1, 2}, ids(c.Visible))

	c.Remove(2)
	assert.Equal(t, []uint{1, 3}, ids(c.All))
	assert.Equal(t, []uint{1}, ids(c.Visible))

	c.Remove(99)
	assert.Equal(t, []uint{1, 3}, ids(c.All))
}

func TestRemoveDoesNotAliasLoadedRows(t *testing.T) {
	rows := []row{{1, "a", ""}, {2, "b", ""}}
	c := NewCollection(rowID)
	c.Load(rows)
	c.Remove(1)
	require.Len(t, rows, 2)
	assert.Equal(t, uint(1), rows[0].id)
}
