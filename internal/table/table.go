// Package table renders records as rows of text cells with a trailing
// delete action.
package table

// ActionsHeader is the message id of the trailing action column.
const ActionsHeader = "table.actions"

// Column projects one cell out of a record. Label is a message id.
type Column[T any] struct {
	Label string
	Value func(T) string
}

// Table describes how records of type T are shown.
type Table[T any] struct {
	Columns []Column[T]
	ID      func(T) uint
	// DeletePath returns the target of the delete action; nil hides it.
	DeletePath func(id uint) string
}

// Row is one rendered record.
type Row struct {
	ID         uint
	Cells      []string
	DeletePath string
}

// View is a rendered table, ready for templates.
type View struct {
	Headers []string
	Rows    []Row
	Actions bool
}

// Render produces one row per record, in order, with one cell per column.
func (t Table[T]) Render(rows []T) View {
	v := View{
		Headers: make([]string, 0, len(t.Columns)+1),
		Rows:    make([]Row, 0, len(rows)),
		Actions: t.DeletePath != nil,
	}
	for _, c := range t.Columns {
		v.Headers = append(v.Headers, c.Label)
	}
	if v.Actions {
		v.Headers = append(v.Headers, ActionsHeader)
	}
	for _, rec := range rows {
		row := Row{Cells: make([]string, len(t.Columns))}
		if t.ID != nil {
			row.ID = t.ID(rec)
		}
		for i, c := range t.Columns {
			row.Cells[i] = c.Value(rec)
		}
		if v.Actions {
			row.DeletePath = t.DeletePath(row.ID)
		}
		v.Rows = append(v.Rows, row)
	}
	return v
}
