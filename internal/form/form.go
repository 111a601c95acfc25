// Package form describes data-entry forms as field descriptors and decodes
// submissions into a value map.
package form

import (
	"fmt"
	"net/http"
	"strings"
)

// Kind is the input kind of a field.
type Kind int

const (
	Text Kind = iota
	Email
	Number
	Date
	Select
	Password
)

// InputType is the html input type attribute for k.
func (k Kind) InputType() string {
	switch k {
	case Text, Select:
		return "text"
	case Email:
		return "email"
	case Number:
		return "number"
	case Date:
		return "date"
	case Password:
		return "password"
	}
	panic(fmt.Sprintf("form: unknown kind %d", int(k)))
}

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Email:
		return "email"
	case Number:
		return "number"
	case Date:
		return "date"
	case Select:
		return "select"
	case Password:
		return "password"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Option is one choice of a Select field.
type Option struct {
	Value string
	Label string
}

// Field describes one input. Label and Placeholder are message ids.
type Field struct {
	Name        string
	Label       string
	Kind        Kind
	Options     []Option
	Placeholder string
	Required    bool
	ReadOnly    bool
	Step        string
}

// Values maps field names to their current text.
type Values map[string]string

// Clone returns an independent copy.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, s := range v {
		out[k] = s
	}
	return out
}

// Form is an ordered set of fields with their current values.
type Form struct {
	Fields []Field
	values Values
}

// New returns a form over fields with every value empty.
func New(fields ...Field) *Form {
	f := &Form{Fields: fields}
	f.Reset()
	return f
}

// Reset clears every value.
func (f *Form) Reset() {
	f.values = make(Values, len(f.Fields))
	for _, fd := range f.Fields {
		f.values[fd.Name] = ""
	}
}

// Values returns a copy of the current values.
func (f *Form) Values() Values { return f.values.Clone() }

// Get returns the value of one field.
func (f *Form) Get(name string) string { return f.values[name] }

// Set changes one field; unknown names are ignored.
func (f *Form) Set(name, value string) {
	if _, ok := f.values[name]; ok {
		f.values[name] = value
	}
}

// WithValues replaces the whole value map with a copy of v. Fields absent
// from v become empty; keys that name no field are dropped.
func (f *Form) WithValues(v Values) *Form {
	next := make(Values, len(f.Fields))
	for _, fd := range f.Fields {
		next[fd.Name] = v[fd.Name]
	}
	f.values = next
	return f
}

// Decode reads one value per field from the submitted form. Passwords are
// taken verbatim; everything else is trimmed.
func (f *Form) Decode(r *http.Request) (Values, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("form: parse: %w", err)
	}
	v := make(Values, len(f.Fields))
	for _, fd := range f.Fields {
		raw := r.PostForm.Get(fd.Name)
		if fd.Kind != Password {
			raw = strings.TrimSpace(raw)
		}
		v[fd.Name] = raw
	}
	f.values = v.Clone()
	return v, nil
}

// Input is a field joined with its value and violation, ready for templates.
type Input struct {
	Field
	Type     string
	IsSelect bool
	Value    string
	Error    string
}

// Inputs projects the form for rendering. errs maps field names to message
// ids. Password values are never echoed back.
func (f *Form) Inputs(errs map[string]string) []Input {
	out := make([]Input, 0, len(f.Fields))
	for _, fd := range f.Fields {
		in := Input{Field: fd, Type: fd.Kind.InputType(), IsSelect: fd.Kind == Select, Value: f.values[fd.Name]}
		if fd.Kind == Password {
			in.Value = ""
		}
		if errs != nil {
			in.Error = errs[fd.Name]
		}
		out = append(out, in)
	}
	return out
}
