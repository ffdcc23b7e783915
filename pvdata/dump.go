package pvdata

import (
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"
)

// Style decorates the parts of a Dump line. Nil functions leave text as is.
type Style struct {
	Type  func(string) string
	Name  func(string) string
	Value func(string) string
}

func decorate(f func(string) string, text string) string {
	if f == nil {
		return text
	}
	return f(text)
}

// Dump writes an indented listing of pv, one field per line:
//
//	scanpointgenerator:roi/CircularROI:1.0
//	    double[] centre [6,7]
//	    double radius 2
func Dump(w io.Writer, pv PVField, style *Style) error {
	d := dumper{w: w, style: style}
	d.field(pv, "", 0)
	return d.err
}

// Sprint returns the Dump of pv without decoration.
func Sprint(pv PVField) string {
	var b strings.Builder
	_ = Dump(&b, pv, nil)
	return b.String()
}

type dumper struct {
	w     io.Writer
	style *Style
	err   error
}

func (d *dumper) line(depth int, typ, name, value string) {
	if d.err != nil {
		return
	}
	var style Style
	if d.style != nil {
		style = *d.style
	}
	parts := []string{decorate(style.Type, typ)}
	if name != "" {
		parts = append(parts, decorate(style.Name, name))
	}
	if value != "" {
		parts = append(parts, decorate(style.Value, value))
	}
	_, d.err = fmt.Fprintf(d.w, "%s%s\n", strings.Repeat("    ", depth), strings.Join(parts, " "))
}

func (d *dumper) field(pv PVField, name string, depth int) {
	switch t := pv.(type) {
	case *PVScalar:
		d.line(depth, t.scalar.ID(), name, formatScalar(t.value))
	case *PVScalarArray:
		d.line(depth, t.array.ID(), name, formatArray(t.value))
	case *PVStructure:
		d.line(depth, t.structure.ID(), name, "")
		for i, f := range t.fields {
			d.field(f, t.structure.names[i], depth+1)
		}
	case *PVStructureArray:
		d.line(depth, t.array.ID(), name, "")
		for _, s := range t.values {
			if s == nil {
				d.line(depth+1, t.array.structure.ID(), "", "(none)")
				continue
			}
			d.field(s, "", depth+1)
		}
	case *PVUnion:
		d.union(t, name, depth)
	case *PVUnionArray:
		d.line(depth, t.array.ID(), name, "")
		for _, u := range t.values {
			if u == nil {
				d.line(depth+1, t.array.union.ID(), "", "(none)")
				continue
			}
			d.union(u, "", depth+1)
		}
	}
}

func (d *dumper) union(u *PVUnion, name string, depth int) {
	if u.value == nil {
		d.line(depth, u.union.ID(), name, "(none)")
		return
	}
	d.line(depth, u.union.ID(), name, "")
	d.field(u.value, u.SelectedName(), depth+1)
}

func formatScalar(v any) string {
	switch x := v.(type) {
	case string:
		return strconv.Quote(x)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	}
	return fmt.Sprint(v)
}

func formatArray(v any) string {
	rv := reflect.ValueOf(v)
	items := make([]string, rv.Len())
	for i := range items {
		items[i] = formatScalar(rv.Index(i).Interface())
	}
	return "[" + strings.Join(items, ",") + "]"
}
