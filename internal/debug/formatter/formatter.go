// Package formatter renders call arguments as short, log-safe text.
package formatter

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// MaxInlineItems is the largest slice, array or map rendered inline.
const MaxInlineItems = 5

// Formatter turns call arguments into their textual representation.
type Formatter interface {
	Format(args []any, recursive bool) []string
}

// ArgumentFormatter is the default Formatter.
type ArgumentFormatter struct{}

// New returns the default argument formatter.
func New() ArgumentFormatter {
	return ArgumentFormatter{}
}

// Format renders every argument. With recursive set, collections of at most
// MaxInlineItems elements are rendered inline as "[a, b]" with their own
// elements formatted non-recursively; other collections are left out.
func (ArgumentFormatter) Format(args []any, recursive bool) []string {
	return Format(args, recursive)
}

// Format is ArgumentFormatter.Format.
func Format(args []any, recursive bool) []string {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		if s, ok := formatOne(arg, recursive); ok {
			out = append(out, s)
		}
	}
	return out
}

func formatOne(arg any, recursive bool) (s string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s, ok = fmt.Sprintf("<unformattable %T>", arg), true
		}
	}()

	if arg == nil {
		return "null", true
	}

	v := reflect.ValueOf(arg)
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return "null", true
		}
		return fmt.Sprintf("Object(%T)", arg), true

	case reflect.Struct:
		return fmt.Sprintf("Object(%T)", arg), true

	case reflect.Slice, reflect.Map:
		if v.IsNil() {
			return "null", true
		}
		return formatCollection(v, recursive)

	case reflect.Array:
		return formatCollection(v, recursive)

	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		if v.IsNil() {
			return "null", true
		}
		return fmt.Sprintf("resource (%T)", arg), true
	}

	if gs, ok := arg.(fmt.GoStringer); ok {
		return gs.GoString(), true
	}
	return fmt.Sprintf("%#v", arg), true
}

func formatCollection(v reflect.Value, recursive bool) (string, bool) {
	if !recursive || v.Len() > MaxInlineItems {
		return "", false
	}

	var items []any
	if v.Kind() == reflect.Map {
		keys := v.MapKeys()
		labels := make([]string, len(keys))
		for i, k := range keys {
			labels[i] = fmt.Sprintf("%#v", k.Interface())
		}
		order := make([]int, len(keys))
		for i := range order {
			order[i] = i
		}
		sort.Slice(order, func(a, b int) bool { return labels[order[a]] < labels[order[b]] })
		for _, i := range order {
			items = append(items, v.MapIndex(keys[i]).Interface())
		}
	} else {
		for i := 0; i < v.Len(); i++ {
			items = append(items, v.Index(i).Interface())
		}
	}

	return "[" + strings.Join(Format(items, false), ", ") + "]", true
}
