package internal

import (
	"fmt"
	"strconv"
)

// Child describes one renderable thing: a *Element, a string, a number, or a []Child list.
// nil and booleans render nothing.
type Child = any

type Props map[string]any

// Element is an immutable description of one node.
// Type is a host tag (string), a *Component or a *Context (provider).
type Element struct {
	Type     any
	Key      string // "" means unkeyed
	Props    Props
	Children []Child
}

// Component is a function role.
type Component struct {
	Name   string
	Render func(h *Hooks, props Props) Child
}

func (c *Component) String() string {
	return c.Name
}

// asText reports whether c renders as a text node.
func asText(c Child) (string, bool) {
	switch v := c.(type) {
	case string:
		return v, true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case int32:
		return strconv.FormatInt(int64(v), 10), true
	case uint:
		return strconv.FormatUint(uint64(v), 10), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	case uint32:
		return strconv.FormatUint(uint64(v), 10), true
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32), true
	}
	return "", false
}

// flatten appends the renderable children of c to out. Nested lists are spliced in place.
func flatten(out []Child, c Child) []Child {
	switch v := c.(type) {
	case nil, bool:
		return out
	case *Element:
		if v == nil {
			return out
		}
		return append(out, v)
	case []Child:
		for _, child := range v {
			out = flatten(out, child)
		}
		return out
	}

	if text, ok := asText(c); ok {
		return append(out, text)
	}
	panic(fmt.Errorf("%w: %T", ErrInvalidChild, c))
}

// normalizeChild prepares a render result for the child reconciler.
func normalizeChild(c Child) Child {
	switch v := c.(type) {
	case nil, bool:
		return nil
	case *Element:
		if v == nil {
			return nil
		}
		return v
	case []Child:
		return flatten(make([]Child, 0, len(v)), v)
	}

	if text, ok := asText(c); ok {
		return text
	}
	panic(fmt.Errorf("%w: %T", ErrInvalidChild, c))
}

// childrenOf turns an element's children into a single child when there is only one.
func childrenOf(children []Child) Child {
	flat := flatten(nil, children)
	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	}
	return flat
}

func sameChildren(a, b []Child) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !identical(a[i], b[i]) {
			return false
		}
	}
	return true
}

func typeName(typ any) string {
	switch t := typ.(type) {
	case nil:
		return ""
	case string:
		return t
	case *Component:
		return t.Name
	case *Context:
		return t.Name + ".Provider"
	}
	return fmt.Sprintf("%T", typ)
}
