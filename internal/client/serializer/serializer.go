// Package serializer converts items to and from the line-oriented text
// interchange format used by sync targets, export and import.
//
// Layout:
//
//	<title>
//
//	<body, notes only, may span lines>
//
//	key: value
//	...
//	type_: <n>
//
// Decoding scans lines from the end: properties are read until the first
// blank line, everything above it is the title followed by the body. Only
// the body may contain blank lines, so this is what makes them round-trip.
package serializer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/client/registry"
	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/timex"
)

// Computed is a property whose value is produced on demand instead of being
// read from the item. Computed properties are emitted after stored ones.
type Computed struct {
	Key   string
	Value func(ctx context.Context) (string, error)
}

type Serializer struct {
	reg *registry.Registry
}

func New(reg *registry.Registry) *Serializer {
	return &Serializer{reg: reg}
}

// Serialize renders it. Fields are written in the handler's declaration
// order; private fields are skipped.
func (s *Serializer) Serialize(ctx context.Context, it models.Item, computed ...Computed) (string, error) {
	h, err := s.reg.Resolve(it.Type())
	if err != nil {
		return "", err
	}

	values := it.Values()
	var title, body string
	props := make([]string, 0, len(values)+len(computed)+1)

	for _, name := range h.FieldNames() {
		if models.IsPrivateField(name) {
			continue
		}
		switch name {
		case models.FieldTitle:
			title, _ = values[name].(string)
			continue
		case models.FieldBody:
			body, _ = values[name].(string)
			continue
		}
		kind, _ := h.FieldType(name)
		props = append(props, name+": "+formatValue(kind, values[name]))
	}

	for _, c := range computed {
		v, err := c.Value(ctx)
		if err != nil {
			return "", fmt.Errorf("computed property %s: %w", c.Key, err)
		}
		props = append(props, c.Key+": "+v)
	}
	props = append(props, models.FieldType+": "+strconv.Itoa(int(it.Type())))

	// Title and body lines are always written for variants that have them,
	// so an empty title still occupies the first line.
	parts := make([]string, 0, 3)
	if _, ok := h.FieldType(models.FieldTitle); ok {
		parts = append(parts, title)
	}
	if _, ok := h.FieldType(models.FieldBody); ok {
		parts = append(parts, body)
	}
	parts = append(parts, strings.Join(props, "\n"))

	return strings.Join(parts, "\n\n"), nil
}

func formatValue(kind models.FieldKind, v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "1"
		}
		return "0"
	case int64:
		if kind == models.KindTime {
			return timex.FormatMs(x)
		}
		return strconv.FormatInt(x, 10)
	}
	return fmt.Sprint(v)
}

// DecodeFields returns the raw properties of content, plus "title" and, for
// notes, "body". Values are not converted.
func DecodeFields(content string) (map[string]string, error) {
	lines := strings.Split(content, "\n")
	out := make(map[string]string)
	var body []string
	readingProps := true

	for i := len(lines) - 1; i >= 0; i-- {
		line := lines[i]
		if !readingProps {
			body = append(body, line)
			continue
		}

		line = strings.TrimSpace(line)
		if line == "" {
			readingProps = false
			continue
		}
		p := strings.Index(line, ":")
		if p < 0 {
			return nil, fmt.Errorf("%w: %q", common.ErrParse, line)
		}
		out[strings.TrimSpace(line[:p])] = strings.TrimSpace(line[p+1:])
	}

	if out[models.FieldType] == "" {
		return nil, fmt.Errorf("%w: %s", common.ErrSchema, models.FieldType)
	}

	// body was collected bottom-up
	for l, r := 0, len(body)-1; l < r; l, r = l+1, r-1 {
		body[l], body[r] = body[r], body[l]
	}

	if len(body) > 0 {
		out[models.FieldTitle] = body[0]
		// the title is followed by the blank separator line
		if len(body) > 1 {
			body = body[2:]
		} else {
			body = body[1:]
		}
	}
	if out[models.FieldType] == strconv.Itoa(int(models.TypeNote)) {
		out[models.FieldBody] = strings.Join(body, "\n")
	}
	return out, nil
}

// Deserialize parses content into a fresh item of the variant named by its
// type_ property. Unknown properties are ignored.
func (s *Serializer) Deserialize(content string) (models.Item, error) {
	raw, err := DecodeFields(content)
	if err != nil {
		return nil, err
	}

	h, err := s.reg.ResolveByInstance(map[string]any{models.FieldType: raw[models.FieldType]})
	if err != nil {
		return nil, err
	}

	it := h.New()
	for name, str := range raw {
		if name == models.FieldType || models.IsPrivateField(name) {
			continue
		}
		kind, ok := h.FieldType(name)
		if !ok {
			continue
		}
		v, err := parseValue(kind, str)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", common.ErrParse, name, err)
		}
		if err := it.Assign(name, v); err != nil {
			return nil, err
		}
	}
	return it, nil
}

func parseValue(kind models.FieldKind, s string) (any, error) {
	switch kind {
	case models.KindTime:
		return timex.ParseMs(s)
	case models.KindInt:
		if s == "" {
			return int64(0), nil
		}
		return strconv.ParseInt(s, 10, 64)
	case models.KindBool:
		switch strings.ToLower(s) {
		case "", "0", "false":
			return false, nil
		case "1", "true":
			return true, nil
		}
		return nil, fmt.Errorf("invalid boolean %q", s)
	}
	return s, nil
}
