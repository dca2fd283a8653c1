package buildctx

import (
	"fmt"
	"strings"

	pberrors "github.com/alexisbeaulieu97/postbuild/pkg/errors"
)

// segment is either a literal run or a variable reference.
type segment struct {
	literal  string
	variable string
	offset   int
}

// parseTemplate splits tmpl into literal and variable segments.
//
// Recognised forms are ${name}, the bare $name, and $$ for a literal dollar sign.
// A dollar sign followed by anything else is kept verbatim.
func parseTemplate(tmpl string) ([]segment, error) {
	var segments []segment
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			segments = append(segments, segment{literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(tmpl); {
		c := tmpl[i]
		if c != '$' || i+1 >= len(tmpl) {
			lit.WriteByte(c)
			i++
			continue
		}

		next := tmpl[i+1]
		switch {
		case next == '$':
			lit.WriteByte('$')
			i += 2
		case next == '{':
			end := strings.IndexByte(tmpl[i+2:], '}')
			if end < 0 {
				return nil, pberrors.NewTemplateError(tmpl, i, "unterminated placeholder")
			}
			name := tmpl[i+2 : i+2+end]
			if !validName(name) {
				return nil, pberrors.NewTemplateError(tmpl, i, fmt.Sprintf("invalid variable name %q", name))
			}
			flush()
			segments = append(segments, segment{variable: name, offset: i})
			i += end + 3
		case isNameStart(next):
			j := i + 2
			for j < len(tmpl) && isNameChar(tmpl[j]) {
				j++
			}
			flush()
			segments = append(segments, segment{variable: tmpl[i+1 : j], offset: i})
			i = j
		default:
			lit.WriteByte('$')
			i++
		}
	}
	flush()

	return segments, nil
}

// Validate reports template syntax errors without resolving any variables.
func Validate(tmpl string) error {
	_, err := parseTemplate(tmpl)
	return err
}

// Placeholders returns the distinct variable names referenced by tmpl in order of first use.
func Placeholders(tmpl string) ([]string, error) {
	segments, err := parseTemplate(tmpl)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var names []string
	for _, seg := range segments {
		if seg.variable == "" {
			continue
		}
		if _, ok := seen[seg.variable]; ok {
			continue
		}
		seen[seg.variable] = struct{}{}
		names = append(names, seg.variable)
	}
	return names, nil
}

// Expand substitutes every placeholder in tmpl. A reference to a variable that is not
// bound fails with *errors.UnresolvedVariableError.
func (c Context) Expand(tmpl string) (string, error) {
	segments, err := parseTemplate(tmpl)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	for _, seg := range segments {
		if seg.variable == "" {
			out.WriteString(seg.literal)
			continue
		}
		value, ok := c.vars[seg.variable]
		if !ok {
			return "", pberrors.NewUnresolvedVariableError(seg.variable, tmpl)
		}
		out.WriteString(value)
	}
	return out.String(), nil
}

// ExpandAll expands each template in order, stopping at the first failure.
func (c Context) ExpandAll(tmpls []string) ([]string, error) {
	out := make([]string, len(tmpls))
	for i, tmpl := range tmpls {
		expanded, err := c.Expand(tmpl)
		if err != nil {
			return nil, err
		}
		out[i] = expanded
	}
	return out, nil
}

// ExpandMap expands every value of m. Keys are kept verbatim.
func (c Context) ExpandMap(m map[string]string) (map[string]string, error) {
	if len(m) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(m))
	for k, tmpl := range m {
		expanded, err := c.Expand(tmpl)
		if err != nil {
			return nil, err
		}
		out[k] = expanded
	}
	return out, nil
}

func validName(name string) bool {
	if name == "" || !isNameStart(name[0]) {
		return false
	}
	for i := 1; i < len(name); i++ {
		if !isNameChar(name[i]) {
			return false
		}
	}
	return true
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}
