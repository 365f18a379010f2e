package field

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/lunixbochs/fvbommel-util/sortorder"
	"github.com/pkg/errors"
)

// Editable is the type-erased view of a Field used by text front ends.
type Editable interface {
	Span() (int, int)
	Set(buf []byte, text string) error
	String() string
}

type Named struct {
	Name  string
	Field Editable
}

func (n Named) String() string {
	off, size := n.Field.Span()
	return fmt.Sprintf("%-32s %s (@%#x+%d)", n.Name, n.Field, off, size)
}

// Prefix returns fields with name prepended as "name.field".
func Prefix(name string, fields []Named) []Named {
	out := make([]Named, len(fields))
	for i, f := range fields {
		out[i] = Named{Name: name + "." + f.Name, Field: f.Field}
	}
	return out
}

// Indexed names every entry of a table "name[i].field".
func Indexed(name string, tables ...[]Named) []Named {
	var out []Named
	for i, t := range tables {
		out = append(out, Prefix(fmt.Sprintf("%s[%d]", name, i), t)...)
	}
	return out
}

func Lookup(fields []Named, name string) (Editable, error) {
	for _, f := range fields {
		if f.Name == name {
			return f.Field, nil
		}
	}
	return nil, errors.Errorf("no field named %q", name)
}

// Match filters fields by a pattern where * matches any run of characters,
// such as "sections[*].name".
func Match(fields []Named, pattern string) []Named {
	if pattern == "" {
		return fields
	}
	expr := strings.ReplaceAll(regexp.QuoteMeta(pattern), `\*`, ".*")
	re := regexp.MustCompile("^" + expr + "$")
	var out []Named
	for _, f := range fields {
		if re.MatchString(f.Name) {
			out = append(out, f)
		}
	}
	return out
}

// Sort orders fields by name, comparing embedded numbers numerically.
func Sort(fields []Named) {
	sort.SliceStable(fields, func(i, j int) bool {
		return sortorder.NaturalLess(fields[i].Name, fields[j].Name)
	})
}
