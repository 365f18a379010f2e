package models

import (
	"fmt"
	"strings"

	"github.com/mgutz/ansi"
)

var chSame = ansi.ColorCode("default:default")
var chNew = ansi.ColorCode("default+bu:default")
var chName = ansi.ColorCode("cyan+b")

// Colorize wraps s in the ansi color code when color is enabled.
func Colorize(s, color string, enabled bool) string {
	if !enabled {
		return s
	}
	return ansi.Color(s, color)
}

type ChangeMask struct {
	Old, New string
	Changed  bool
}

// Change describes a field value before and after an edit.
type Change struct {
	Old, New string
	Name     string
}

func NewChange(name, val, oldVal string) *Change {
	return &Change{
		Old:  oldVal,
		New:  val,
		Name: name,
	}
}

func (c *Change) Changed() bool {
	return c.Old != c.New
}

// Mask splits the new value into runs that match or differ from the old value.
func (c *Change) Mask() []ChangeMask {
	s1, s2 := c.New, c.Old
	// right-align so numeric digits line up
	if len(s2) < len(s1) {
		s2 = strings.Repeat(" ", len(s1)-len(s2)) + s2
	} else if len(s1) < len(s2) {
		s2 = s2[len(s2)-len(s1):]
	}
	pos := 0
	matching := true
	masks := make([]ChangeMask, 0, len(s1))
	for i := range s1 {
		if (s1[i] == s2[i]) != matching {
			if i > pos {
				masks = append(masks, ChangeMask{
					New:     s1[pos:i],
					Old:     s2[pos:i],
					Changed: !matching,
				})
				pos = i
			}
			matching = !matching
		}
	}
	if pos < len(s1) {
		masks = append(masks, ChangeMask{
			New:     s1[pos:],
			Old:     s2[pos:],
			Changed: !matching,
		})
	}
	return masks
}

func (c *Change) String(color bool) string {
	if !c.Changed() {
		return fmt.Sprintf("  %s = %s", c.Name, c.New)
	}
	if !color {
		return fmt.Sprintf("+ %s = %s (was %s)", c.Name, c.New, c.Old)
	}
	out := []string{fmt.Sprintf("  %s%s%s = ", chName, c.Name, ansi.Reset)}
	for _, mask := range c.Mask() {
		col := chSame
		if mask.Changed {
			col = chNew
		}
		out = append(out, col+mask.New)
	}
	out = append(out, ansi.Reset, fmt.Sprintf(" (was %s)", c.Old))
	return strings.Join(out, "")
}
