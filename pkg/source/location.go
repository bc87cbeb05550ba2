package source

import "fmt"

// Location is a 1-based (line, column) position in the logical lines of a
// File. Columns count bytes.
type Location struct {
	Line   int
	Column int
}

// Compare orders locations by line, then column. It returns -1, 0 or +1.
func (l Location) Compare(o Location) int {
	switch {
	case l.Line < o.Line:
		return -1
	case l.Line > o.Line:
		return 1
	case l.Column < o.Column:
		return -1
	case l.Column > o.Column:
		return 1
	}
	return 0
}

// Before reports whether l comes strictly before o.
func (l Location) Before(o Location) bool {
	return l.Compare(o) < 0
}

// IsValid reports whether l has been set.
func (l Location) IsValid() bool {
	return l.Line > 0 && l.Column > 0
}

func (l Location) String() string {
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}
