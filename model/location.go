package model

import "fmt"

// Location identifies a span of source text: a file plus a start and end
// position expressed as 1-indexed line/column pairs.
type Location struct {
	File       string
	StartLine  int
	StartCol   int
	EndLine    int
	EndCol     int
}

// String renders the location as "file:startLine:startCol-endLine:endCol".
func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d-%d:%d", l.File, l.StartLine, l.StartCol, l.EndLine, l.EndCol)
}

// Contains reports whether other is nested within l (same file, inclusive span).
func (l Location) Contains(other Location) bool {
	if l.File != other.File {
		return false
	}
	if other.StartLine < l.StartLine || (other.StartLine == l.StartLine && other.StartCol < l.StartCol) {
		return false
	}
	if other.EndLine > l.EndLine || (other.EndLine == l.EndLine && other.EndCol > l.EndCol) {
		return false
	}
	return true
}
