// Package ranges defines the byte-offset location types shared by the
// source remap pipeline: FileLocation, FieldReference, MethodReference,
// and the MemberReference union of the two. Locations are half-open byte
// intervals over a single source file; ordering and overlap detection are
// the primitives the RangeApplier (package apply) builds on.
package ranges

import "fmt"

// FileLocation is a half-open byte interval [Start, End) within a single
// source file. Invariants: Start >= 0, End >= Start.
type FileLocation struct {
	Start int
	End   int
}

// NewFileLocation validates and constructs a FileLocation.
func NewFileLocation(start, end int) (FileLocation, error) {
	if start < 0 {
		return FileLocation{}, fmt.Errorf("file location start must be >= 0, got %d", start)
	}
	if end < start {
		return FileLocation{}, fmt.Errorf("file location end (%d) must be >= start (%d)", end, start)
	}
	return FileLocation{Start: start, End: end}, nil
}

// Size returns End - Start, the number of bytes the location covers.
func (l FileLocation) Size() int { return l.End - l.Start }

// Overlaps reports whether l and other share at least one byte.
func (l FileLocation) Overlaps(other FileLocation) bool {
	lo := l.Start
	if other.Start > lo {
		lo = other.Start
	}
	hi := l.End
	if other.End < hi {
		hi = other.End
	}
	return lo < hi
}

// Less orders FileLocations lexicographically on (Start, End), matching
// the ordering the stream applier requires of a file's reference list.
func (l FileLocation) Less(other FileLocation) bool {
	if l.Start != other.Start {
		return l.Start < other.Start
	}
	return l.End < other.End
}

// String renders the textual "<start>:<end>" form.
func (l FileLocation) String() string {
	return fmt.Sprintf("%d:%d", l.Start, l.End)
}
