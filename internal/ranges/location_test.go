package ranges

import "testing"

func TestFileLocationSize(t *testing.T) {
	loc, err := NewFileLocation(10, 13)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.Size() != 3 {
		t.Errorf("Size() = %d, want 3", loc.Size())
	}
}

func TestFileLocationInvalidInputs(t *testing.T) {
	if _, err := NewFileLocation(-1, 3); err == nil {
		t.Error("expected error for negative start")
	}
	if _, err := NewFileLocation(5, 3); err == nil {
		t.Error("expected error for end < start")
	}
	if _, err := NewFileLocation(5, 5); err != nil {
		t.Errorf("empty span should be valid, got %v", err)
	}
}

func TestFileLocationOverlaps(t *testing.T) {
	cases := []struct {
		a, b FileLocation
		want bool
	}{
		{FileLocation{0, 3}, FileLocation{3, 6}, false},
		{FileLocation{0, 4}, FileLocation{3, 6}, true},
		{FileLocation{10, 13}, FileLocation{12, 15}, true},
		{FileLocation{10, 13}, FileLocation{13, 15}, false},
		{FileLocation{0, 0}, FileLocation{0, 0}, false},
	}
	for _, c := range cases {
		if got := c.a.Overlaps(c.b); got != c.want {
			t.Errorf("%v.Overlaps(%v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestFileLocationLessAndString(t *testing.T) {
	a := FileLocation{Start: 1, End: 5}
	b := FileLocation{Start: 1, End: 6}
	c := FileLocation{Start: 2, End: 3}
	if !a.Less(b) {
		t.Error("expected a < b by End tiebreak")
	}
	if !a.Less(c) {
		t.Error("expected a < c by Start")
	}
	if a.String() != "1:5" {
		t.Errorf("String() = %q, want %q", a.String(), "1:5")
	}
}
