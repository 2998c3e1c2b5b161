package source

import "testing"

func TestSpan_Cover(t *testing.T) {
	a := Span{File: 1, Start: 10, End: 20}
	b := Span{File: 1, Start: 5, End: 12}
	got := a.Cover(b)
	if got != (Span{File: 1, Start: 5, End: 20}) {
		t.Fatalf("unexpected cover: %v", got)
	}
	other := Span{File: 2, Start: 0, End: 100}
	if a.Cover(other) != a {
		t.Fatalf("spans from different files must not merge")
	}
}

func TestSpan_Overlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Span
		want bool
	}{
		{"disjoint", Span{Start: 0, End: 3}, Span{Start: 3, End: 5}, false},
		{"overlap", Span{Start: 0, End: 4}, Span{Start: 3, End: 5}, true},
		{"nested", Span{Start: 0, End: 10}, Span{Start: 3, End: 5}, true},
		{"two inserts same point", Span{Start: 4, End: 4}, Span{Start: 4, End: 4}, true},
		{"insert at boundary", Span{Start: 4, End: 4}, Span{Start: 4, End: 8}, false},
		{"insert inside", Span{Start: 5, End: 5}, Span{Start: 4, End: 8}, true},
		{"different files", Span{File: 1, Start: 0, End: 4}, Span{File: 2, Start: 0, End: 4}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Fatalf("Overlaps(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Fatalf("Overlaps is not symmetric for %v, %v", tt.a, tt.b)
			}
		})
	}
}

func TestSpan_Sub(t *testing.T) {
	s := Span{File: 3, Start: 10, End: 20}
	if got := s.Sub(2, 5); got != (Span{File: 3, Start: 12, End: 15}) {
		t.Fatalf("unexpected sub span: %v", got)
	}
	if got := s.Sub(5, 100); got.End != 20 {
		t.Fatalf("sub span must be clamped, got %v", got)
	}
	if !s.Contains(s.Sub(0, 10)) {
		t.Fatalf("span must contain its full sub span")
	}
}
