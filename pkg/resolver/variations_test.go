package resolver

import (
	"reflect"
	"testing"
)

func TestVariations(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{
			in:   "GEO.US",
			want: []string{"GEO.US", "GEO", "GEO:US", "GEO-US", "GEO.NYSE", "GEO.NASDAQ"},
		},
		{
			in:   "geo.us ",
			want: []string{"GEO.US", "GEO", "GEO:US", "GEO-US", "GEO.NYSE", "GEO.NASDAQ"},
		},
		{
			in:   "AAPL",
			want: []string{"AAPL"},
		},
		{
			in:   "BRK-B",
			want: []string{"BRK-B", "BRKB"},
		},
		{
			in:   "",
			want: nil,
		},
	}
	for _, tc := range tests {
		if got := Variations(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("Variations(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestVariations_noDuplicates(t *testing.T) {
	got := Variations("X.Y")
	seen := make(map[string]bool, len(got))
	for _, v := range got {
		if seen[v] {
			t.Fatalf("duplicate candidate %q in %v", v, got)
		}
		seen[v] = true
	}
}
