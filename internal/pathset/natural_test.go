package pathset

import (
	"slices"
	"testing"
)

func TestSortNatural(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "digit runs compare numerically",
			in:   []string{"img2", "img10", "img1"},
			want: []string{"img1", "img2", "img10"},
		},
		{
			name: "folders",
			in:   []string{"Folder10", "Folder2", "folder1"},
			want: []string{"folder1", "Folder2", "Folder10"},
		},
		{
			name: "case insensitive text",
			in:   []string{"beta", "Alpha", "gamma"},
			want: []string{"Alpha", "beta", "gamma"},
		},
		{
			name: "multiple numeric runs",
			in:   []string{"2024-10-1", "2024-9-30", "2024-10-02"},
			want: []string{"2024-9-30", "2024-10-1", "2024-10-02"},
		},
		{
			name: "leading zeros tie break deterministically",
			in:   []string{"img1", "img01", "img001"},
			want: []string{"img001", "img01", "img1"},
		},
		{
			name: "prefix sorts first",
			in:   []string{"img10b", "img10", "img"},
			want: []string{"img", "img10", "img10b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := slices.Clone(tt.in)
			SortNatural(got)
			if !slices.Equal(got, tt.want) {
				t.Errorf("SortNatural(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNaturalCompareAntisymmetric(t *testing.T) {
	t.Parallel()

	names := []string{"a", "A", "a1", "a01", "a10", "b", "Jan", "feb", "2024", "img 2", "ÉTÉ", "été"}
	for _, x := range names {
		if NaturalCompare(x, x) != 0 {
			t.Errorf("NaturalCompare(%q, %q) != 0", x, x)
		}
		for _, y := range names {
			if NaturalCompare(x, y) != -NaturalCompare(y, x) {
				t.Errorf("NaturalCompare not antisymmetric for %q, %q", x, y)
			}
		}
	}
}
