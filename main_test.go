package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		Name     string
		In       string
		Max      int
		Expected []int
	}{
		{Name: "single", In: "3", Max: 10, Expected: []int{3}},
		{Name: "list", In: "1,3,5", Max: 10, Expected: []int{1, 3, 5}},
		{Name: "range", In: "2-5", Max: 10, Expected: []int{2, 3, 4, 5}},
		{Name: "mixed", In: "1,11-13", Max: 20, Expected: []int{1, 11, 12, 13}},
		{Name: "duplicates_collapse", In: "2,2,1-3", Max: 10, Expected: []int{1, 2, 3}},
		{Name: "out_of_range_dropped", In: "9-12", Max: 10, Expected: []int{9, 10}},
		{Name: "spaces", In: " 1 , 4 - 6 ", Max: 10, Expected: []int{1, 4, 5, 6}},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			t.Parallel()

			got, err := parseSelection(tt.In, tt.Max)
			require.NoError(t, err)
			assert.Equal(t, tt.Expected, got)
		})
	}
}

func TestParseSelectionInvalid(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"abc", "1-x", "", "0", "99-100"} {
		_, err := parseSelection(in, 10)
		assert.Error(t, err, "input: %q", in)
	}
}
