package playlistspec

import (
	"errors"
	"reflect"
	"testing"

	"reelforge/internal/errs"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		wantErr bool
	}{
		{"empty", "", false},
		{"single", "3", false},
		{"list", "1,3,5", false},
		{"range", "2-8", false},
		{"mixed", "1,3-5,9", false},
		{"trailing_comma", "1,", true},
		{"zero", "0", true},
		{"negative", "-1", true},
		{"backwards_range", "5-2", true},
		{"non_numeric", "a-b", true},
		{"garbage", "abc", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.spec)
			if tc.wantErr && !errors.Is(err, errs.ErrInvalidPlaylistItems) {
				t.Fatalf("Validate(%q) = %v; want ErrInvalidPlaylistItems", tc.spec, err)
			}

			if !tc.wantErr && err != nil {
				t.Fatalf("Validate(%q) = %v; want nil", tc.spec, err)
			}
		})
	}
}

func TestExpand(t *testing.T) {
	tests := []struct {
		name string
		spec string
		want []int
	}{
		{"empty", "", nil},
		{"single", "3", []int{3}},
		{"list", "1,3,5", []int{1, 3, 5}},
		{"range", "2-4", []int{2, 3, 4}},
		{"mixed_dedup_and_sort", "5,1-3,2", []int{1, 2, 3, 5}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Expand(tc.spec)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Expand(%q) = %v; want %v", tc.spec, got, tc.want)
			}
		})
	}
}
