package sizeestimate

import (
	"bytes"
	"testing"

	"reelforge/internal/entity"
)

func TestSumSizesPrefersFilesizeOverApprox(t *testing.T) {
	input := `{"filesize": 1000}
{"filesize_approx": 2000}
{"filesize": 500, "filesize_approx": 999}
not json, skipped
{"unrelated": "field"}
`

	total := sumSizes(bytes.NewBufferString(input))

	want := int64(1000 + 2000 + 500)
	if total != want {
		t.Fatalf("sumSizes = %d, want %d", total, want)
	}
}

func TestSumSizesEmptyInputIsZero(t *testing.T) {
	if got := sumSizes(bytes.NewBufferString("")); got != 0 {
		t.Fatalf("expected 0 for empty input, got %d", got)
	}
}

func TestProjectionFactor(t *testing.T) {
	tests := []struct {
		format entity.AudioFormat
		want   float64
		ok     bool
	}{
		{entity.AudioFormatMP3, 1.67, true},
		{entity.AudioFormatM4A, 2.67, true},
		{entity.AudioFormatWAV, 12.85, true},
		{entity.AudioFormatOpus, 1.0, true},
		{entity.AudioFormat("unknown"), 0, false},
	}

	for _, tc := range tests {
		got, ok := projectionFactor(tc.format)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("projectionFactor(%q) = (%v, %v); want (%v, %v)", tc.format, got, ok, tc.want, tc.ok)
		}
	}
}
