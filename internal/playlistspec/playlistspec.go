// Package playlistspec parses and validates the extractor's
// `--playlist-items` selection grammar: a comma-separated list of
// integers and/or A-B ranges (§4.7).
package playlistspec

import (
	"slices"
	"strconv"
	"strings"

	"reelforge/internal/errs"
)

// Validate reports whether spec is a well-formed playlist-items
// selector. An empty string is valid (it means "no restriction").
func Validate(spec string) error {
	if strings.TrimSpace(spec) == "" {
		return nil
	}

	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return errs.ErrInvalidPlaylistItems
		}

		if err := validateItem(part); err != nil {
			return err
		}
	}

	return nil
}

func validateItem(item string) error {
	if idx := strings.Index(item, "-"); idx > 0 {
		start, end := item[:idx], item[idx+1:]

		lo, err := strconv.Atoi(start)
		if err != nil {
			return errs.ErrInvalidPlaylistItems
		}

		hi, err := strconv.Atoi(end)
		if err != nil {
			return errs.ErrInvalidPlaylistItems
		}

		if lo <= 0 || hi <= 0 || lo > hi {
			return errs.ErrInvalidPlaylistItems
		}

		return nil
	}

	n, err := strconv.Atoi(item)
	if err != nil || n <= 0 {
		return errs.ErrInvalidPlaylistItems
	}

	return nil
}

// Expand returns the sorted, deduplicated list of 1-based indices spec
// selects. Callers must call Validate first; Expand does not re-validate.
// It returns nil for a blank spec or when a part is not numeric; zero,
// negative numbers and reversed ranges are not rejected.
func Expand(spec string) []int {
	if strings.TrimSpace(spec) == "" {
		return nil
	}

	seen := make(map[int]struct{})

	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)

		if idx := strings.Index(part, "-"); idx > 0 {
			lo, err1 := strconv.Atoi(part[:idx])
			hi, err2 := strconv.Atoi(part[idx+1:])

			if err1 != nil || err2 != nil {
				return nil
			}

			for n := lo; n <= hi; n++ {
				seen[n] = struct{}{}
			}

			continue
		}

		n, err := strconv.Atoi(part)
		if err != nil {
			return nil
		}

		seen[n] = struct{}{}
	}

	result := make([]int, 0, len(seen))
	for n := range seen {
		result = append(result, n)
	}

	slices.Sort(result)

	return result
}
