// Package fsname implements filesystem-safe name sanitization and
// collision-avoiding path resolution (spec §4.2).
package fsname

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// sanitizeReplacer performs the substitutions from the spec's sanitize
// table. A colon followed by a space is matched as one unit (listed first,
// so it wins over the bare colon) so that "A: B" becomes "A - B" rather
// than "A -  B". None of the outputs re-triggers another rule (none of
// ` - `, `_`, `'`, `[`, `]`, `-` are themselves inputs to the table).
var sanitizeReplacer = strings.NewReplacer(
	": ", " - ",
	":", " - ",
	"/", "_",
	`\`, "_",
	"?", "",
	`"`, "'",
	"<", "[",
	">", "]",
	"|", "-",
	"*", "_",
)

// Sanitize maps reserved filesystem characters to safe substitutes and
// trims trailing whitespace and dots.
func Sanitize(value string) string {
	out := sanitizeReplacer.Replace(value)
	out = strings.TrimRight(out, " .")

	return out
}

// UniqueName returns a path that does not currently exist on disk,
// starting from path and, on collision, suffixing the base name (before
// its extension) with " (N)" for N = 2, 3, ... It is idempotent: calling
// it twice against a stable filesystem with no intervening creation
// yields the same result both times.
func UniqueName(path string) (string, error) {
	if !exists(path) {
		return path, nil
	}

	dir := filepath.Dir(path)
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(filepath.Base(path), ext)

	for n := 2; ; n++ {
		candidate := filepath.Join(dir, base+" ("+strconv.Itoa(n)+")"+ext)
		if !exists(candidate) {
			return candidate, nil
		}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)

	return err == nil
}
