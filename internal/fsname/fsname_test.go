package fsname

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"clean", "Hello World", "Hello World"},
		{"colon", "Some: Title", "Some - Title"},
		{"slash", "Artist/Album", "Artist_Album"},
		{"backslash", `C:\temp`, `C - _temp`},
		{"question_mark", "What?", "What"},
		{"double_quote", `"Quoted"`, "'Quoted'"},
		{"angle_brackets", "<tag>", "[tag]"},
		{"pipe", "a|b", "a-b"},
		{"asterisk", "a*b", "a_b"},
		{"trailing_dot_and_space", "trailing. . ", "trailing"},
		{"trailing_dots_only", "name...", "name"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Sanitize(tc.value); got != tc.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tc.value, got, tc.want)
			}
		})
	}
}

func TestUniqueNameNoCollision(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Track.mp3")

	got, err := UniqueName(path)
	if err != nil {
		t.Fatalf("UniqueName() error = %v", err)
	}

	if got != path {
		t.Errorf("UniqueName() = %q, want %q", got, path)
	}
}

func TestUniqueNameCollisionSuffixes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Track.mp3")

	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	got, err := UniqueName(path)
	if err != nil {
		t.Fatalf("UniqueName() error = %v", err)
	}

	want := filepath.Join(dir, "Track (2).mp3")
	if got != want {
		t.Fatalf("UniqueName() = %q, want %q", got, want)
	}

	if err := os.WriteFile(want, []byte("x"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	got, err = UniqueName(path)
	if err != nil {
		t.Fatalf("UniqueName() error = %v", err)
	}

	want = filepath.Join(dir, "Track (3).mp3")
	if got != want {
		t.Fatalf("UniqueName() = %q, want %q", got, want)
	}
}

func TestUniqueNameIdempotentWithoutCreation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Track.mp3")

	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	first, err := UniqueName(path)
	if err != nil {
		t.Fatalf("UniqueName() error = %v", err)
	}

	second, err := UniqueName(path)
	if err != nil {
		t.Fatalf("UniqueName() error = %v", err)
	}

	if first != second {
		t.Errorf("UniqueName() not idempotent: %q != %q", first, second)
	}
}

func TestUniqueNameNoExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "README")

	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	got, err := UniqueName(path)
	if err != nil {
		t.Fatalf("UniqueName() error = %v", err)
	}

	want := filepath.Join(dir, "README (2)")
	if got != want {
		t.Fatalf("UniqueName() = %q, want %q", got, want)
	}
}
