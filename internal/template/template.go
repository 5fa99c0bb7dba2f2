// Package template validates and resolves the filename templates that
// drive the Job Orchestrator's final-name resolution.
package template

import (
	"fmt"
	"strings"
	"time"

	"reelforge/internal/entity"
	"reelforge/internal/errs"
	"reelforge/internal/fsname"
)

// tag is a recognized template placeholder, without angle brackets.
type tag string

const (
	tagTitle   tag = "title"
	tagIndex   tag = "index"
	tagQuality tag = "quality"
	tagChannel tag = "channel"
	tagDate    tag = "date"
	tagFormat  tag = "format"
)

// invalidLiteralChars are the characters forbidden anywhere outside of
// recognized tag syntax (§4.1).
const invalidLiteralChars = `\/:*?"|<>`

// allTags is every tag the engine recognizes, used to reject unknown
// `<...>` sequences.
var allTags = map[tag]struct{}{
	tagTitle:   {},
	tagIndex:   {},
	tagQuality: {},
	tagChannel: {},
	tagDate:    {},
	tagFormat:  {},
}

// Validate checks a user-supplied template against the tag vocabulary and
// mandatory/allowed rules for the given content type and mode. It returns
// one of the errs.ErrTemplate* sentinel errors, or nil.
func Validate(tmpl string, contentType entity.ContentType, mode entity.Mode) error {
	if strings.TrimSpace(tmpl) == "" {
		return errs.ErrTemplateEmpty
	}

	tags, err := extractTags(tmpl)
	if err != nil {
		return err
	}

	seen := make(map[tag]struct{}, len(tags))
	for _, t := range tags {
		if _, ok := allTags[t]; !ok {
			return errs.ErrTemplateInvalidTag
		}

		if t == tagIndex && contentType != entity.ContentPlaylist {
			return errs.ErrTemplateInvalidIndex
		}

		if t == tagQuality && mode != entity.ModeVideo {
			return errs.ErrTemplateInvalidQuality
		}

		seen[t] = struct{}{}
	}

	if _, ok := seen[tagTitle]; !ok {
		return errs.ErrTemplateMissingMandatory
	}

	if contentType == entity.ContentPlaylist {
		if _, ok := seen[tagIndex]; !ok {
			return errs.ErrTemplateMissingMandatory
		}
	}

	if mode == entity.ModeVideo {
		if _, ok := seen[tagQuality]; !ok {
			return errs.ErrTemplateMissingMandatory
		}
	}

	return nil
}

// extractTags walks the template, returning the tags it references while
// rejecting reserved literal characters and unbalanced/unknown `<...>`
// sequences.
func extractTags(tmpl string) ([]tag, error) {
	var tags []tag

	runes := []rune(tmpl)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		switch r {
		case '<':
			end := indexRune(runes[i+1:], '>')
			if end < 0 {
				return nil, errs.ErrTemplateInvalidCharacter
			}

			name := string(runes[i+1 : i+1+end])
			tags = append(tags, tag(name))
			i += end + 1
		case '>':
			return nil, errs.ErrTemplateInvalidCharacter
		default:
			if strings.ContainsRune(invalidLiteralChars, r) {
				return nil, errs.ErrTemplateInvalidCharacter
			}
		}
	}

	return tags, nil
}

func indexRune(runes []rune, target rune) int {
	for i, r := range runes {
		if r == target {
			return i
		}
	}

	return -1
}

// ResolveContext carries the metadata substituted into a resolved
// template. Only the fields relevant to the tags present are consulted.
type ResolveContext struct {
	Title    string
	Channel  string
	Format   string
	Quality  string
	Index    int
	Now      time.Time
}

// Resolve substitutes every recognized tag in tmpl with sanitized,
// formatted values. Callers must have already run Validate against the
// same (contentType, mode) pair; Resolve does not re-validate.
func Resolve(tmpl string, ctx ResolveContext) string {
	replacer := strings.NewReplacer(
		"<title>", fsname.Sanitize(ctx.Title),
		"<channel>", fsname.Sanitize(ctx.Channel),
		"<date>", ctx.Now.Format("02-01-2006"),
		"<format>", strings.ToUpper(ctx.Format),
		"<quality>", strings.ToUpper(ctx.Quality),
		"<index>", fmt.Sprintf("%02d", ctx.Index),
	)

	return replacer.Replace(tmpl)
}
