package template

import (
	"errors"
	"testing"
	"time"

	"reelforge/internal/entity"
	"reelforge/internal/errs"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		tmpl        string
		contentType entity.ContentType
		mode        entity.Mode
		wantErr     error
	}{
		{"empty", "", entity.ContentSingle, entity.ModeAudio, errs.ErrTemplateEmpty},
		{"single_audio_ok", "<title>", entity.ContentSingle, entity.ModeAudio, nil},
		{"single_video_needs_quality", "<title>", entity.ContentSingle, entity.ModeVideo, errs.ErrTemplateMissingMandatory},
		{"single_video_ok", "<title> - <quality>", entity.ContentSingle, entity.ModeVideo, nil},
		{"quality_in_audio_mode_rejected", "<title> - <quality>", entity.ContentSingle, entity.ModeAudio, errs.ErrTemplateInvalidQuality},
		{"playlist_needs_index", "<title>", entity.ContentPlaylist, entity.ModeAudio, errs.ErrTemplateMissingMandatory},
		{"playlist_ok", "<index> - <title>", entity.ContentPlaylist, entity.ModeAudio, nil},
		{"index_outside_playlist_rejected", "<index> - <title>", entity.ContentSingle, entity.ModeAudio, errs.ErrTemplateInvalidIndex},
		{"missing_title", "<index>", entity.ContentPlaylist, entity.ModeAudio, errs.ErrTemplateMissingMandatory},
		{"unknown_tag", "<title> <bogus>", entity.ContentSingle, entity.ModeAudio, errs.ErrTemplateInvalidTag},
		{"unbalanced_tag", "<title", entity.ContentSingle, entity.ModeAudio, errs.ErrTemplateInvalidCharacter},
		{"stray_close_bracket", "title>", entity.ContentSingle, entity.ModeAudio, errs.ErrTemplateInvalidCharacter},
		{"reserved_char", "<title>/x", entity.ContentSingle, entity.ModeAudio, errs.ErrTemplateInvalidCharacter},
		{"all_tags_playlist_video", "<index> - <title> (<channel>, <date>, <format>, <quality>)", entity.ContentPlaylist, entity.ModeVideo, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.tmpl, tc.contentType, tc.mode)

			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate(%q) = %v, want nil", tc.tmpl, err)
				}

				return
			}

			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Validate(%q) = %v, want %v", tc.tmpl, err, tc.wantErr)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	now := time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC)

	ctx := ResolveContext{
		Title:   "My: Video",
		Channel: "Some Channel",
		Format:  "mp3",
		Quality: "1080p",
		Index:   3,
		Now:     now,
	}

	got := Resolve("<index> - <title> - <channel> - <format> - <quality> - <date>", ctx)
	want := "03 - My - Video - Some Channel - MP3 - 1080P - 05-03-2026"

	if got != want {
		t.Fatalf("Resolve() = %q, want %q", got, want)
	}
}

func TestResolveSanitizesTitleAndChannel(t *testing.T) {
	ctx := ResolveContext{Title: "Q&A: Live/Stream", Channel: "A/B"}

	got := Resolve("<title> (<channel>)", ctx)
	want := "Q&A - Live_Stream (A_B)"

	if got != want {
		t.Fatalf("Resolve() = %q, want %q", got, want)
	}
}
