package httpapi

import (
	"reelforge/internal/entity"
)

// metadataRequest is the body of POST /api/metadata.
type metadataRequest struct {
	URL string `json:"url"`
}

// filesizeRequest is the body of POST /api/filesize.
type filesizeRequest struct {
	URL           string             `json:"url"`
	Mode          entity.Mode        `json:"mode"`
	Quality       string             `json:"quality"`
	Format        entity.AudioFormat `json:"format"`
	PlaylistItems string             `json:"playlistItems"`
}

// downloadRequest is the body of POST /api/download.
type downloadRequest struct {
	URL          string `json:"url"`
	VideoID      string `json:"videoId"`
	JobID        string `json:"jobId"`
	OutputFolder string `json:"outputFolder"`

	Mode    entity.Mode        `json:"mode"`
	Quality string             `json:"quality"`
	Format  entity.AudioFormat `json:"format"`

	Title       string             `json:"title"`
	Channel     string             `json:"channel"`
	Index       int                `json:"index"`
	ContentType entity.ContentType `json:"contentType"`

	CreatePerChannelFolder bool `json:"createPerChannelFolder"`

	DownloadSubtitles bool                    `json:"downloadSubtitles"`
	SubtitleLanguage  entity.SubtitleLanguage `json:"subtitleLanguage"`
}

// namingTemplatesRequest is the body of PUT /api/naming-templates.
type namingTemplatesRequest struct {
	NamingTemplates entity.NamingTemplates `json:"namingTemplates"`
}
