package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MediaKind is the coarse media class of an asset.
type MediaKind string

const (
	MediaKindAudio MediaKind = "audio"
	MediaKindVideo MediaKind = "video"
)

// KindFromMIME derives the media kind from a MIME type prefix.
// Anything that is not video/* is treated as audio.
func KindFromMIME(mimeType string) MediaKind {
	if strings.HasPrefix(strings.ToLower(mimeType), "video/") {
		return MediaKindVideo
	}

	return MediaKindAudio
}

// Asset is a lecture recording owned by exactly one folder.
type Asset struct {
	ID           uuid.UUID
	FolderID     uuid.UUID
	Title        string
	Description  string
	Tutor        string
	Tag          string
	Duration     string // Display duration such as "12:34".
	ThumbnailRef string
	StoragePath  string // Key in the blob store, generated at upload and never user supplied.
	MimeType     string
	Kind         MediaKind // Stored at upload, not recomputed on read.
	SizeBytes    int64
	OriginalName string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AssetMetadata holds the optional descriptive fields of an asset.
// Missing values default to the empty string.
type AssetMetadata struct {
	Description  string
	Tutor        string
	Tag          string
	Duration     string
	ThumbnailRef string
}

// FormatDuration renders a playing time as m:ss, or h:mm:ss from one hour up.
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return ""
	}

	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)

	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}

	return fmt.Sprintf("%d:%02d", m, s)
}
