// Package media sniffs uploaded lecture files and measures mp3 playing time.
package media

import (
	"io"
	"strings"
	"time"

	"lecturehall/internal/domain/service"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/tcolgate/mp3"
)

// SniffLength is how many leading bytes DetectMIME needs to recognise common audio and video containers.
const SniffLength = 3072

type probe struct{}

// NewProbe returns the default MediaProbe.
func NewProbe() service.MediaProbe {
	return probe{}
}

// DetectMIME returns the sniffed MIME type without parameters, e.g. "audio/mpeg".
func (probe) DetectMIME(head []byte) string {
	detected := mimetype.Detect(head).String()
	if i := strings.IndexByte(detected, ';'); i >= 0 {
		detected = detected[:i]
	}

	return detected
}

// Duration sums mp3 frame durations. Other formats report zero.
func (probe) Duration(mimeType string, r io.Reader) (time.Duration, error) {
	if !isMP3(mimeType) {
		return 0, nil
	}

	var (
		decoder = mp3.NewDecoder(r)
		frame   mp3.Frame
		skipped int
		total   time.Duration
	)

	for {
		if err := decoder.Decode(&frame, &skipped); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return total, nil
			}

			return total, errors.Wrap(err, "failed to decode mp3 frame")
		}
		total += frame.Duration()
	}
}

func isMP3(mimeType string) bool {
	switch strings.ToLower(mimeType) {
	case "audio/mpeg", "audio/mp3", "audio/mpeg3":
		return true
	default:
		return false
	}
}
