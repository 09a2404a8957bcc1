package service

import (
	"io"
	"time"
)

// MediaProbe inspects uploaded content without trusting client supplied hints.
type MediaProbe interface {
	// DetectMIME sniffs the MIME type from the leading bytes of a file.
	DetectMIME(head []byte) string

	// Duration measures the playing time of a stream when the format is understood.
	// It returns zero and no error for formats it cannot measure.
	Duration(mimeType string, r io.Reader) (time.Duration, error)
}
