// Package mediatype tells still images from animated or video inputs.
package mediatype

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
)

// ErrUnsupported is returned for inputs that are neither images nor videos.
var ErrUnsupported = errors.New("unsupported media type")

// Kind is how an input is upscaled.
type Kind int

const (
	Unknown Kind = iota
	// Image is a single still frame.
	Image
	// Video is a frame sequence: videos and animated GIFs.
	Video
)

func (k Kind) String() string {
	switch k {
	case Image:
		return "image"
	case Video:
		return "video"
	default:
		return "unknown"
	}
}

// Classify maps a MIME type to a Kind.
func Classify(mime string) Kind {
	mime, _, _ = strings.Cut(strings.ToLower(strings.TrimSpace(mime)), ";")

	switch {
	case mime == "image/gif":
		return Video
	case strings.HasPrefix(mime, "image/"):
		return Image
	case strings.HasPrefix(mime, "video/"):
		return Video
	default:
		return Unknown
	}
}

// DetectFile sniffs the content of path. It returns the kind and the detected MIME type.
func DetectFile(path string) (Kind, string, error) {
	mime, err := mimetype.DetectFile(path)
	if err != nil {
		return Unknown, "", errors.Wrapf(err, "unable to detect type of %s", path)
	}

	kind := Classify(mime.String())
	if kind == Unknown {
		return Unknown, mime.String(), errors.Wrapf(ErrUnsupported, "%s is %s", path, mime.String())
	}

	return kind, mime.String(), nil
}
