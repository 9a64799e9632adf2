// Package inlineimage decodes base64 images embedded in JSON payloads.
//
// Accepted input is either bare base64 or a data URL of the form
// "data:<mime>;base64,<payload>". The content type is always sniffed from the
// decoded bytes; whatever a data URL declares is ignored.
package inlineimage

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxBytes caps a decoded image at 5 MiB.
const DefaultMaxBytes = 5 << 20

var (
	ErrMalformed = errors.New("image is not valid base64")
	ErrTooLarge  = errors.New("image is too large")
	ErrNotImage  = errors.New("data is not an image")
)

// Image is a decoded inline image.
type Image struct {
	MIME string
	Data []byte
}

// DataURL renders the image as a base64 data URL.
func (i Image) DataURL() string {
	return "data:" + i.MIME + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Decode parses s, enforcing maxBytes on the decoded size. A maxBytes of zero
// or less means DefaultMaxBytes.
func Decode(s string, maxBytes int) (Image, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	payload := strings.TrimSpace(s)
	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 || !strings.HasSuffix(payload[:comma], ";base64") {
			return Image{}, ErrMalformed
		}
		payload = payload[comma+1:]
	}
	if payload == "" {
		return Image{}, ErrMalformed
	}

	enc := base64.StdEncoding
	if !strings.HasSuffix(payload, "=") && len(payload)%4 != 0 {
		enc = base64.RawStdEncoding
	}
	// Reject before allocating when the encoded length already exceeds the cap.
	if enc.DecodedLen(len(payload)) > maxBytes+2 {
		return Image{}, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, maxBytes)
	}
	data, err := enc.DecodeString(payload)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return FromBytes(data, maxBytes)
}

// Normalize decodes s and re-encodes it as a data URL. Empty input stays empty.
func Normalize(s string, maxBytes int) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	img, err := Decode(s, maxBytes)
	if err != nil {
		return "", err
	}
	return img.DataURL(), nil
}

// FromBytes wraps raw uploaded bytes, applying the same checks as Decode.
func FromBytes(data []byte, maxBytes int) (Image, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if len(data) == 0 {
		return Image{}, ErrMalformed
	}
	if len(data) > maxBytes {
		return Image{}, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, maxBytes)
	}
	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return Image{}, fmt.Errorf("%w: detected %s", ErrNotImage, mtype.String())
	}
	return Image{MIME: mtype.String(), Data: data}, nil
}
