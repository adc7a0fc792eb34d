package foodai

import (
	"encoding/base64"
	"regexp"
)

var dataURIRe = regexp.MustCompile(`^data:(image/[a-zA-Z+]+);base64,`)

// SplitDataURI strips a data-URI prefix from a base64 string, returning the
// bare payload and the declared media type ("" when there is no prefix).
func SplitDataURI(raw string) (data, mediaType string) {
	if m := dataURIRe.FindStringSubmatch(raw); m != nil {
		return raw[len(m[0]):], m[1]
	}
	return raw, ""
}

// DetectMediaType sniffs the image type from the first bytes of a
// base64-encoded payload. Signatures are checked in PNG, GIF, WEBP, JPEG
// order; anything unrecognised (or undecodable) falls back to JPEG.
func DetectMediaType(base64Data string) string {
	header := base64Data
	if len(header) > 16 {
		header = header[:16]
	}
	bytes, err := base64.RawStdEncoding.DecodeString(header)
	if err != nil || len(bytes) < 4 {
		return "image/jpeg"
	}

	switch {
	case bytes[0] == 0x89 && bytes[1] == 0x50 && bytes[2] == 0x4e && bytes[3] == 0x47:
		return "image/png"
	case bytes[0] == 0x47 && bytes[1] == 0x49 && bytes[2] == 0x46:
		return "image/gif"
	case len(bytes) >= 12 &&
		bytes[0] == 0x52 && bytes[1] == 0x49 && bytes[2] == 0x46 && bytes[3] == 0x46 &&
		bytes[8] == 0x57 && bytes[9] == 0x45 && bytes[10] == 0x42 && bytes[11] == 0x50:
		return "image/webp"
	case bytes[0] == 0xff && bytes[1] == 0xd8 && bytes[2] == 0xff:
		return "image/jpeg"
	}
	return "image/jpeg"
}
