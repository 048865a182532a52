// Package filecodec validates uploaded profile files and converts them to and from
// the base64 form stored on model.UserFiles.
package filecodec

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/model"
)

const (
	// MaxRawBytes caps an upload before any encoding.
	MaxRawBytes = 5 << 20
	// MaxEncodedChars caps the base64 form kept inline in the database.
	MaxEncodedChars = 900_000
)

var (
	// ErrTooLarge means the raw upload is larger than MaxRawBytes.
	ErrTooLarge = errors.New("file is larger than 5MB")
	// ErrEncodedTooLarge means the encoded file does not fit in MaxEncodedChars.
	ErrEncodedTooLarge = errors.New("encoded file is larger than the 900KB inline limit")
	// ErrUnsupportedType means the file content or declared type is not allowed for its slot.
	ErrUnsupportedType = errors.New("file type is not allowed")
)

// ValidationError reports a rejected form field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var allowedTypes = map[string][]string{
	model.FileKindPhoto: {"image/jpeg", "image/png", "image/jpg"},
	model.FileKindResume: {
		"application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	},
}

// generic containers a .doc or .docx can be sniffed as when the header is inconclusive
var containerTypes = map[string]bool{
	"application/x-ole-storage": true,
	"application/zip":           true,
}

// AllowedTypes returns the MIME types accepted for kind.
func AllowedTypes(kind string) []string {
	return allowedTypes[kind]
}

func normalize(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if mime == "image/jpg" {
		return "image/jpeg"
	}
	return mime
}

func allowed(kind, mime string) bool {
	mime = normalize(mime)
	for _, t := range allowedTypes[kind] {
		if normalize(t) == mime {
			return true
		}
	}
	return false
}

// Check applies the raw size cap and resolves the MIME type of data for kind.
// declared is the client supplied Content-Type and may be empty. The sniffed type
// must be allowed and agree with declared; a resume sniffed as a generic OLE or zip
// container falls back to an allowed declared type.
func Check(kind string, data []byte, declared string) (string, error) {
	if _, ok := allowedTypes[kind]; !ok {
		return "", fmt.Errorf("unknown file kind %q", kind)
	}
	if len(data) > MaxRawBytes {
		return "", ErrTooLarge
	}
	if len(data) == 0 {
		return "", ValidationError{Field: kind, Message: "file is empty"}
	}

	declared = normalize(declared)
	if declared == "application/octet-stream" {
		declared = ""
	}
	if declared != "" && !allowed(kind, declared) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, declared)
	}

	detected := sniff(kind, data)
	if detected == "" {
		if kind == model.FileKindResume && declared != "" && containerTypes[normalize(mimetype.Detect(data).String())] {
			return declared, nil
		}
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mimetype.Detect(data).String())
	}
	if declared != "" && declared != detected {
		return "", fmt.Errorf("%w: declared %s but content is %s", ErrUnsupportedType, declared, detected)
	}
	return detected, nil
}

// sniff walks the detected type and its parents until one is allowed for kind.
func sniff(kind string, data []byte) string {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		for _, t := range allowedTypes[kind] {
			if m.Is(t) {
				return normalize(t)
			}
		}
	}
	return ""
}

// Encoded is a file in its inline stored form.
type Encoded struct {
	Base64 string
	Type   string
}

// EncodeInline converts data, already accepted by Check, to base64 under MaxEncodedChars.
// Photos that do not fit are downscaled and re-encoded as JPEG; resumes are encoded as is.
func EncodeInline(kind string, data []byte, mime string) (Encoded, error) {
	if len(data) > MaxRawBytes {
		return Encoded{}, ErrTooLarge
	}
	if base64.StdEncoding.EncodedLen(len(data)) <= MaxEncodedChars {
		return Encoded{Base64: base64.StdEncoding.EncodeToString(data), Type: mime}, nil
	}
	if kind != model.FileKindPhoto {
		return Encoded{}, ErrEncodedTooLarge
	}

	compressed, err := compressPhoto(data, MaxEncodedChars)
	if err != nil {
		return Encoded{}, err
	}
	return Encoded{Base64: base64.StdEncoding.EncodeToString(compressed), Type: "image/jpeg"}, nil
}

// Decode returns the raw bytes of a stored base64 value. A data URL prefix is accepted.
func Decode(encoded string) ([]byte, error) {
	if strings.HasPrefix(encoded, "data:") {
		i := strings.Index(encoded, ",")
		if i < 0 {
			return nil, errors.New("malformed data URL")
		}
		encoded = encoded[i+1:]
	}
	b, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode file: %w", err)
	}
	return b, nil
}

// Extension returns a file extension for mime, used to name blob store objects.
func Extension(mime string) string {
	if m := mimetype.Lookup(normalize(mime)); m != nil {
		return m.Extension()
	}
	return ""
}
