package transform

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrBinarySource is returned for input that is not text
	ErrBinarySource = errors.New("source is not text")
	// ErrSourceTooLarge is returned for input over the configured limit
	ErrSourceTooLarge = errors.New("source too large")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Normalize converts raw source bytes into NFC UTF-8 text. Non-UTF-8 input
// is decoded using the detected charset. A maxBytes of zero disables the
// size check.
func Normalize(data []byte, maxBytes int) (string, error) {
	if maxBytes > 0 && len(data) > maxBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrSourceTooLarge, len(data), maxBytes)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	if !isText(data) {
		return "", fmt.Errorf("%w: detected %s", ErrBinarySource, mimetype.Detect(data).String())
	}

	if !utf8.Valid(data) {
		decoded, err := decode(data, DetectCharset(data))
		if err != nil {
			return "", err
		}
		data = decoded
	}
	return norm.NFC.String(string(data)), nil
}

// DetectCharset returns the most likely charset of data, lower-cased
func DetectCharset(data []byte) string {
	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(data)
	if err != nil || result == nil {
		return "utf-8"
	}
	return strings.ToLower(result.Charset)
}

func decode(data []byte, label string) ([]byte, error) {
	r, err := charset.NewReaderLabel(label, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s source: %w", label, err)
	}
	return out, nil
}

func isText(data []byte) bool {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}
