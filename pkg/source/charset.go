package source

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gogs/chardet"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// utf8BOM is the UTF-8 byte-order mark.
var utf8BOM = []byte{'\xef', '\xbb', '\xbf'}

func stripBOM(src []byte) []byte {
	return bytes.TrimPrefix(src, utf8BOM)
}

// DetectCharset guesses the encoding of src. Valid UTF-8 is always reported
// as "UTF-8".
func DetectCharset(src []byte) (string, error) {
	if utf8.Valid(src) {
		return "UTF-8", nil
	}
	res, err := chardet.NewTextDetector().DetectBest(src)
	if err != nil {
		return "", err
	}
	return res.Charset, nil
}

// toUTF8 decodes src from the encoding named by label. "auto" detects it.
func toUTF8(src []byte, label string) ([]byte, error) {
	if strings.EqualFold(label, "auto") {
		detected, err := DetectCharset(src)
		if err != nil {
			return nil, err
		}
		label = detected
	}
	if strings.EqualFold(label, "utf-8") || strings.EqualFold(label, "utf8") {
		return src, nil
	}

	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unknown charset %q: %w", label, err)
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), src)
	if err != nil {
		return nil, err
	}
	return out, nil
}
