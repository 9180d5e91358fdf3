package section

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/unicode/norm"
)

// normalizeTitle canonicalizes header text before hashing: NFC so that
// composed and decomposed accents digest identically, and every run of
// Unicode whitespace collapsed to a single ASCII space. OCR output is full
// of U+00A0 and friends; identity must not depend on them.
func normalizeTitle(s string) string {
	s = norm.NFC.String(s)
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// TitleHash returns the stable section hash of a header title: a 16-digit
// hex form of the 64-bit digest of the normalized title. Identical titles
// hash identically across runs and processes.
func TitleHash(title string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(normalizeTitle(title)))
}

// ContentHash returns the change-detection digest of a closed section: the
// normalized title plus every piece of collected content text, in order.
func ContentHash(title string, content []string) string {
	h := sha256.New()
	h.Write([]byte(normalizeTitle(title)))
	for _, c := range content {
		h.Write([]byte{'\n'})
		h.Write([]byte(c))
	}
	return hex.EncodeToString(h.Sum(nil))
}
