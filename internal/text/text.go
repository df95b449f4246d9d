package text

import (
	"crypto/sha1"
	"encoding/hex"
	"html"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	tags       = regexp.MustCompile(`<[^>]*>`)
	whitespace = regexp.MustCompile(`\s+`)
)

// sentence boundaries recognized by the chunker, longest first
var sentenceMarks = []string{".\n", "!\n", "?\n", ". ", "! ", "? "}

// StripHTML removes markup and entities from feed-provided bodies and
// collapses whitespace. Punctuation is preserved for sentence detection.
func StripHTML(input string) string {
	if input == "" {
		return ""
	}
	decoded := html.UnescapeString(input)
	decoded = tags.ReplaceAllString(decoded, " ")
	decoded = whitespace.ReplaceAllString(decoded, " ")
	return strings.TrimSpace(decoded)
}

// ArticleID hashes the most stable fields into a deterministic identity.
// The canonical link wins when present; otherwise source, title, and the
// published timestamp are combined.
func ArticleID(link, source, title string, published time.Time) string {
	key := canonicalURL(link)
	if key == "" {
		key = source + "|" + title + "|" + published.UTC().Format(time.RFC3339)
	}
	s := sha1.Sum([]byte(key))
	return hex.EncodeToString(s[:])
}

func canonicalURL(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return link
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawQuery = ""
	return strings.TrimSuffix(u.String(), "/")
}

// TruncateAtSentence caps s at max bytes, cutting at the last complete
// sentence when one exists and at the last word boundary otherwise.
func TruncateAtSentence(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	window := s[:safeCut(s, max)]
	best := -1
	for _, mark := range sentenceMarks {
		if i := strings.LastIndex(window, mark); i >= 0 && i+1 > best {
			best = i + 1
		}
	}
	if last := strings.LastIndexAny(window, ".!?"); last == len(window)-1 {
		best = len(window)
	}
	if best > 0 {
		return strings.TrimSpace(window[:best])
	}
	if i := strings.LastIndexByte(window, ' '); i > 0 {
		return strings.TrimSpace(window[:i])
	}
	return window
}

// SplitAtBoundaries slices s into chunks of at most max bytes, cutting at
// paragraph breaks, then sentence ends, then word boundaries. No byte is
// dropped or altered: concatenating the chunks reproduces s exactly.
func SplitAtBoundaries(s string, max int) []string {
	if s == "" {
		return nil
	}
	if max <= 0 || len(s) <= max {
		return []string{s}
	}
	var chunks []string
	for len(s) > max {
		cut := boundaryCut(s, max)
		chunks = append(chunks, s[:cut])
		s = s[cut:]
	}
	if len(s) > 0 {
		chunks = append(chunks, s)
	}
	return chunks
}

func boundaryCut(s string, max int) int {
	window := s[:safeCut(s, max)]
	if i := strings.LastIndex(window, "\n\n"); i > 0 {
		return i + 2
	}
	best := 0
	for _, mark := range sentenceMarks {
		if i := strings.LastIndex(window, mark); i >= 0 && i+len(mark) > best {
			best = i + len(mark)
		}
	}
	if best > 0 {
		return best
	}
	if i := strings.LastIndexByte(window, ' '); i > 0 {
		return i + 1
	}
	// no boundary at all, cut at the window edge
	return len(window)
}

// safeCut backs n off to the nearest rune start so slicing never splits a
// multi-byte character.
func safeCut(s string, n int) int {
	if n >= len(s) {
		return len(s)
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return n
}

// spokenWordsPerMinute approximates a TTS voice at normal speaking rate.
const spokenWordsPerMinute = 165

// EstimateSpokenDuration guesses how long the given script takes to read
// aloud. Providers do not report duration for raw MP3 bytes.
func EstimateSpokenDuration(s string) time.Duration {
	words := len(strings.Fields(s))
	if words == 0 {
		return 0
	}
	return time.Duration(float64(words) / spokenWordsPerMinute * float64(time.Minute))
}
