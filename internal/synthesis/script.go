package synthesis

import (
	"fmt"
	"strings"
	"time"

	"github.com/ajay-manwani/news-extraction/internal/models"
	"github.com/ajay-manwani/news-extraction/internal/text"
)

// segment separator, rendered by TTS voices as a natural pause
const pause = "\n\n"

type span struct {
	start, end int
	articleID  string
}

// Script is the assembled podcast text plus the byte ranges each article's
// summary occupies, so chunks can be traced back to their articles.
type Script struct {
	Text  string
	spans []span
}

// Build assembles the spoken script from accepted summaries: a dated intro,
// one paragraph per summary, and a signoff. Failed summaries are ignored.
func Build(summaries []models.SummaryResult, now time.Time) *Script {
	var (
		sb    strings.Builder
		spans []span
	)
	sb.WriteString(fmt.Sprintf("Welcome to your news roundup for %s. Here are today's stories.", now.Format("Monday, January 2")))

	for _, s := range summaries {
		if s.Status != models.SummaryAccepted {
			continue
		}
		sb.WriteString(pause)
		start := sb.Len()
		sb.WriteString(strings.TrimSpace(s.Text))
		spans = append(spans, span{start: start, end: sb.Len(), articleID: s.ArticleID})
	}

	sb.WriteString(pause)
	sb.WriteString("That's all for now. Thanks for listening.")

	return &Script{Text: sb.String(), spans: spans}
}

// Chunks splits the script into provider-sized pieces. Concatenating the
// chunk texts in index order reproduces Text byte for byte. Each chunk
// carries the IDs of the articles whose summaries overlap it.
func (s *Script) Chunks(maxChars int) []models.ScriptChunk {
	parts := text.SplitAtBoundaries(s.Text, maxChars)
	chunks := make([]models.ScriptChunk, 0, len(parts))

	offset := 0
	for i, part := range parts {
		start, end := offset, offset+len(part)
		var ids []string
		for _, sp := range s.spans {
			if sp.start < end && sp.end > start {
				ids = append(ids, sp.articleID)
			}
		}
		chunks = append(chunks, models.ScriptChunk{Index: i, Text: part, ArticleIDs: ids})
		offset = end
	}
	return chunks
}

// ArticleIDs lists every article included in the script, in script order.
func (s *Script) ArticleIDs() []string {
	ids := make([]string, 0, len(s.spans))
	for _, sp := range s.spans {
		ids = append(ids, sp.articleID)
	}
	return ids
}
