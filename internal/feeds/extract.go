package feeds

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ajay-manwani/news-extraction/internal/text"
)

// maxBodyChars caps extracted page text; summaries never need a full
// long-form article.
const maxBodyChars = 8000

// ExtractBody fetches an article page and pulls the paragraph text out of
// it. Feeds frequently ship only a one-line description, which is too thin
// to summarize.
func ExtractBody(ctx context.Context, client *http.Client, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "news-extraction/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}
	doc.Find("script, style, nav, footer, aside").Remove()

	var sb strings.Builder
	doc.Find("article p, p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		t := strings.TrimSpace(s.Text())
		if t == "" {
			return true
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(t)
		return sb.Len() < maxBodyChars
	})

	body := text.StripHTML(sb.String())
	if len(body) > maxBodyChars {
		body = text.TruncateAtSentence(body, maxBodyChars)
	}
	if body == "" {
		return "", fmt.Errorf("no paragraph text at %s", pageURL)
	}
	return body, nil
}
