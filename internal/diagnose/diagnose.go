// Package diagnose turns the HTML of a page that failed verification into a
// short summary for the failure log.
package diagnose

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// MaxExcerpt caps the readable text kept in a Snapshot, in bytes.
const MaxExcerpt = 2 << 10

// extractTimeout caps the readability pass when the caller's context allows
// longer.
const extractTimeout = 10 * time.Second

// Item is one .list-item entry of the page.
type Item struct {
	List           string `json:"list"`
	Index          int    `json:"index"`
	Value          string `json:"value,omitempty"`
	DeleteLabel    string `json:"delete_label,omitempty"`
	HasDeleteLabel bool   `json:"has_delete_label"`
}

func (it Item) String() string {
	label := "no aria-label"
	if it.HasDeleteLabel {
		label = fmt.Sprintf("aria-label=%q", it.DeleteLabel)
	}
	return fmt.Sprintf("%s[%d] %q (%s)", it.List, it.Index, it.Value, label)
}

// Snapshot summarises a page.
type Snapshot struct {
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
	Items   []Item `json:"items"`
}

// Outline renders the list items one per line.
func (s *Snapshot) Outline() string {
	lines := make([]string, 0, len(s.Items))
	for _, it := range s.Items {
		lines = append(lines, it.String())
	}
	return strings.Join(lines, "\n")
}

// Capture builds a Snapshot from html served at pageURL. The readable excerpt
// is abandoned for plain body text once ctx is done.
func Capture(ctx context.Context, html, pageURL string) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	snap := &Snapshot{
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
		Items: outline(doc),
	}

	title, text, err := extractReadableContent(ctx, html, pageURL)
	if err != nil || strings.TrimSpace(text) == "" {
		text = doc.Find("body").Text()
	} else if snap.Title == "" {
		snap.Title = title
	}
	snap.Excerpt = truncate(collapseSpace(text), MaxExcerpt)
	return snap, nil
}

func outline(doc *goquery.Document) []Item {
	var items []Item
	doc.Find(".list-item").Each(func(_ int, sel *goquery.Selection) {
		list, _ := sel.Parent().Attr("id")
		it := Item{
			List:  list,
			Index: sel.Index(),
			Value: sel.Find("input.inline-input").First().AttrOr("value", ""),
		}
		if del := sel.Find("button[data-action='del']").First(); del.Length() > 0 {
			it.DeleteLabel, it.HasDeleteLabel = del.Attr("aria-label")
		}
		items = append(items, it)
	})
	return items
}

// extractReadableContent runs go-readability until ctx is done or
// extractTimeout passes; it can be slow on large pages.
func extractReadableContent(ctx context.Context, html, pageURL string) (title, content string, err error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return "", "", err
	}
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	ctx, cancel := context.WithTimeout(ctx, extractTimeout)
	defer cancel()

	type result struct {
		title   string
		content string
		err     error
	}
	ch := make(chan result, 1)
	go func() {
		article, err := readability.FromReader(strings.NewReader(html), parsedURL)
		if err != nil {
			ch <- result{err: err}
			return
		}
		ch <- result{title: article.Title, content: article.TextContent}
	}()

	select {
	case r := <-ch:
		return r.title, r.content, r.err
	case <-ctx.Done():
		return "", "", fmt.Errorf("readability extraction: %w", ctx.Err())
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
