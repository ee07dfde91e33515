package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Static extracts reviews from raw HTML without a browser. Text behind
// "show more" controls stays truncated; the caller decides whether that is
// acceptable or escalates to a live session.
func Static(html []byte, cfg Config) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("extract: parse html: %w", err)
	}
	var reviews []string
	doc.Find(cfg.ContainerSelector).Each(func(_ int, sel *goquery.Selection) {
		text := ""
		if cfg.TextSelector != "" {
			text = sel.Find(cfg.TextSelector).Text()
		}
		if strings.TrimSpace(text) == "" {
			text = sel.Text()
		}
		reviews = append(reviews, strings.TrimSpace(text))
	})
	return reviews, nil
}

// NeedsBrowser reports whether raw HTML looks like a JS application shell
// whose review content only exists after rendering. Used to decide when a
// plain HTTP fetch is enough and the browser launch can be skipped.
func NeedsBrowser(html []byte) bool {
	if len(html) < 256 {
		return true
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return true
	}
	doc.Find("script,style,noscript").Remove()
	text := strings.Join(strings.Fields(doc.Text()), " ")
	if len(text) < 200 {
		return true
	}
	lower := bytes.ToLower(html)
	for _, shell := range [][]byte{
		[]byte(`<div id="root"></div>`),
		[]byte(`<div id="app"></div>`),
		[]byte(`<div id="__next"></div>`),
	} {
		if bytes.Contains(lower, shell) {
			return true
		}
	}
	return false
}
