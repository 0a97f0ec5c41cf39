// Copyright 2025 The BerkWatch Authors
// SPDX-License-Identifier: Apache-2.0

// Package scanner ingests public-safety articles from berkeleyscanner.com.
package scanner

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/berkwatch/berkwatch/utils/htmlutils"
)

// Article is one scraped berkeleyscanner.com story.
type Article struct {
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Published time.Time `json:"published"` // zero when the page carries no date
	ImageURL  string    `json:"image_url"`
	Body      string    `json:"body"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Validate reports the fields an article must carry to be stored.
func (a *Article) Validate() error {
	ret := []string{}

	if a.URL == "" {
		ret = append(ret, "URL is empty")
	}

	if a.Title == "" {
		ret = append(ret, "Title is empty")
	}

	if len(ret) == 0 {
		return nil
	}

	return errors.New(strings.Join(ret, "; "))
}

// Story permalinks embed the publication date.
var articleURLPattern = regexp.MustCompile(`/\d{4}/\d{2}/\d{2}/`)

// FilterArticleURLs keeps the links that look like story permalinks under
// base, deduplicated and sorted for stable traversal.
func FilterArticleURLs(links []string, base string) []string {
	seen := map[string]bool{}

	var urls []string

	for _, link := range links {
		var u string

		switch {
		case strings.HasPrefix(link, base):
			u = link
		case strings.HasPrefix(link, "/"):
			u = strings.TrimSuffix(base, "/") + link
		default:
			continue
		}

		if !articleURLPattern.MatchString(u) || seen[u] {
			continue
		}

		seen[u] = true

		urls = append(urls, u)
	}

	sort.Strings(urls)

	return urls
}

var (
	authorPattern = regexp.MustCompile(`^By ([A-Za-z .'-]+)$`)
	datePattern   = regexp.MustCompile(`(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+\d{1,2},\s*\d{4}`)
)

// extractAuthor looks for the byline, a paragraph of its own on story pages.
func extractAuthor(doc *html.Node) string {
	var author string

	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && strings.EqualFold(n.Data, "p") {
			if m := authorPattern.FindStringSubmatch(htmlutils.Text(n)); m != nil {
				author = strings.TrimSpace(m[1])

				return true
			}

			return false
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if walk(child) {
				return true
			}
		}

		return false
	}
	walk(doc)

	return author
}

var publishedLayouts = []string{
	"Jan 2, 2006",
	"Jan. 2, 2006",
	"January 2, 2006",
}

// ExtractArticle pulls the structured fields out of a story page.
func ExtractArticle(doc *html.Node, url string) *Article {
	a := &Article{URL: url, FetchedAt: time.Now().UTC()}

	if body := htmlutils.FindFirst(doc, "body"); body != nil {
		a.Body = htmlutils.Text(body)
	}

	if h1 := htmlutils.FindFirst(doc, "h1"); h1 != nil {
		a.Title = htmlutils.Text(h1)
	}

	if a.Title == "" {
		if title := htmlutils.FindFirst(doc, "title"); title != nil {
			a.Title = htmlutils.Text(title)
		}
	}

	a.Author = extractAuthor(doc)

	if m := datePattern.FindString(a.Body); m != "" {
		for _, layout := range publishedLayouts {
			if t, err := time.Parse(layout, normalizeDate(m)); err == nil {
				a.Published = t.UTC()

				break
			}
		}
	}

	if img := htmlutils.FindFirst(doc, "img"); img != nil {
		a.ImageURL = htmlutils.Attr(img, "src")
	}

	return a
}

// normalizeDate collapses the spacing variants the site uses.
func normalizeDate(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
