package feed

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"html"
	"path"
	"strings"
	"weibo_relay/client"
)

var imageExts = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// PlainText renders post HTML as text: line breaks become newlines, emoticons their alt text.
func PlainText(htm string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htm))
	if err != nil {
		return stripHtml(htm)
	}
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		alt, _ := s.Attr("alt")
		s.ReplaceWithHtml(html.EscapeString(alt))
	})
	body, err := doc.Find("body").Html()
	if err != nil {
		return stripHtml(htm)
	}
	return stripHtml(body)
}

func stripHtml(htm string) string {
	p := bluemonday.StrictPolicy()
	plain := p.Sanitize(htm)
	plain = html.UnescapeString(plain)
	plain = strings.TrimSpace(plain)
	return plain
}

// RewriteImages sanitizes post HTML and points embedded images, and links to images, at cl's image proxy.
func RewriteImages(htm string, cl client.IClient) string {
	safe := bluemonday.UGCPolicy().Sanitize(htm)
	if !cl.IsProxyConfigured() {
		return safe
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(safe))
	if err != nil {
		return safe
	}
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		s.SetAttr("src", cl.ImageURL(src))
	})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if isImageLink(href) {
			s.SetAttr("href", cl.ImageURL(href))
		}
	})
	res, err := doc.Find("body").Html()
	if err != nil {
		return safe
	}
	return res
}

func isImageLink(href string) bool {
	ix := strings.IndexAny(href, "?#")
	if ix >= 0 {
		href = href[:ix]
	}
	ext := strings.ToLower(path.Ext(href))
	for _, imageExt := range imageExts {
		if ext == imageExt {
			return true
		}
	}
	return false
}
