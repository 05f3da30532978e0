// Package metadata extracts title, description, favicon and preview image
// from a web page.
package metadata

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/config"
)

const maxBodySize = 2 << 20

// iconRels in order of preference.
var iconRels = []string{"icon", "shortcut icon", "apple-touch-icon", "apple-touch-icon-precomposed"}

// Metadata holds what could be extracted. Missing values are nil.
type Metadata struct {
	Title       *string
	Description *string
	FaviconURL  *string
	ImageURL    *string
}

type Fetcher struct {
	client *resty.Client
	logger *zap.SugaredLogger
}

func NewFetcher(cfg *config.Config, l *zap.SugaredLogger) *Fetcher {
	client := resty.New().
		SetTimeout(cfg.MetadataTimeout).
		SetHeader("User-Agent", cfg.MetadataUserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml").
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	return &Fetcher{
		client: client,
		logger: l,
	}
}

// Fetch downloads rawURL once and reads its metadata. It never fails: a page
// that cannot be loaded yields only the default favicon, and a url without
// scheme and host yields nothing.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) Metadata {
	base, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return Metadata{}
	}
	degraded := Metadata{FaviconURL: str(defaultFavicon(base))}

	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(base.String())
	if err != nil {
		f.logger.Debugw("metadata fetch failed", "url", rawURL, "err", err)
		return degraded
	}
	body := resp.RawBody()
	defer body.Close()

	if !resp.IsSuccess() {
		f.logger.Debugw("metadata fetch got bad status", "url", rawURL, "status", resp.StatusCode())
		return degraded
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(body, maxBodySize))
	if err != nil {
		f.logger.Debugw("metadata parse failed", "url", rawURL, "err", err)
		return degraded
	}
	return extract(doc, base)
}

func extract(doc *goquery.Document, base *url.URL) Metadata {
	meta := Metadata{
		Title:       first(metaContent(doc, "og:title"), metaContent(doc, "twitter:title"), doc.Find("title").First().Text()),
		Description: first(metaContent(doc, "og:description"), metaContent(doc, "twitter:description"), metaContent(doc, "description")),
	}

	favicon := defaultFavicon(base)
	if href := iconHref(doc); href != "" {
		favicon = ResolveURL(base, href)
	}
	meta.FaviconURL = &favicon

	if image := first(metaContent(doc, "og:image"), metaContent(doc, "twitter:image")); image != nil {
		meta.ImageURL = str(ResolveURL(base, *image))
	}
	return meta
}

// iconHref returns the href of the most preferred icon link; the first one
// in the document wins among links with the same rel.
func iconHref(doc *goquery.Document) string {
	links := doc.Find("link[rel]")
	for _, want := range iconRels {
		href := ""
		links.EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if !strings.EqualFold(strings.TrimSpace(s.AttrOr("rel", "")), want) {
				return true
			}
			href = strings.TrimSpace(s.AttrOr("href", ""))
			return href == ""
		})
		if href != "" {
			return href
		}
	}
	return ""
}

// metaContent returns the content of the first meta tag whose property or
// name equals key.
func metaContent(doc *goquery.Document, key string) string {
	content := ""
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.EqualFold(s.AttrOr("property", ""), key) && !strings.EqualFold(s.AttrOr("name", ""), key) {
			return true
		}
		content = strings.TrimSpace(s.AttrOr("content", ""))
		return content == ""
	})
	return content
}

// ResolveURL makes value absolute against the scheme and host of base.
func ResolveURL(base *url.URL, value string) string {
	lower := strings.ToLower(value)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return value
	case strings.HasPrefix(value, "//"):
		return "https:" + value
	case strings.HasPrefix(value, "/"):
		return base.Scheme + "://" + base.Host + value
	default:
		return base.Scheme + "://" + base.Host + "/" + value
	}
}

func defaultFavicon(base *url.URL) string {
	return base.Scheme + "://" + base.Host + "/favicon.ico"
}

func first(values ...string) *string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return &v
		}
	}
	return nil
}

func str(s string) *string {
	return &s
}
