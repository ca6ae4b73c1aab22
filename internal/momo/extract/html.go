package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/chromedp/chromedp"
	readability "github.com/go-shiori/go-readability"

	"momo/internal/momo/merrors"
	"momo/internal/momo/model"
)

// extractURL fetches a page, runs readability to strip boilerplate, and
// converts the remaining markup to markdown. Pages that fail readability's
// content heuristics (common for JS-rendered SPAs) fall back to a headless
// chromedp render before giving up.
func extractURL(ctx context.Context, rawURL string) (Content, error) {
	const op = "extract.extractURL"

	body, err := fetch(ctx, rawURL)
	rendered := false
	if err != nil {
		body, err = fetchRendered(ctx, rawURL)
		if err != nil {
			return Content{}, merrors.Recoverable(op, fmt.Errorf("fetch %s: %w", rawURL, err))
		}
		rendered = true
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return Content{}, merrors.Fatal(op, err)
	}

	article, err := readability.FromReader(strings.NewReader(body), parsed)
	if (err != nil || strings.TrimSpace(article.TextContent) == "") && !rendered {
		if html, rerr := fetchRendered(ctx, rawURL); rerr == nil {
			body = html
			article, err = readability.FromReader(strings.NewReader(body), parsed)
		}
	}
	if err != nil || strings.TrimSpace(article.TextContent) == "" {
		return extractHTML(body, rawURL)
	}

	converted, err := md.ConvertString(article.Content)
	if err != nil {
		converted = article.TextContent
	}

	text := strings.TrimSpace(converted)
	return Content{
		Text:      text,
		Title:     article.Title,
		DocType:   model.DocTypeWebpage,
		URL:       rawURL,
		WordCount: wordCount(text),
	}, nil
}

// extractHTML converts a raw HTML literal (no readability boilerplate
// stripping available, or already the last-resort path) into markdown.
func extractHTML(html string, sourceURL string) (Content, error) {
	converted, err := md.ConvertString(html)
	if err != nil {
		return Content{}, merrors.Recoverable("extract.extractHTML", err)
	}
	text := strings.TrimSpace(converted)
	dt := model.DocTypeText
	if sourceURL != "" {
		dt = model.DocTypeWebpage
	}
	return Content{
		Text:      text,
		DocType:   dt,
		URL:       sourceURL,
		WordCount: wordCount(text),
	}, nil
}

func fetch(ctx context.Context, rawURL string) (string, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := newHTTPClient().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// fetchRendered is the chromedp fallback for pages that require JS
// execution before content is present in the DOM.
func fetchRendered(ctx context.Context, rawURL string) (string, error) {
	renderCtx, cancel := chromedp.NewContext(ctx)
	defer cancel()

	renderCtx, cancelTimeout := context.WithTimeout(renderCtx, 30*time.Second)
	defer cancelTimeout()

	var html string
	err := chromedp.Run(renderCtx,
		chromedp.Navigate(rawURL),
		chromedp.Sleep(500*time.Millisecond),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", err
	}
	return html, nil
}
