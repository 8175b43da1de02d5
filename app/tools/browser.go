package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const maxFetchSize = 5 << 20

var httpClient = &http.Client{Timeout: 20 * time.Second}

func webHandler(ctx context.Context, action ToolTask) (string, error) {
	switch action.Key {
	case browser_fetch:
		return withParsed[FetchAction](action.Parameters, action.Key, func(a FetchAction) (string, error) {
			return fetchHTMLContent(ctx, a)
		})
	case browser_extract_text:
		return withParsed[ExtractAction](action.Parameters, action.Key, extractTextContent)
	case browser_extract_links:
		return withParsed[ExtractAction](action.Parameters, action.Key, extractLinks)
	case browser_extract_meta:
		return withParsed[ExtractAction](action.Parameters, action.Key, extractMetaTags)
	}
	log.Printf("❌ Unknown tool key: %s\n", action.Key)
	return "", fmt.Errorf("unknown tool key: %s", action.Key)
}

func fetchHTMLContent(ctx context.Context, a FetchAction) (string, error) {
	if a.URL == "" {
		return "", errors.New("invalid parameters: 'url' is required")
	}
	u, err := url.Parse(a.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("invalid url: %s", a.URL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL, nil)
	if err != nil {
		return "", err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		log.Printf("❌ Error fetching URL content %s: %v\n", a.URL, err)
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("⚠️ URL %s returned status code: %d\n", a.URL, resp.StatusCode)
		return "", fmt.Errorf("failed to fetch URL content: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchSize))
	if err != nil {
		log.Printf("❌ Error reading content from URL %s: %v\n", a.URL, err)
		return "", err
	}
	return string(body), nil
}

func extractLinks(a ExtractAction) (string, error) {
	doc, err := parseHTML(a.HTML)
	if err != nil {
		return "", err
	}

	var links []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key == "href" && attr.Val != "" {
					links = append(links, attr.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	log.Printf("✅ Successfully extracted %d links\n", len(links))
	return strings.Join(links, "\n"), nil
}

func extractTextContent(a ExtractAction) (string, error) {
	doc, err := parseHTML(a.HTML)
	if err != nil {
		return "", err
	}

	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	log.Printf("✅ Successfully extracted %d text blocks\n", len(parts))
	return strings.Join(parts, " "), nil
}

func extractMetaTags(a ExtractAction) (string, error) {
	doc, err := parseHTML(a.HTML)
	if err != nil {
		return "", err
	}

	meta := map[string]string{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if n.Data == "title" && n.FirstChild != nil {
				meta["title"] = strings.TrimSpace(n.FirstChild.Data)
			}
			if n.Data == "meta" {
				var name, content string
				for _, attr := range n.Attr {
					switch attr.Key {
					case "name", "property":
						name = attr.Val
					case "content":
						content = attr.Val
					}
				}
				if name != "" {
					meta[name] = content
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", k, meta[k])
	}
	log.Printf("✅ Successfully extracted %d meta tags\n", len(meta))
	return b.String(), nil
}

func parseHTML(s string) (*html.Node, error) {
	if strings.TrimSpace(s) == "" {
		return nil, errors.New("invalid parameters: 'html' is required")
	}
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		log.Printf("❌ Error parsing HTML content: %v\n", err)
		return nil, err
	}
	return doc, nil
}
