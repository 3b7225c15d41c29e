package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

const maxBodyBytes = 16 << 20

type response struct {
	Status      int
	ContentType string
	Body        []byte
}

// get issues a plain GET with no custom headers, bounded by the fetch timeout.
// The body is transcoded to UTF-8 according to its declared charset.
func (p *Parser) get(ctx context.Context, rawURL string) (*response, error) {
	ctx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	ct := resp.Header.Get("Content-Type")
	reader, err := charset.NewReader(io.LimitReader(resp.Body, maxBodyBytes), ct)
	if err != nil {
		return nil, fmt.Errorf("decode charset: %w", err)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	p.logger.Debug("fetched", "url", rawURL, "status", resp.StatusCode, "bytes", len(body))
	return &response{Status: resp.StatusCode, ContentType: ct, Body: body}, nil
}

// FetchPage downloads rawURL and parses it as HTML.
func (p *Parser) FetchPage(ctx context.Context, rawURL string) (*html.Node, error) {
	resp, err := p.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if resp.Status < 200 || resp.Status > 299 {
		return nil, fmt.Errorf("fetch %s: status %d", rawURL, resp.Status)
	}
	return ParseHTML(bytes.NewReader(resp.Body))
}
