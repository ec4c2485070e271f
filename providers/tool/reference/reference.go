// Package reference provides the design-reference lookup tool: it fetches a
// documentation page over HTTP and hands it to the collaborator as Markdown.
// Generators use it to consult datasheets or coding-guideline pages while
// drafting a module.
package reference

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/refinelab/refinery/internal/utils"
	"github.com/refinelab/refinery/providers/tool"
)

const (
	// DefaultTimeout bounds one reference fetch end to end.
	DefaultTimeout = 30 * time.Second

	// MaxBodySize caps the fetched page at 10MB.
	MaxBodySize = 10 * 1024 * 1024

	userAgent    = "refinery-reference-tool/1.0"
	maxRedirects = 10
)

// Input is the fetch request issued by the collaborator.
type Input struct {
	// URL of the reference page; partial URLs get an https:// prefix.
	URL string `json:"url" description:"URL of the reference or datasheet page to fetch"`
}

// Output is the fetched page as Markdown.
type Output struct {
	// URL is the final URL after redirects.
	URL string `json:"url"`

	// Markdown is the page content converted from HTML.
	Markdown string `json:"markdown"`
}

// FetchTool returns the reference-lookup tool.
func FetchTool() tool.GenericTool {
	return tool.New("fetch_reference", Fetch,
		tool.WithDescription("Fetches a documentation or datasheet page and returns its content as Markdown. Accepts partial URLs like 'example.com/spec'."),
	)
}

// Fetch retrieves the page at input.URL and converts it to Markdown. The body
// is capped at MaxBodySize and the whole request honours ctx.
func Fetch(ctx context.Context, input Input) (Output, error) {
	url := strings.TrimSpace(input.URL)
	if url == "" {
		return Output{}, fmt.Errorf("url cannot be empty")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}

	fetchCtx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	request, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, url, nil)
	if err != nil {
		return Output{}, fmt.Errorf("build request: %w", err)
	}
	request.Header.Set("User-Agent", userAgent)

	response, err := httpClient.Do(request)
	if err != nil {
		if fetchCtx.Err() != nil {
			return Output{}, fmt.Errorf("request timeout or cancelled: %w", err)
		}
		return Output{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer utils.CloseWithLog(response.Body)

	if response.StatusCode != http.StatusOK {
		return Output{}, fmt.Errorf("unexpected status: %s", response.Status)
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, MaxBodySize))
	if err != nil {
		return Output{}, fmt.Errorf("read body: %w", err)
	}
	if len(body) == MaxBodySize {
		return Output{}, fmt.Errorf("page exceeds %d bytes", MaxBodySize)
	}

	markdown, err := htmltomarkdown.ConvertString(string(body))
	if err != nil {
		return Output{}, fmt.Errorf("convert to markdown: %w", err)
	}

	return Output{
		URL:      response.Request.URL.String(),
		Markdown: markdown,
	}, nil
}

var httpClient = &http.Client{
	Timeout: DefaultTimeout,
	Transport: &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConnsPerHost:   10,
	},
	CheckRedirect: func(_ *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("too many redirects (>%d)", maxRedirects)
		}
		return nil
	},
}
