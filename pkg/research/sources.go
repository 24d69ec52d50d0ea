package research

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"
)

var ErrNoResults = errors.New("no results")

// Finding is what one source returned for a topic.
type Finding struct {
	Source  string
	Title   string
	Link    string
	Content string
}

type Source interface {
	Name() string
	Fetch(ctx context.Context, topic string) (Finding, error)
}

// httpSource is a rate-limited GET client.
type httpSource struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
}

func (s httpSource) get(ctx context.Context, endpoint string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "twinai-be/1.0 (research assistant)")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNoResults
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

// Wikipedia reads the page summary from the REST v1 API.
type Wikipedia struct {
	httpSource
}

func NewWikipedia(client *http.Client, baseURL string, limiter *rate.Limiter) *Wikipedia {
	return &Wikipedia{httpSource{client: client, baseURL: strings.TrimRight(baseURL, "/"), limiter: limiter}}
}

func (w *Wikipedia) Name() string { return "Wikipedia" }

func (w *Wikipedia) Fetch(ctx context.Context, topic string) (Finding, error) {
	title := strings.ReplaceAll(strings.TrimSpace(topic), " ", "_")
	body, err := w.get(ctx, w.baseURL+"/page/summary/"+url.PathEscape(title)+"?redirect=true")
	if err != nil {
		return Finding{}, fmt.Errorf("wikipedia: %w", err)
	}

	var page struct {
		Type        string `json:"type"`
		Title       string `json:"title"`
		Extract     string `json:"extract"`
		ContentURLs struct {
			Desktop struct {
				Page string `json:"page"`
			} `json:"desktop"`
		} `json:"content_urls"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return Finding{}, fmt.Errorf("wikipedia: decode: %w", err)
	}
	if strings.TrimSpace(page.Extract) == "" || page.Type == "disambiguation" {
		return Finding{}, fmt.Errorf("wikipedia: %w", ErrNoResults)
	}
	return Finding{
		Source:  w.Name(),
		Title:   page.Title,
		Link:    page.ContentURLs.Desktop.Page,
		Content: page.Extract,
	}, nil
}

// Arxiv searches the Atom export API.
type Arxiv struct {
	httpSource
	maxResults int
}

func NewArxiv(client *http.Client, baseURL string, limiter *rate.Limiter, maxResults int) *Arxiv {
	if maxResults <= 0 {
		maxResults = 3
	}
	return &Arxiv{httpSource: httpSource{client: client, baseURL: baseURL, limiter: limiter}, maxResults: maxResults}
}

func (a *Arxiv) Name() string { return "arXiv" }

type atomFeed struct {
	Entries []struct {
		ID      string `xml:"id"`
		Title   string `xml:"title"`
		Summary string `xml:"summary"`
	} `xml:"entry"`
}

func (a *Arxiv) Fetch(ctx context.Context, topic string) (Finding, error) {
	q := url.Values{}
	q.Set("search_query", "all:"+strings.TrimSpace(topic))
	q.Set("start", "0")
	q.Set("max_results", fmt.Sprint(a.maxResults))
	q.Set("sortBy", "relevance")

	body, err := a.get(ctx, a.baseURL+"?"+q.Encode())
	if err != nil {
		return Finding{}, fmt.Errorf("arxiv: %w", err)
	}

	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return Finding{}, fmt.Errorf("arxiv: decode: %w", err)
	}
	if len(feed.Entries) == 0 {
		return Finding{}, fmt.Errorf("arxiv: %w", ErrNoResults)
	}

	var b strings.Builder
	for i, e := range feed.Entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%s: %s", collapse(e.Title), collapse(e.Summary))
	}
	first := feed.Entries[0]
	return Finding{
		Source:  a.Name(),
		Title:   collapse(first.Title),
		Link:    strings.TrimSpace(first.ID),
		Content: b.String(),
	}, nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
