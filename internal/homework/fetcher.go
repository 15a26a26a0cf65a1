package homework

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	defaultFetchTimeout = 10 * time.Second
	maxBodyBytes        = 8 << 20
	// tokenType makes oauth2 emit "Authorization: OAuth <token>" instead of Bearer.
	tokenType = "OAuth"
)

type FetcherConfig struct {
	Endpoint string
	Token    string
	// Timeout bounds one request including reading the body.
	Timeout time.Duration
	// Base is the underlying transport (default http.DefaultTransport).
	Base http.RoundTripper
}

// Fetcher performs one GET against the homework status endpoint per call.
type Fetcher struct {
	endpoint *url.URL
	client   *http.Client
}

func NewFetcher(cfg FetcherConfig) (*Fetcher, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("upstream token is empty")
	}
	u, err := url.Parse(strings.TrimSpace(cfg.Endpoint))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.New("upstream endpoint must be an absolute URL")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	base := cfg.Base
	if base == nil {
		base = http.DefaultTransport
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: tokenType})
	return &Fetcher{
		endpoint: u,
		client: &http.Client{
			Timeout:   timeout,
			Transport: &oauth2.Transport{Source: src, Base: base},
		},
	}, nil
}

// Fetch returns the decoded JSON body for the window starting at from (unix seconds).
// The body is not validated; see ValidateResponse.
func (f *Fetcher) Fetch(ctx context.Context, from int64) (any, error) {
	u := *f.endpoint
	q := u.Query()
	q.Set("from_date", strconv.FormatInt(from, 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &Error{Kind: KindConnectivity, Msg: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindConnectivity, Msg: "endpoint unreachable", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, &Error{
			Kind:       KindConnectivity,
			Msg:        "endpoint returned HTTP " + strconv.Itoa(resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
	}

	dec := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes))
	dec.UseNumber()
	var body any
	if err := dec.Decode(&body); err != nil {
		if isDecodeError(err) {
			return nil, &Error{Kind: KindTypeMismatch, Msg: "response body is not valid JSON", Err: err}
		}
		return nil, &Error{Kind: KindConnectivity, Msg: "read response", Err: err}
	}
	return body, nil
}

func isDecodeError(err error) bool {
	var (
		syn *json.SyntaxError
		typ *json.UnmarshalTypeError
	)
	return errors.As(err, &syn) || errors.As(err, &typ) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
