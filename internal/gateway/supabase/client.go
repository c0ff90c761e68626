// Package supabase talks to a hosted Supabase project over its REST surfaces:
// PostgREST for tables, Storage for objects and GoTrue for auth.
package supabase

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/guonaihong/gout"
	"github.com/guonaihong/gout/dataflow"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"apparel-catalog/internal/gateway"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client is safe for concurrent use. Build one per process and share it.
type Client struct {
	baseURL    string
	anonKey    string
	serviceKey string
	hc         *http.Client
}

var (
	_ gateway.Tables        = (*Client)(nil)
	_ gateway.Storage       = (*Client)(nil)
	_ gateway.Authenticator = (*Client)(nil)
)

// Option customises a Client.
type Option func(*Client)

// WithServiceKey makes calls without a user token run with the service role.
func WithServiceKey(key string) Option {
	return func(c *Client) { c.serviceKey = key }
}

// WithHTTPClient replaces the default client and its 10s timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// New returns a client for the project at baseURL (https://<ref>.supabase.co).
func New(baseURL, anonKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		hc:      &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type call struct {
	method  string
	path    string
	query   gout.H
	headers gout.H
	body    []byte
}

// apiError is the error body shape shared by PostgREST, Storage and GoTrue.
type apiError struct {
	Code       interface{} `json:"code"`
	StatusCode interface{} `json:"statusCode"`
	Error      string      `json:"error"`
	Message    string      `json:"message"`
	Msg        string      `json:"msg"`
}

func (e apiError) text() string {
	for _, s := range []string{e.Message, e.Msg, e.Error} {
		if s != "" {
			return s
		}
	}
	return "unknown error"
}

func (c *Client) bearer(ctx context.Context) string {
	if tok := gateway.AccessToken(ctx); tok != "" {
		return tok
	}
	if c.serviceKey != "" {
		return c.serviceKey
	}
	return c.anonKey
}

func (c *Client) do(ctx context.Context, r call) (int, []byte, error) {
	url := c.baseURL + r.path
	g := gout.New(c.hc)

	var df *dataflow.DataFlow
	switch r.method {
	case http.MethodGet:
		df = g.GET(url)
	case http.MethodPost:
		df = g.POST(url)
	case http.MethodPatch:
		df = g.PATCH(url)
	case http.MethodDelete:
		df = g.DELETE(url)
	default:
		return 0, nil, errors.Errorf("supabase: unsupported method %s", r.method)
	}

	headers := gout.H{
		"apikey":        c.anonKey,
		"Authorization": "Bearer " + c.bearer(ctx),
	}
	for k, v := range r.headers {
		headers[k] = v
	}

	df = df.WithContext(ctx).SetHeader(headers)
	if len(r.query) > 0 {
		df = df.SetQuery(r.query)
	}
	if r.body != nil {
		df = df.SetBody(r.body)
	}

	var (
		code int
		body string
	)
	if err := df.BindBody(&body).Code(&code).Do(); err != nil {
		return 0, nil, errors.Wrapf(err, "supabase: %s %s", r.method, r.path)
	}
	return code, []byte(body), nil
}

func statusError(method, path string, code int, body []byte) error {
	var ae apiError
	_ = json.Unmarshal(body, &ae)
	return errors.Errorf("supabase: %s %s: status %d: %s", method, path, code, ae.text())
}

func ok(code int) bool { return code >= 200 && code < 300 }

func jsonBody(v interface{}) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "supabase: encode body")
	}
	return b, nil
}

func eq(v interface{}) string { return fmt.Sprintf("eq.%v", v) }
