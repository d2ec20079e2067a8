// Package collect is the network side of recipe execution: plain HTTP
// requests for http_request steps and charset-aware HTML fetching for
// static pages.
package collect

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Client is a Requester backed by resty over a retrying transport.
type Client struct {
	options
	resty *resty.Client
}

func NewClient(opts ...Option) *Client {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = options.retryMax
	retryClient.RetryWaitMin = options.retryWaitMin
	retryClient.RetryWaitMax = options.retryWaitMax
	retryClient.Logger = leveledLogger{options.logger.Sugar()}
	// hand the final response back instead of a "giving up" error
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if options.proxy != nil {
		if t, ok := retryClient.HTTPClient.Transport.(*http.Transport); ok {
			t.Proxy = options.proxy
		}
	}

	r := resty.NewWithClient(retryClient.StandardClient()).
		SetTimeout(options.timeout).
		SetHeader("User-Agent", options.userAgent)
	if len(options.headers) > 0 {
		r.SetHeaders(options.headers)
	}

	return &Client{options: options, resty: r}
}

// Do sends req and returns the response whatever its status. Errors are
// transport failures only.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if c.limit != nil {
		if err := c.limit.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}
	r := c.resty.R().SetContext(ctx).SetHeaders(req.Headers)
	if req.Body != "" {
		r.SetBody(req.Body)
	}
	resp, err := r.Execute(method, req.URL)
	if err != nil {
		c.logger.Error("request failed",
			zap.String("method", method),
			zap.String("url", req.URL),
			zap.Error(err))
		return nil, err
	}
	c.logger.Debug("request done",
		zap.String("method", method),
		zap.String("url", req.URL),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("elapsed", resp.Time()))
	return &Response{
		Status: resp.StatusCode(),
		Header: resp.Header(),
		Body:   resp.Body(),
	}, nil
}

// FetchHTML downloads url and returns its body converted to UTF-8.
func (c *Client) FetchHTML(ctx context.Context, url string) (string, error) {
	resp, err := c.Do(ctx, &Request{URL: url, Method: http.MethodGet})
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	if resp.Status != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status code %d", url, resp.Status)
	}

	bodyReader := bufio.NewReader(bytes.NewReader(resp.Body))
	e := DeterminEncoding(bodyReader, resp.Header.Get("Content-Type"))
	utf8Reader := transform.NewReader(bodyReader, e.NewDecoder())
	b, err := io.ReadAll(utf8Reader)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", url, err)
	}
	return string(b), nil
}

// DeterminEncoding sniffs the encoding from the first KB of r and the
// Content-Type header, defaulting to UTF-8.
func DeterminEncoding(r *bufio.Reader, contentType string) encoding.Encoding {
	bytes, err := r.Peek(1024)
	if err != nil && len(bytes) == 0 {
		return unicode.UTF8
	}
	e, _, _ := charset.DetermineEncoding(bytes, contentType)
	return e
}

// leveledLogger adapts zap to retryablehttp.LeveledLogger.
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.s.Infow(msg, kv...) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
