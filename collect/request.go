package collect

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
)

// Request is an HTTP request issued on behalf of a recipe step.
type Request struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    string
}

type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// JSON decodes the body.
func (r *Response) JSON() (any, error) {
	return DecodeJSON(r.Body)
}

// DecodeJSON decodes data into generic maps, slices and float64s.
func DecodeJSON(data []byte) (any, error) {
	var v any
	if err := sonic.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return v, nil
}

// Requester performs HTTP requests.
type Requester interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Intercepted is a network response observed while a page loads.
type Intercepted struct {
	URL      string
	Method   string
	Status   int
	Headers  map[string]string
	PostData string
	Body     []byte
}

// Predicate selects the responses an Interceptor delivers.
type Predicate func(method, url string) bool

// URLContains matches responses whose URL contains sub.
func URLContains(sub string) Predicate {
	return func(_, url string) bool {
		return strings.Contains(url, sub)
	}
}

// Interceptor delivers matching responses of a live page until ctx is done,
// then closes the channel.
type Interceptor interface {
	OnResponse(ctx context.Context, match Predicate) (<-chan *Intercepted, error)
}
