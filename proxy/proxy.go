// Package proxy picks the outbound proxy for each HTTP request.
package proxy

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
)

// Func has the shape of http.Transport.Proxy. A nil URL sends the request
// directly.
type Func func(*http.Request) (*url.URL, error)

// Direct in a proxy list sends that turn's request without a proxy.
const Direct = "direct"

type roundRobin struct {
	urls []*url.URL
	next atomic.Uint32
}

func (r *roundRobin) pick(*http.Request) (*url.URL, error) {
	i := r.next.Add(1) - 1
	return r.urls[i%uint32(len(r.urls))], nil
}

// RoundRobinSwitcher cycles through proxies, one per request. Entries that
// are not http, https or socks5 URLs are skipped.
func RoundRobinSwitcher(proxies ...string) (Func, error) {
	if len(proxies) == 0 {
		return nil, errors.New("proxy list is empty")
	}
	r := &roundRobin{}
	for _, p := range proxies {
		if strings.EqualFold(strings.TrimSpace(p), Direct) {
			r.urls = append(r.urls, nil)
			continue
		}
		u, err := url.Parse(p)
		if err != nil || u.Host == "" {
			continue
		}
		switch u.Scheme {
		case "http", "https", "socks5":
			r.urls = append(r.urls, u)
		}
	}
	if len(r.urls) == 0 {
		return nil, fmt.Errorf("no usable proxy in %v", proxies)
	}
	return r.pick, nil
}
