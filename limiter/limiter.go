// Package limiter combines several token buckets into one rate limiter.
package limiter

import (
	"context"
	"sort"
	"time"

	"golang.org/x/time/rate"
)

type RateLimiter interface {
	Wait(context.Context) error
	Limit() rate.Limit
}

// Per returns the limit that allows eventCount events every duration.
func Per(eventCount int, duration time.Duration) rate.Limit {
	if eventCount <= 0 {
		return rate.Inf
	}
	return rate.Every(duration / time.Duration(eventCount))
}

// Multi returns a limiter that waits on every limiter, strictest first.
func Multi(limiters ...RateLimiter) *MultiLimiter {
	byLimit := func(i, j int) bool {
		return limiters[i].Limit() < limiters[j].Limit()
	}
	sort.Slice(limiters, byLimit)
	return &MultiLimiter{limiters: limiters}
}

type MultiLimiter struct {
	limiters []RateLimiter
}

func (l *MultiLimiter) Wait(ctx context.Context) error {
	for _, l := range l.limiters {
		if err := l.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Limit is the strictest limit; rate.Inf when there are no limiters.
func (l *MultiLimiter) Limit() rate.Limit {
	if len(l.limiters) == 0 {
		return rate.Inf
	}
	return l.limiters[0].Limit()
}

// Config describes one bucket: EventCount events every EventDuration
// seconds with burst Bucket.
type Config struct {
	EventCount    int `json:"eventCount" toml:"eventCount"`
	EventDuration int `json:"eventDuration" toml:"eventDuration"`
	Bucket        int `json:"bucket" toml:"bucket"`
}

// FromConfig builds a MultiLimiter from cfgs. It returns nil when cfgs is
// empty.
func FromConfig(cfgs []Config) RateLimiter {
	if len(cfgs) == 0 {
		return nil
	}
	limits := make([]RateLimiter, 0, len(cfgs))
	for _, c := range cfgs {
		burst := c.Bucket
		if burst <= 0 {
			burst = 1
		}
		l := rate.NewLimiter(Per(c.EventCount, time.Duration(c.EventDuration)*time.Second), burst)
		limits = append(limits, l)
	}
	return Multi(limits...)
}
