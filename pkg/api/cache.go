package api

import (
	"context"
	"errors"
	"time"
)

var errCacheStopped = errors.New("png cache stopped")

type pngRequest struct {
	ctx    context.Context
	key    string
	render func(context.Context) ([]byte, error)
	reply  chan pngResponse
}

type pngResponse struct {
	data []byte
	err  error
}

type pngEntry struct {
	data    []byte
	expires time.Time
}

// pngCache keeps rendered images for a while so a page reload does not
// redraw every QR code. One goroutine owns the map; callers talk to it over
// a channel.
type pngCache struct {
	ttl      time.Duration
	requests chan pngRequest
	quit     chan struct{}
	now      func() time.Time
}

func newPNGCache(ttl time.Duration) *pngCache {
	c := &pngCache{
		ttl:      ttl,
		requests: make(chan pngRequest),
		quit:     make(chan struct{}),
		now:      time.Now,
	}
	go c.loop()
	return c
}

// Close stops the owner goroutine. Later calls are no-ops.
func (c *pngCache) Close() {
	select {
	case <-c.quit:
	default:
		close(c.quit)
	}
}

// Get returns the image stored under key, rendering it on a miss or after
// expiry. Failed renders are not cached.
func (c *pngCache) Get(ctx context.Context, key string, render func(context.Context) ([]byte, error)) ([]byte, error) {
	select {
	case <-c.quit:
		return nil, errCacheStopped
	default:
	}
	req := pngRequest{ctx: ctx, key: key, render: render, reply: make(chan pngResponse, 1)}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.quit:
		return nil, errCacheStopped
	case c.requests <- req:
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case resp := <-req.reply:
		return resp.data, resp.err
	}
}

func (c *pngCache) loop() {
	store := make(map[string]pngEntry)
	for {
		select {
		case <-c.quit:
			return
		case req := <-c.requests:
			now := c.now()
			if e, ok := store[req.key]; ok && now.Before(e.expires) {
				req.reply <- pngResponse{data: e.data}
				continue
			}
			data, err := req.render(req.ctx)
			if err != nil {
				delete(store, req.key)
			} else {
				store[req.key] = pngEntry{data: data, expires: now.Add(c.ttl)}
			}
			for k, e := range store {
				if !now.Before(e.expires) {
					delete(store, k)
				}
			}
			req.reply <- pngResponse{data: data, err: err}
		}
	}
}
