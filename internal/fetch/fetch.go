// Package fetch downloads the remote shape image and font referenced by a
// render request, with per-resource size caps.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrTooLarge is returned when a remote resource exceeds its configured
// size limit.
var ErrTooLarge = errors.New("fetch: resource too large")

// ErrUpstream is returned when the remote server answers with a non-2xx
// status or cannot be reached.
var ErrUpstream = errors.New("fetch: upstream error")

// Client downloads render inputs.
type Client struct {
	hc       *http.Client
	maxImage int64
	maxFont  int64
	log      *zap.Logger
}

// NewClient returns a Client with the given timeout and size limits.
func NewClient(timeout time.Duration, maxImage, maxFont int64, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		hc:       &http.Client{Timeout: timeout},
		maxImage: maxImage,
		maxFont:  maxFont,
		log:      log,
	}
}

// Resources fetches the shape image and, when fontURL is non-empty, the
// font file, concurrently. A fetch failure on either cancels the other.
func (c *Client) Resources(ctx context.Context, imageURL, fontURL string) (image, fontData []byte, err error) {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		image, err = c.get(ctx, imageURL, c.maxImage)
		return err
	})
	if fontURL != "" {
		g.Go(func() error {
			var err error
			fontData, err = c.get(ctx, fontURL, c.maxFont)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return image, fontData, nil
}

// Font fetches a single font file under the font size limit.
func (c *Client) Font(ctx context.Context, fontURL string) ([]byte, error) {
	return c.get(ctx, fontURL, c.maxFont)
}

func (c *Client) get(ctx context.Context, rawURL string, limit int64) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("fetch: invalid url %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: build request: %w", err)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %d", ErrUpstream, u.Host, resp.StatusCode)
	}
	if resp.ContentLength > limit {
		return nil, fmt.Errorf("%w: %d bytes declared, limit %d", ErrTooLarge, resp.ContentLength, limit)
	}

	// Read one byte past the limit to distinguish "exactly at the limit"
	// from "over it" when Content-Length is absent.
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrTooLarge, limit)
	}

	c.log.Debug("fetched resource",
		zap.String("host", u.Host),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", time.Since(start)))
	return data, nil
}
