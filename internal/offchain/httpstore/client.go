// Package httpstore reaches an off-ledger document store over HTTP.
//
// Client implements offchain.Store by issuing PUT and GET requests to the
// document URL {locator}/{hash}. NewHandler serves any offchain.Store
// under the same URL layout, so a Client pointed at a Handler behaves like
// the store behind it.
package httpstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/roach88/powermarket/internal/offchain"
)

// MaxDocumentSize bounds request and response bodies.
const MaxDocumentSize = 1 << 20

// Client implements offchain.Store against an HTTP document API.
type Client struct {
	http *http.Client
}

var _ offchain.Store = (*Client)(nil)

// NewClient wraps hc; nil uses http.DefaultClient.
func NewClient(hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{http: hc}
}

// Put uploads doc to h.URL().
func (c *Client) Put(ctx context.Context, h offchain.Handle, doc []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, h.URL(), bytes.NewReader(doc))
	if err != nil {
		return fmt.Errorf("put %s: %w", h.URL(), err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("put %s: %w: %v", h.URL(), offchain.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, MaxDocumentSize))

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("put %s: %w: status %d", h.URL(), offchain.ErrUnavailable, resp.StatusCode)
	}
	return nil
}

// Get downloads the document at h.URL().
func (c *Client) Get(ctx context.Context, h offchain.Handle) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL(), nil)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", h.URL(), err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w: %v", h.URL(), offchain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("get %s: %w", h.URL(), offchain.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("get %s: %w: status %d", h.URL(), offchain.ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("get %s: %w: %v", h.URL(), offchain.ErrUnavailable, err)
	}
	if len(body) > MaxDocumentSize {
		return nil, fmt.Errorf("get %s: %w: document exceeds %d bytes", h.URL(), offchain.ErrUnavailable, MaxDocumentSize)
	}
	return body, nil
}
