// internal/isapi/client.go

// Package isapi speaks the camera HTTP control protocol used to drive
// text overlays.
package isapi

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Endpoint layout.
const (
	overlayBase   = "/ISAPI/System/Video/inputs/channels/1/overlays"
	streamingBase = "/ISAPI/Streaming/channels"
)

// Fallbacks and timings.
const (
	RequestTimeout = 3 * time.Second
	ScreenCacheTTL = 10 * time.Minute

	DefaultVideoWidth   = 1920
	DefaultVideoHeight  = 1080
	DefaultScreenWidth  = 704
	DefaultScreenHeight = 576

	maxErrorBody = 4 << 10
)

// ProtocolError is a non-2xx answer or a body the client could not read.
type ProtocolError struct {
	StatusCode int
	Body       string
}

func (e *ProtocolError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("isapi: http %d", e.StatusCode)
	}
	return fmt.Sprintf("isapi: http %d: %s", e.StatusCode, e.Body)
}

// Size is a width/height pair.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type screenEntry struct {
	size    Size
	expires time.Time
}

// Client talks to cameras with one set of basic credentials.
// It is safe for concurrent use.
type Client struct {
	http     *http.Client
	scheme   string
	username string
	password string
	now      func() time.Time

	mu      sync.Mutex
	screens map[string]screenEntry
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithClock replaces time.Now for cache expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New returns a client that authenticates every request as username.
func New(username, password string, opts ...Option) *Client {
	c := &Client{
		http:     &http.Client{Timeout: RequestTimeout},
		scheme:   "http",
		username: username,
		password: password,
		now:      time.Now,
		screens:  make(map[string]screenEntry),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// ---- overlays ----

type textOverlay struct {
	XMLName     xml.Name `xml:"TextOverlay"`
	ID          int      `xml:"id"`
	Enabled     bool     `xml:"enabled"`
	PositionX   int      `xml:"positionX"`
	PositionY   int      `xml:"positionY"`
	DisplayText string   `xml:"displayText"`
}

// SetOverlayText writes text into overlay slot overlayID at (x, y).
func (c *Client) SetOverlayText(ctx context.Context, host string, port, overlayID, x, y int, text string) error {
	return c.putOverlay(ctx, host, port, textOverlay{
		ID:          overlayID,
		Enabled:     true,
		PositionX:   x,
		PositionY:   y,
		DisplayText: text,
	})
}

// ClearOverlay disables overlay slot overlayID and blanks its text.
func (c *Client) ClearOverlay(ctx context.Context, host string, port, overlayID int) error {
	return c.putOverlay(ctx, host, port, textOverlay{ID: overlayID})
}

func (c *Client) putOverlay(ctx context.Context, host string, port int, ov textOverlay) error {
	body, err := xml.Marshal(ov)
	if err != nil {
		return fmt.Errorf("isapi: encode overlay: %w", err)
	}

	path := overlayBase + "/text/" + strconv.Itoa(ov.ID)
	_, err = c.do(ctx, http.MethodPut, host, port, path, body)
	return err
}

// ---- discovery ----

// GetVideoResolution asks the main then the first streaming channel.
// The first answer that parses wins; otherwise 1920x1080.
func (c *Client) GetVideoResolution(ctx context.Context, host string, port int) Size {
	for _, ch := range []string{"101", "1"} {
		body, err := c.do(ctx, http.MethodGet, host, port, streamingBase+"/"+ch, nil)
		if err != nil {
			continue
		}
		v, err := findInts(body, "videoResolutionWidth", "videoResolutionHeight")
		if err != nil {
			continue
		}
		return Size{Width: v[0], Height: v[1]}
	}
	return Size{Width: DefaultVideoWidth, Height: DefaultVideoHeight}
}

// GetNormalizedScreenSize returns the overlay coordinate space of a camera.
// Results, including the 704x576 fallback on failure, are cached per
// host:port for ScreenCacheTTL.
func (c *Client) GetNormalizedScreenSize(ctx context.Context, host string, port int) Size {
	key := net.JoinHostPort(host, strconv.Itoa(port))
	now := c.now()

	c.mu.Lock()
	if e, ok := c.screens[key]; ok && now.Before(e.expires) {
		c.mu.Unlock()
		return e.size
	}
	c.mu.Unlock()

	size := Size{Width: DefaultScreenWidth, Height: DefaultScreenHeight}
	if body, err := c.do(ctx, http.MethodGet, host, port, overlayBase, nil); err == nil {
		if v, err := findInts(body, "normalizedScreenWidth", "normalizedScreenHeight"); err == nil {
			size = Size{Width: v[0], Height: v[1]}
		}
	}

	c.mu.Lock()
	c.screens[key] = screenEntry{size: size, expires: now.Add(ScreenCacheTTL)}
	c.mu.Unlock()

	return size
}

// ---- transport ----

func (c *Client) do(ctx context.Context, method, host string, port int, path string, body []byte) ([]byte, error) {
	url := fmt.Sprintf("%s://%s%s", c.scheme, net.JoinHostPort(host, strconv.Itoa(port)), path)

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return nil, fmt.Errorf("isapi: build request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	if body != nil {
		req.Header.Set("Content-Type", "application/xml")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("isapi: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("isapi: read %s: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		return nil, &ProtocolError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(data))}
	}
	return data, nil
}

// findInts returns the integer text of the first element with each local
// name, at any depth.
func findInts(body []byte, names ...string) ([]int, error) {
	want := make(map[string]int, len(names))
	for i, n := range names {
		want[n] = i
	}
	out := make([]int, len(names))
	found := 0
	seen := make([]bool, len(names))

	dec := xml.NewDecoder(bytes.NewReader(body))
	for found < len(names) {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ProtocolError{StatusCode: http.StatusOK, Body: "malformed xml: " + err.Error()}
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		i, ok := want[se.Name.Local]
		if !ok || seen[i] {
			continue
		}

		var text string
		if err := dec.DecodeElement(&text, &se); err != nil {
			return nil, &ProtocolError{StatusCode: http.StatusOK, Body: "malformed xml: " + err.Error()}
		}
		v, err := strconv.Atoi(text)
		if err != nil {
			return nil, &ProtocolError{StatusCode: http.StatusOK, Body: fmt.Sprintf("%s: %q", se.Name.Local, text)}
		}
		out[i] = v
		seen[i] = true
		found++
	}

	if found < len(names) {
		return nil, &ProtocolError{StatusCode: http.StatusOK, Body: "missing fields in response"}
	}
	return out, nil
}
