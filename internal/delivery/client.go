package delivery

import (
	"context"
	"net/http"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Endpoint paths served by the microcontroller firmware.
const (
	GesturePath = "/gesture"
	RelayPath   = "/relay"
	TogglePath  = "/toggle"
)

// gesturePayload is the body of POST /gesture.
type gesturePayload struct {
	Gesture string `json:"gesture"`
}

// Client builds microcontroller requests and hands them to a Deliverer.
type Client struct {
	baseURL   string
	deliverer *Deliverer
}

// NewClient creates a Client for the peer at baseURL, e.g. "http://192.168.4.1".
func NewClient(baseURL string, d *Deliverer) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		deliverer: d,
	}
}

// GestureRequest returns the request that reports a classified gesture.
func (c *Client) GestureRequest(label string) (Request, error) {
	body, err := json.Marshal(gesturePayload{Gesture: label})
	if err != nil {
		return Request{}, err
	}
	return Request{
		Kind:    KindGesture,
		Method:  http.MethodPost,
		URL:     c.baseURL + GesturePath,
		Body:    body,
		Payload: label,
	}, nil
}

// SendGesture delivers a gesture label.
func (c *Client) SendGesture(ctx context.Context, label string) Result {
	req, err := c.GestureRequest(label)
	if err != nil {
		return Result{Kind: KindGesture, Payload: label, Err: err}
	}
	return c.deliverer.Deliver(ctx, req)
}

// Relay pulses the relay output.
func (c *Client) Relay(ctx context.Context) Result {
	return c.deliverer.Deliver(ctx, Request{
		Kind:    KindRelay,
		Method:  http.MethodGet,
		URL:     c.baseURL + RelayPath,
		Payload: "relay",
	})
}

// Toggle flips the relay state.
func (c *Client) Toggle(ctx context.Context) Result {
	return c.deliverer.Deliver(ctx, Request{
		Kind:    KindToggle,
		Method:  http.MethodGet,
		URL:     c.baseURL + TogglePath,
		Payload: "toggle",
	})
}
