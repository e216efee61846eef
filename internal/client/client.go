// Package client talks to a pyre server from Go: account endpoints over
// HTTP and the chat channel over WebSocket.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/pyrechat/pyre-server/internal/proto"
)

// Client holds the server base URL, e.g. http://localhost:8000.
type Client struct {
	BaseURL string
	Channel string
	HTTP    *http.Client
}

// New returns a client for baseURL using the default channel "pyre".
func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Channel: "pyre",
		HTTP:    http.DefaultClient,
	}
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, username, password string) error {
	resp, err := c.postForm(ctx, "/register", url.Values{"username": {username}, "password": {password}})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError("register", resp)
	}
	return nil
}

// Token exchanges credentials for an access token.
func (c *Client) Token(ctx context.Context, username, password string) (string, error) {
	resp, err := c.postForm(ctx, "/token", url.Values{"username": {username}, "password": {password}})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError("token", resp)
	}

	var body proto.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	return body.AccessToken, nil
}

// Dial opens the chat channel with token.
func (c *Client) Dial(ctx context.Context, token string) (*Conn, error) {
	wsURL, err := c.channelURL(token)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPClient: c.HTTP})
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	return &Conn{ws: conn}, nil
}

func (c *Client) channelURL(token string) (string, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + c.Channel
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String(), nil
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", path, err)
	}
	return resp, nil
}

func statusError(op string, resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body.Error != "" {
		return fmt.Errorf("%s: %s (%d)", op, body.Error, resp.StatusCode)
	}
	return fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode)
}

// Conn is an open chat connection.
type Conn struct {
	ws *websocket.Conn
}

// Send writes one chat message as a text frame.
func (c *Conn) Send(ctx context.Context, text string) error {
	return c.ws.Write(ctx, websocket.MessageText, []byte(text))
}

// Next blocks for the next server event.
func (c *Conn) Next(ctx context.Context) (proto.Event, error) {
	var ev proto.Event
	err := wsjson.Read(ctx, c.ws, &ev)
	return ev, err
}

// Close performs a normal closure.
func (c *Conn) Close() error {
	return c.ws.Close(websocket.StatusNormalClosure, "bye")
}
