// Package client is a Go client for the frequency HTTP API.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"frequency/pkg/types"
)

// Error is a non-2xx response from the server.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("frequency: %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.StatusCode == http.StatusNotFound
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

// WithToken sends token as a bearer credential on every request.
func WithToken(token string) Option { return func(c *Client) { c.token = token } }

// Client talks to one frequency server.
type Client struct {
	base  string
	token string
	http  *http.Client
}

// New returns a Client for the server at addr, e.g. http://localhost:8000.
func New(addr string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(addr, "/"),
		// Chats can run long; callers bound them with contexts.
		http: &http.Client{Timeout: 0, Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: 10 * time.Minute,
			IdleConnTimeout:       90 * time.Second,
		}},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Model returns a client bound to one model name.
func (c *Client) Model(name string) *ModelClient { return &ModelClient{c: c, name: name} }

func (c *Client) Health(ctx context.Context) (types.HealthResponse, error) {
	var out types.HealthResponse
	err := c.do(ctx, http.MethodGet, "/v1/health", nil, &out)
	return out, err
}

func (c *Client) Info(ctx context.Context) (types.InfoResponse, error) {
	var out types.InfoResponse
	err := c.do(ctx, http.MethodGet, "/v1", nil, &out)
	return out, err
}

func (c *Client) Status(ctx context.Context) (types.StatusResponse, error) {
	var out types.StatusResponse
	err := c.do(ctx, http.MethodGet, "/v1/status", nil, &out)
	return out, err
}

// LoadModel loads (or reloads) a model and returns a client bound to it.
// An empty Type means AutoModelForCausalLM.
func (c *Client) LoadModel(ctx context.Context, req types.LoadModelRequest) (*ModelClient, error) {
	var out types.Model
	if err := c.do(ctx, http.MethodPost, "/v1/models", req, &out); err != nil {
		return nil, err
	}
	return c.Model(out.Name), nil
}

func (c *Client) GetModel(ctx context.Context, name string) (types.Model, error) {
	var out types.Model
	err := c.do(ctx, http.MethodGet, "/v1/models/"+url.PathEscape(name), nil, &out)
	return out, err
}

func (c *Client) ListModels(ctx context.Context) ([]types.Model, error) {
	var out types.ModelsResponse
	err := c.do(ctx, http.MethodGet, "/v1/models", nil, &out)
	return out.Models, err
}

func (c *Client) AvailableModels(ctx context.Context) ([]types.AvailableModel, error) {
	var out types.AvailableModelsResponse
	err := c.do(ctx, http.MethodGet, "/v1/models/available", nil, &out)
	return out.Models, err
}

func (c *Client) DeleteModel(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/v1/models/"+url.PathEscape(name), nil, nil)
}

func (c *Client) LoadAdapter(ctx context.Context, a types.Adapter) (types.Adapter, error) {
	var out types.Adapter
	err := c.do(ctx, http.MethodPost, "/v1/adapters", a, &out)
	return out, err
}

func (c *Client) GetAdapter(ctx context.Context, name string) (types.Adapter, error) {
	var out types.Adapter
	err := c.do(ctx, http.MethodGet, "/v1/adapters/"+url.PathEscape(name), nil, &out)
	return out, err
}

func (c *Client) ListAdapters(ctx context.Context) ([]types.Adapter, error) {
	var out types.AdaptersResponse
	err := c.do(ctx, http.MethodGet, "/v1/adapters", nil, &out)
	return out.Adapters, err
}

func (c *Client) DeleteAdapter(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/v1/adapters/"+url.PathEscape(name), nil, nil)
}

// DetachAdapter unloads adapter from the resident model without deleting its record.
func (c *Client) DetachAdapter(ctx context.Context, model, adapter string) error {
	p := "/v1/models/" + url.PathEscape(model) + "/adapters/" + url.PathEscape(adapter)
	return c.do(ctx, http.MethodDelete, p, nil, nil)
}

// Chat runs one non-streaming turn against model.
func (c *Client) Chat(ctx context.Context, model string, req types.ChatRequest) (types.ChatResponse, error) {
	req.Stream = false
	var out types.ChatResponse
	err := c.do(ctx, http.MethodPost, chatPath(model), req, &out)
	return out, err
}

// ChatStream runs one streaming turn, calling onToken for every piece. It
// returns the final response assembled from the done line.
func (c *Client) ChatStream(ctx context.Context, model string, req types.ChatRequest, onToken func(string) error) (types.ChatResponse, error) {
	req.Stream = true
	resp, err := c.send(ctx, http.MethodPost, chatPath(model), req)
	if err != nil {
		return types.ChatResponse{}, err
	}
	defer resp.Body.Close()

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var l types.ChatStreamLine
		if err := json.Unmarshal(line, &l); err != nil {
			return types.ChatResponse{}, fmt.Errorf("frequency: bad stream line: %w", err)
		}
		switch {
		case l.Error != "":
			return types.ChatResponse{}, &Error{StatusCode: l.Code, Message: l.Error}
		case l.Done:
			out := types.ChatResponse{ID: l.ID, Text: l.Text, History: l.History, Adapter: l.Adapter, FinishReason: l.FinishReason}
			if l.Usage != nil {
				out.Usage = *l.Usage
			}
			return out, nil
		case onToken != nil:
			if err := onToken(l.Token); err != nil {
				return types.ChatResponse{}, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return types.ChatResponse{}, err
	}
	return types.ChatResponse{}, io.ErrUnexpectedEOF
}

func chatPath(model string) string { return "/v1/models/" + url.PathEscape(model) + "/chat" }

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	resp, err := c.send(ctx, method, path, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("frequency: decode %s %s: %w", method, path, err)
	}
	return nil
}

// send performs the request and converts non-2xx responses into *Error.
func (c *Client) send(ctx context.Context, method, path string, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var e types.ErrorResponse
	if json.Unmarshal(b, &e) == nil && e.Error != "" {
		return nil, &Error{StatusCode: resp.StatusCode, Message: e.Error}
	}
	return nil, &Error{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(b))}
}
