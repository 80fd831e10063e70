// Package runpod runs frequency servers on RunPod GPU pods through the
// RunPod REST API.
package runpod

import (
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

	"github.com/rs/zerolog"

	"frequency/internal/provider"
)

const (
	DefaultBaseURL = "https://rest.runpod.io/v1"
	DefaultImage   = "frequency/frequency:latest"
	DefaultGPUType = "NVIDIA GeForce RTX 4090"
	defaultDiskGB  = 50
	servePort      = 8000
	requestTimeout = 30 * time.Second
)

var (
	_ provider.InferenceProvider = (*Client)(nil)
	_ provider.TuningProvider    = (*Client)(nil)
)

// Config configures a Client. APIKey is required.
type Config struct {
	APIKey  string
	BaseURL string
	// ProxyDomain builds pod endpoints as https://<id>-<port>.<ProxyDomain>.
	ProxyDomain string
	HTTPClient  *http.Client
	Logger      *zerolog.Logger
}

// Client drives pods addressed by name. Names are resolved to pod ids
// through the pod list on every call.
type Client struct {
	apiKey  string
	baseURL string
	proxy   string
	http    *http.Client
	log     zerolog.Logger
}

// New returns a Client, failing when no API key is configured.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("runpod: must set RUNPOD_API_KEY")
	}
	c := &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		proxy:   cfg.ProxyDomain,
		http:    cfg.HTTPClient,
		log:     zerolog.Nop(),
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.proxy == "" {
		c.proxy = "proxy.runpod.net"
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: requestTimeout}
	}
	if cfg.Logger != nil {
		c.log = cfg.Logger.With().Str("provider", "runpod").Logger()
	}
	return c, nil
}

// pod is the subset of the RunPod pod object the client reads.
type pod struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	DesiredStatus string            `json:"desiredStatus"`
	Image         string            `json:"image"`
	PublicIP      string            `json:"publicIp"`
	PortMappings  map[string]int    `json:"portMappings"`
	Env           map[string]string `json:"env"`
}

type createPodRequest struct {
	Name              string            `json:"name"`
	ImageName         string            `json:"imageName"`
	GPUTypeIDs        []string          `json:"gpuTypeIds"`
	GPUCount          int               `json:"gpuCount"`
	ContainerDiskInGb int               `json:"containerDiskInGb"`
	MinVCPUPerGPU     int               `json:"minVCPUPerGPU,omitempty"`
	MinRAMPerGPU      int               `json:"minRAMPerGPU,omitempty"`
	Ports             []string          `json:"ports"`
	Env               map[string]string `json:"env,omitempty"`
}

// APIError is a non-2xx response from the RunPod API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("runpod: status %d: %s", e.Status, e.Body)
}

// Run creates a pod serving frequency on port 8000.
func (c *Client) Run(ctx context.Context, spec provider.RunSpec) (provider.Endpoint, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return provider.Endpoint{}, errors.New("runpod: name is required")
	}
	req := createPodRequest{
		Name:              spec.Name,
		ImageName:         orString(spec.Image, DefaultImage),
		GPUTypeIDs:        []string{orString(spec.GPUType, DefaultGPUType)},
		GPUCount:          orInt(spec.GPUCount, 1),
		ContainerDiskInGb: orInt(spec.DiskGB, defaultDiskGB),
		MinVCPUPerGPU:     spec.CPUCount,
		MinRAMPerGPU:      spec.GPUMemory,
		Ports:             []string{fmt.Sprintf("%d/http", servePort)},
		Env:               map[string]string{},
	}
	for k, v := range spec.Env {
		req.Env[k] = v
	}
	if spec.HFRepo != "" {
		req.Env["FREQUENCY_PRELOAD_REPO"] = spec.HFRepo
	}
	var p pod
	if err := c.do(ctx, http.MethodPost, "/pods", req, &p); err != nil {
		return provider.Endpoint{}, err
	}
	c.log.Info().Str("name", p.Name).Str("id", p.ID).Msg("pod created")
	return provider.Endpoint{URL: c.endpoint(p.ID)}, nil
}

// Status reports the pod named name.
func (c *Client) Status(ctx context.Context, name string) (provider.Status, error) {
	id, err := c.podID(ctx, name)
	if err != nil {
		return provider.Status{}, err
	}
	var raw map[string]any
	if err := c.do(ctx, http.MethodGet, "/pods/"+url.PathEscape(id), nil, &raw); err != nil {
		return provider.Status{}, err
	}
	st := provider.Status{Name: name, ID: id, Endpoint: c.endpoint(id), Raw: raw}
	if s, ok := raw["desiredStatus"].(string); ok {
		st.State = s
	}
	return st, nil
}

// Running lists the names of every pod on the account.
func (c *Client) Running(ctx context.Context) ([]string, error) {
	pods, err := c.list(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(pods))
	for _, p := range pods {
		names = append(names, p.Name)
	}
	return names, nil
}

// Stop stops the pod named name. The pod and its disk are kept.
func (c *Client) Stop(ctx context.Context, name string) error {
	id, err := c.podID(ctx, name)
	if err != nil {
		return err
	}
	if err := c.do(ctx, http.MethodPost, "/pods/"+url.PathEscape(id)+"/stop", nil, nil); err != nil {
		return err
	}
	c.log.Info().Str("name", name).Str("id", id).Msg("pod stopped")
	return nil
}

// Tune is not offered on RunPod.
func (c *Client) Tune(context.Context, string) (provider.TuningResult, error) {
	return provider.TuningResult{}, provider.ErrUnsupported
}

func (c *Client) list(ctx context.Context) ([]pod, error) {
	var pods []pod
	if err := c.do(ctx, http.MethodGet, "/pods", nil, &pods); err != nil {
		return nil, err
	}
	return pods, nil
}

func (c *Client) podID(ctx context.Context, name string) (string, error) {
	pods, err := c.list(ctx)
	if err != nil {
		return "", err
	}
	for _, p := range pods {
		if p.Name == name {
			return p.ID, nil
		}
	}
	return "", fmt.Errorf("runpod: pod %q: %w", name, provider.ErrNotFound)
}

func (c *Client) endpoint(id string) string {
	if id == "" {
		return ""
	}
	return fmt.Sprintf("https://%s-%d.%s", id, servePort, c.proxy)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("runpod: marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("runpod: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Dur("dur", time.Since(start)).Msg("runpod request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("runpod: decode response: %w", err)
	}
	return nil
}

func orString(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func orInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
