// Package provider defines the backends that host a frequency server:
// rented GPU pods and local child processes.
package provider

import (
	"context"
	"errors"
)

// ErrUnsupported is returned when a provider does not offer an operation.
var ErrUnsupported = errors.New("operation not supported by provider")

// ErrNotFound is returned when no instance has the requested name.
var ErrNotFound = errors.New("instance not found")

// RunSpec describes one instance to start. Providers ignore fields they have
// no use for.
type RunSpec struct {
	Name      string
	Image     string
	GPUType   string
	GPUCount  int
	GPUMemory int // GiB
	CPUCount  int
	DiskGB    int
	HFRepo    string
	Env       map[string]string
}

// Endpoint is where a started instance serves the frequency API.
type Endpoint struct {
	URL string `json:"url"`
}

// Status is a provider-neutral view of one instance.
type Status struct {
	Name     string         `json:"name"`
	ID       string         `json:"id,omitempty"`
	State    string         `json:"state"`
	Endpoint string         `json:"endpoint,omitempty"`
	Raw      map[string]any `json:"raw,omitempty"`
}

// TuningResult points at the adapter weights produced by a tuning job.
type TuningResult struct {
	URI string `json:"uri"`
}

// InferenceProvider starts, inspects and stops server instances.
type InferenceProvider interface {
	Run(ctx context.Context, spec RunSpec) (Endpoint, error)
	Status(ctx context.Context, name string) (Status, error)
	Running(ctx context.Context) ([]string, error)
	Stop(ctx context.Context, name string) error
}

// TuningProvider produces adapters from a base repo.
type TuningProvider interface {
	Tune(ctx context.Context, repo string) (TuningResult, error)
}
