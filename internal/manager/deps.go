package manager

import (
	"context"

	"frequency/pkg/types"
)

// Store persists model and adapter metadata. Lookups of missing records
// return an error wrapping store.ErrNotFound.
type Store interface {
	SaveModel(ctx context.Context, m types.Model) error
	SetModelAdapters(ctx context.Context, model string, adapters []string) error
	FindModel(ctx context.Context, name string) (types.Model, error)
	ListModels(ctx context.Context) ([]types.Model, error)
	DeleteModel(ctx context.Context, name string) error

	SaveAdapter(ctx context.Context, a types.Adapter) error
	FindAdapter(ctx context.Context, name string) (types.Adapter, error)
	ListAdapters(ctx context.Context) ([]types.Adapter, error)
	DeleteAdapter(ctx context.Context, name string) error
}

// Resolver turns a repo identifier into a local weights path.
type Resolver interface {
	Resolve(ctx context.Context, repo string) (string, error)
}

// Fetcher copies remote objects under uri into the local path dest.
type Fetcher interface {
	Fetch(ctx context.Context, uri, dest string) error
}
