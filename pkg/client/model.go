package client

import (
	"context"

	"frequency/pkg/types"
)

// ModelClient is a Client bound to one model name.
type ModelClient struct {
	c    *Client
	name string
}

// Name returns the bound model name.
func (m *ModelClient) Name() string { return m.name }

// Chat sends query with history and returns the reply and the extended history.
func (m *ModelClient) Chat(ctx context.Context, query string, history []types.ChatTurn, adapters ...string) (string, []types.ChatTurn, error) {
	resp, err := m.c.Chat(ctx, m.name, types.ChatRequest{Query: query, History: history, Adapters: adapters})
	if err != nil {
		return "", nil, err
	}
	return resp.Text, resp.History, nil
}

// LoadAdapter registers an adapter from repo under name and attaches it to
// the bound model.
func (m *ModelClient) LoadAdapter(ctx context.Context, repo, name string) error {
	_, err := m.c.LoadAdapter(ctx, types.Adapter{Name: name, Model: m.name, HFRepo: repo})
	return err
}
