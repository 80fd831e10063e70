package e2e

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"frequency/pkg/client"
	"frequency/pkg/types"
)

func zerologNop() zerolog.Logger { return zerolog.Nop() }

func writeAdapter(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte("lora"), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestE2E_ModelAdapterChatLifecycle(t *testing.T) {
	dir := createTempModelsDir(t, "alpha.gguf")
	s := newStack(t, dir, filepath.Join(t.TempDir(), "frequency.db"))
	ctx := context.Background()
	c := s.client

	if h, err := c.Health(ctx); err != nil || h.Status != "ok" {
		t.Fatalf("health: %+v %v", h, err)
	}
	avail, err := c.AvailableModels(ctx)
	if err != nil || len(avail) != 1 || avail[0].ID != "alpha.gguf" {
		t.Fatalf("available: %+v %v", avail, err)
	}

	m, err := c.LoadModel(ctx, types.LoadModelRequest{Name: "alpha", HFRepo: "alpha"})
	if err != nil {
		t.Fatalf("load model: %v", err)
	}
	if got := s.runtime.loads[0].Path; got != filepath.Join(dir, "alpha.gguf") {
		t.Fatalf("resolved path %q", got)
	}

	text, hist, err := m.Chat(ctx, "hello", nil)
	if err != nil || text != "re base" || len(hist) != 1 {
		t.Fatalf("base chat: %q %+v %v", text, hist, err)
	}

	if err := m.LoadAdapter(ctx, writeAdapter(t, "lora.bin"), "lora"); err != nil {
		t.Fatalf("load adapter: %v", err)
	}
	text, hist, err = m.Chat(ctx, "again", hist, "lora")
	if err != nil || text != "re lora" || len(hist) != 2 {
		t.Fatalf("adapter chat: %q %+v %v", text, hist, err)
	}

	var toks []string
	res, err := c.ChatStream(ctx, "alpha", types.ChatRequest{Query: "stream"}, func(s string) error {
		toks = append(toks, s)
		return nil
	})
	if err != nil || res.Text != "re base" || strings.Join(toks, "") != "re base" || !strings.HasPrefix(res.ID, "chatcmpl-") {
		t.Fatalf("stream: %+v %v %v", res, toks, err)
	}

	rec, err := c.GetModel(ctx, "alpha")
	if err != nil || len(rec.Adapters) != 1 || rec.Adapters[0] != "lora" {
		t.Fatalf("model record: %+v %v", rec, err)
	}
	st, err := c.Status(ctx)
	if err != nil || len(st.Models) != 1 || st.Models[0].ActiveAdapter != "" {
		t.Fatalf("status: %+v %v", st, err)
	}

	if err := c.DetachAdapter(ctx, "alpha", "lora"); err != nil {
		t.Fatalf("detach: %v", err)
	}
	if _, _, err := m.Chat(ctx, "x", nil, "lora"); !client.IsNotFound(err) {
		t.Fatalf("chat with detached adapter: %v", err)
	}
	if _, err := c.GetAdapter(ctx, "lora"); err != nil {
		t.Fatalf("adapter record should survive detach: %v", err)
	}

	if err := c.DeleteModel(ctx, "alpha"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.GetModel(ctx, "alpha"); !client.IsNotFound(err) {
		t.Fatalf("get after delete: %v", err)
	}
	var ce *client.Error
	if _, _, err := m.Chat(ctx, "x", nil); err == nil || !asClientError(err, &ce) || ce.StatusCode != 409 {
		t.Fatalf("chat after delete: %v", err)
	}
}

func TestE2E_RestoreAfterRestart(t *testing.T) {
	dir := createTempModelsDir(t, "alpha.gguf", "beta.gguf")
	db := filepath.Join(t.TempDir(), "frequency.db")
	ctx := context.Background()

	first := newStack(t, dir, db)
	if _, err := first.client.LoadModel(ctx, types.LoadModelRequest{Name: "alpha", HFRepo: "alpha"}); err != nil {
		t.Fatal(err)
	}
	if _, err := first.client.LoadModel(ctx, types.LoadModelRequest{Name: "beta", HFRepo: "beta.gguf"}); err != nil {
		t.Fatal(err)
	}
	if err := first.client.Model("alpha").LoadAdapter(ctx, writeAdapter(t, "a.bin"), "a"); err != nil {
		t.Fatal(err)
	}
	first.close()

	second := newStack(t, dir, db)
	if second.mgr.Ready() {
		t.Fatal("manager ready before restore")
	}
	if err := second.mgr.Restore(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}
	st, err := second.client.Status(ctx)
	if err != nil || st.State != "ready" || len(st.Models) != 2 {
		t.Fatalf("status after restore: %+v %v", st, err)
	}
	if st.Models[0].Name != "alpha" || len(st.Models[0].Adapters) != 1 || st.Models[0].Adapters[0] != "a" {
		t.Fatalf("alpha not restored with its adapter: %+v", st.Models[0])
	}
	text, _, err := second.client.Model("alpha").Chat(ctx, "hi", nil, "a")
	if err != nil || text != "re a" {
		t.Fatalf("chat after restore: %q %v", text, err)
	}
}

func asClientError(err error, target **client.Error) bool {
	e, ok := err.(*client.Error)
	if ok {
		*target = e
	}
	return ok
}
