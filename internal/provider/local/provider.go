// Package local runs frequency servers as child processes on this machine.
package local

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"frequency/internal/common/fsutil"
	"frequency/internal/provider"
)

const (
	DefaultStateDir = "~/.frequency/local"
	readyTimeout    = 30 * time.Second
	stopTimeout     = 10 * time.Second
)

var (
	_ provider.InferenceProvider = (*Provider)(nil)
	_ provider.TuningProvider    = (*Provider)(nil)
)

// CommandFunc returns the program and arguments that serve on addr.
type CommandFunc func(addr string) (path string, args []string)

// Config configures a Provider.
type Config struct {
	// StateDir holds one JSON record and one log file per instance.
	StateDir string
	// Command defaults to `<this executable> serve --addr <addr>`.
	Command CommandFunc
	// ReadyTimeout bounds how long Run waits for /healthz.
	ReadyTimeout time.Duration
	Logger       *zerolog.Logger
}

// Provider spawns servers on free loopback ports and tracks them through
// state files, so instances outlive the process that started them.
type Provider struct {
	dir     string
	command CommandFunc
	ready   time.Duration
	log     zerolog.Logger
}

// New returns a Provider rooted at cfg.StateDir.
func New(cfg Config) (*Provider, error) {
	dir, err := fsutil.ExpandHome(orDefault(cfg.StateDir, DefaultStateDir))
	if err != nil {
		return nil, err
	}
	p := &Provider{
		dir:     dir,
		command: cfg.Command,
		ready:   cfg.ReadyTimeout,
		log:     zerolog.Nop(),
	}
	if p.command == nil {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("local: locate executable: %w", err)
		}
		p.command = func(addr string) (string, []string) {
			return exe, []string{"serve", "--addr", addr}
		}
	}
	if p.ready <= 0 {
		p.ready = readyTimeout
	}
	if cfg.Logger != nil {
		p.log = cfg.Logger.With().Str("provider", "local").Logger()
	}
	return p, nil
}

// Run starts a server named spec.Name and waits until it is healthy.
func (p *Provider) Run(ctx context.Context, spec provider.RunSpec) (provider.Endpoint, error) {
	if !validName(spec.Name) {
		return provider.Endpoint{}, fmt.Errorf("local: invalid name %q", spec.Name)
	}
	if in, err := p.load(spec.Name); err == nil && alive(in.PID) {
		return provider.Endpoint{}, fmt.Errorf("local: %q already running (pid %d)", spec.Name, in.PID)
	}
	port, err := chooseFreePort()
	if err != nil {
		return provider.Endpoint{}, fmt.Errorf("local: choose port: %w", err)
	}
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return provider.Endpoint{}, err
	}
	logPath := filepath.Join(p.dir, spec.Name+".log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return provider.Endpoint{}, err
	}
	defer logFile.Close()

	path, args := p.command(addr)
	cmd := exec.Command(path, args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Env = os.Environ()
	for k, v := range spec.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	if spec.HFRepo != "" {
		cmd.Env = append(cmd.Env, "FREQUENCY_PRELOAD_REPO="+spec.HFRepo)
	}
	if err := cmd.Start(); err != nil {
		return provider.Endpoint{}, fmt.Errorf("local: start %s: %w", path, err)
	}
	// Reap the child so a stopped instance does not linger as a zombie.
	exited := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(exited)
	}()

	url := "http://" + addr
	wctx, cancel := context.WithTimeout(ctx, p.ready)
	defer cancel()
	if err := waitHTTP(wctx, url+"/healthz", http.StatusOK, exited); err != nil {
		_ = cmd.Process.Kill()
		return provider.Endpoint{}, fmt.Errorf("local: %s: %w (see %s)", spec.Name, err, logPath)
	}
	in := instance{Name: spec.Name, PID: cmd.Process.Pid, Port: port, URL: url, LogFile: logPath, StartedAt: time.Now().UTC()}
	if err := p.save(in); err != nil {
		_ = cmd.Process.Kill()
		return provider.Endpoint{}, fmt.Errorf("local: save state: %w", err)
	}
	p.log.Info().Str("name", spec.Name).Int("pid", in.PID).Str("url", url).Msg("instance started")
	return provider.Endpoint{URL: url}, nil
}

// Status reports whether the named instance is still alive.
func (p *Provider) Status(_ context.Context, name string) (provider.Status, error) {
	in, err := p.load(name)
	if err != nil {
		return provider.Status{}, err
	}
	st := provider.Status{
		Name:     name,
		ID:       fmt.Sprint(in.PID),
		State:    "exited",
		Endpoint: in.URL,
		Raw: map[string]any{
			"pid":        in.PID,
			"port":       in.Port,
			"log_file":   in.LogFile,
			"started_at": in.StartedAt.Format(time.RFC3339),
		},
	}
	if alive(in.PID) {
		st.State = "running"
	}
	return st, nil
}

// Running lists instances whose process is alive.
func (p *Provider) Running(context.Context) ([]string, error) {
	names, err := p.names()
	if err != nil {
		return nil, err
	}
	out := []string{}
	for _, n := range names {
		in, err := p.load(n)
		if err != nil {
			p.log.Warn().Err(err).Str("name", n).Msg("skipping state file")
			continue
		}
		if alive(in.PID) {
			out = append(out, n)
		}
	}
	return out, nil
}

// Stop sends SIGTERM, waits for the process to exit and drops its state.
// It escalates to SIGKILL when the process outlives the stop timeout.
func (p *Provider) Stop(ctx context.Context, name string) error {
	in, err := p.load(name)
	if err != nil {
		return err
	}
	if alive(in.PID) {
		proc, err := os.FindProcess(in.PID)
		if err != nil {
			return err
		}
		if err := proc.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("local: signal %d: %w", in.PID, err)
		}
		if !waitExit(ctx, in.PID, stopTimeout) {
			p.log.Warn().Str("name", name).Int("pid", in.PID).Msg("instance ignored SIGTERM, killing")
			_ = proc.Kill()
			waitExit(ctx, in.PID, stopTimeout)
		}
	}
	p.log.Info().Str("name", name).Int("pid", in.PID).Msg("instance stopped")
	return p.remove(name)
}

// Tune is not offered locally.
func (p *Provider) Tune(context.Context, string) (provider.TuningResult, error) {
	return provider.TuningResult{}, provider.ErrUnsupported
}

// alive reports whether pid names a running process (signal 0 probe).
func alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

func waitExit(ctx context.Context, pid int, timeout time.Duration) bool {
	deadline := time.After(timeout)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for alive(pid) {
		select {
		case <-tick.C:
		case <-deadline:
			return false
		case <-ctx.Done():
			return false
		}
	}
	return true
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
