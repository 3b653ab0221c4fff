package broker

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	coreconfig "github.com/coco4atJP/tepora-alpha-sub000/internal/config"
)

// Broker owns a pool of llama.cpp-server subprocesses, one per model key,
// and speaks OpenAI-compatible HTTP to whichever are currently running.
type Broker struct {
	binaryPath string
	logsDir    string
	logger     *slog.Logger
	httpClient *http.Client

	mu        sync.Mutex
	processes map[string]*exec.Cmd
	ports     map[string]int
}

// New constructs a broker bound to a llama-server binary and a directory
// for per-process stderr logs. binaryPath may be empty; chat/embed calls
// then fail with Unavailable until ResolveBinary succeeds.
func New(binaryPath, logsDir string, logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	_ = os.MkdirAll(logsDir, 0o755)
	return &Broker{
		binaryPath: binaryPath,
		logsDir:    logsDir,
		logger:     logger,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		processes:  make(map[string]*exec.Cmd),
		ports:      make(map[string]int),
	}
}

// ResolveBinary searches, in order, the TEPORA_LLAMA_SERVER / LLAMA_SERVER_PATH
// / LLAMA_SERVER environment variables and then a set of candidate
// directories for a llama-server executable, and adopts the first match.
func (b *Broker) ResolveBinary(candidateDirs ...string) (string, bool) {
	exeName := "llama-server"

	for _, envKey := range []string{"TEPORA_LLAMA_SERVER", "LLAMA_SERVER_PATH", "LLAMA_SERVER"} {
		if v := os.Getenv(envKey); v != "" {
			if _, err := os.Stat(v); err == nil {
				b.mu.Lock()
				b.binaryPath = v
				b.mu.Unlock()
				return v, true
			}
		}
	}

	for _, dir := range candidateDirs {
		if found, ok := findServerExecutable(dir, exeName); ok {
			b.mu.Lock()
			b.binaryPath = found
			b.mu.Unlock()
			return found, true
		}
	}
	return "", false
}

func findServerExecutable(root, exeName string) (string, bool) {
	if _, err := os.Stat(root); err != nil {
		return "", false
	}
	var found string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || found != "" {
			return nil
		}
		if !d.IsDir() && d.Name() == exeName {
			found = path
		}
		return nil
	})
	return found, found != ""
}

// ensureRunning spawns (or reuses) the llama.cpp-server process backing
// cfg.ModelKey and blocks until it passes its health check, returning the
// port it listens on.
func (b *Broker) ensureRunning(ctx context.Context, cfg ModelRuntimeConfig) (int, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return 0, coreconfig.Validation("model file not found: %s", cfg.ModelPath)
	}

	b.mu.Lock()
	if port, ok := b.runningPort(cfg.ModelKey); ok {
		b.mu.Unlock()
		return port, nil
	}
	binaryPath := b.binaryPath
	b.mu.Unlock()

	if binaryPath == "" {
		return 0, coreconfig.Unavailable("llama-server binary not resolved")
	}

	port := cfg.Port
	if port <= 0 {
		freePort, err := findFreePort()
		if err != nil {
			return 0, coreconfig.Internal(err, "allocating port for model %s", cfg.ModelKey)
		}
		port = freePort
	}

	logFile, err := b.openLogFile(cfg.ModelKey)
	if err != nil {
		return 0, coreconfig.Internal(err, "creating log file for model %s", cfg.ModelKey)
	}

	args := []string{
		"-m", cfg.ModelPath,
		"--port", fmt.Sprintf("%d", port),
		"-c", fmt.Sprintf("%d", cfg.NCtx),
		"--n-gpu-layers", fmt.Sprintf("%d", cfg.NGPULayers),
	}
	if cfg.EnableEmbedding {
		args = append(args, "--embedding")
	}

	cmd := exec.CommandContext(context.Background(), binaryPath, args...)
	cmd.Stdout = nil
	cmd.Stderr = logFile
	if err := cmd.Start(); err != nil {
		logFile.Close()
		return 0, coreconfig.Internal(err, "spawning llama-server for model %s", cfg.ModelKey)
	}

	b.mu.Lock()
	b.processes[cfg.ModelKey] = cmd
	b.ports[cfg.ModelKey] = port
	b.mu.Unlock()

	if err := b.performHealthCheck(ctx, port); err != nil {
		b.terminateModel(cfg.ModelKey)
		return 0, err
	}
	return port, nil
}

// runningPort reports the port of an already-healthy process for modelKey,
// reaping the bookkeeping entry if the process has since exited. Caller
// must hold b.mu.
func (b *Broker) runningPort(modelKey string) (int, bool) {
	cmd, ok := b.processes[modelKey]
	if !ok {
		return 0, false
	}
	if cmd.ProcessState != nil && cmd.ProcessState.Exited() {
		delete(b.processes, modelKey)
		delete(b.ports, modelKey)
		return 0, false
	}
	port, ok := b.ports[modelKey]
	return port, ok
}

func (b *Broker) terminateModel(modelKey string) {
	b.mu.Lock()
	cmd, ok := b.processes[modelKey]
	delete(b.processes, modelKey)
	delete(b.ports, modelKey)
	b.mu.Unlock()

	if ok && cmd.Process != nil {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
	}
}

// Shutdown terminates every managed subprocess.
func (b *Broker) Shutdown() {
	b.mu.Lock()
	keys := make([]string, 0, len(b.processes))
	for k := range b.processes {
		keys = append(keys, k)
	}
	b.mu.Unlock()

	for _, k := range keys {
		b.terminateModel(k)
	}
}

func (b *Broker) performHealthCheck(ctx context.Context, port int) error {
	url := fmt.Sprintf("http://127.0.0.1:%d/health", port)
	retries := healthTimeoutSecs / healthRetrySecs
	if retries < 1 {
		retries = 1
	}

	for i := 0; i < retries; i++ {
		if ok := b.probeHealth(ctx, url); ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return coreconfig.Internal(ctx.Err(), "health check canceled")
		case <-time.After(healthRetrySecs * time.Second):
		}
	}
	return coreconfig.Unavailable("llama-server failed health check on %s", url)
}

func (b *Broker) probeHealth(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false
	}
	var payload struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(resp.Body, &payload); err != nil {
		return false
	}
	return payload.Status == "ok"
}

func (b *Broker) openLogFile(modelKey string) (*os.File, error) {
	name := fmt.Sprintf("llama_server_%s_%d.log", sanitizeModelKey(modelKey), time.Now().Unix())
	return os.Create(filepath.Join(b.logsDir, name))
}

func findFreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
