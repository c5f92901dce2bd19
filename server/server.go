// Package server exposes the countdown builder over HTTP, mirroring
// what the CLI does: submit a build, poll its status, download the
// finished track and timeline, and browse saved presets.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/gin-gonic/gin"

	"github.com/dgnsrekt/cadence/countdown"
	"github.com/dgnsrekt/cadence/internal/preset"
)

// Config holds server settings, parsed from the environment.
type Config struct {
	Addr      string `env:"CADENCE_ADDR" envDefault:":8080"`
	OutputDir string `env:"CADENCE_OUTPUT_DIR" envDefault:"."`
	PresetDir string `env:"CADENCE_PRESET_DIR"`
}

// BuildFunc runs one build to completion. The server injects output
// paths derived from the request.
type BuildFunc func(ctx context.Context, cfg countdown.Config, outFile, bitrate string) (*countdown.BuildResult, error)

type jobState string

const (
	jobRunning jobState = "running"
	jobDone    jobState = "done"
	jobFailed  jobState = "failed"
)

type job struct {
	ID     string                 `json:"id"`
	State  jobState               `json:"state"`
	Error  string                 `json:"error,omitempty"`
	Result *countdown.BuildResult `json:"result,omitempty"`
}

// Server is the HTTP front-end.
type Server struct {
	cfg   Config
	build BuildFunc

	mu        sync.Mutex
	jobs      map[string]*job
	nextJobID int
	baseCtx   context.Context

	presetMu sync.RWMutex
	presets  []preset.Preset

	watcher *fsnotify.Watcher
}

// New creates a server around the given build function.
func New(cfg Config, build BuildFunc) *Server {
	s := &Server{
		cfg:   cfg,
		build: build,
		jobs:  make(map[string]*job),
	}
	s.reloadPresets()
	return s
}

// Router builds the gin handler.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	api.POST("/builds", s.handleCreateBuild)
	api.GET("/builds/:id", s.handleGetBuild)
	api.GET("/presets", s.handleListPresets)
	api.GET("/files/:name", s.handleDownload)

	return r
}

// Run starts preset watching and serves until the context is done.
// In-flight builds inherit ctx, so shutdown cancels their synthesis.
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	if s.cfg.PresetDir != "" {
		s.watchPresets(ctx)
	}

	srv := &http.Server{Addr: s.cfg.Addr, Handler: s.Router()}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Info("serving", "addr", s.cfg.Addr)

	select {
	case <-ctx.Done():
		_ = srv.Close()
		if s.watcher != nil {
			_ = s.watcher.Close()
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

type buildRequest struct {
	Config  *countdown.Config `json:"config"`
	Preset  string            `json:"preset"`
	OutFile string            `json:"outfile"`
	Bitrate string            `json:"bitrate"`
}

func (s *Server) handleCreateBuild(c *gin.Context) {
	var req buildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg, outFile, bitrate, err := s.resolveRequest(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := cfg.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	j := s.newJob()
	go s.runJob(j.ID, cfg, outFile, bitrate)
	c.JSON(http.StatusAccepted, gin.H{"id": j.ID})
}

func (s *Server) resolveRequest(req buildRequest) (countdown.Config, string, string, error) {
	var (
		cfg     countdown.Config
		outFile = req.OutFile
		bitrate = req.Bitrate
	)

	switch {
	case req.Preset != "":
		if s.cfg.PresetDir == "" {
			return cfg, "", "", errors.New("presets are not configured")
		}
		p, err := preset.Load(s.cfg.PresetDir, req.Preset)
		if err != nil {
			return cfg, "", "", err
		}
		cfg = p.Config
		if outFile == "" {
			outFile = p.OutFile
		}
		if bitrate == "" {
			bitrate = p.Bitrate
		}
	case req.Config != nil:
		cfg = *req.Config
	default:
		return cfg, "", "", errors.New("either config or preset is required")
	}

	if outFile == "" {
		outFile = "countdown_combined.mp3"
	}
	// Downloads are served out of OutputDir only; reject path escapes.
	if filepath.Base(outFile) != outFile {
		return cfg, "", "", fmt.Errorf("outfile %q must be a bare file name", outFile)
	}
	return cfg, filepath.Join(s.cfg.OutputDir, outFile), bitrate, nil
}

func (s *Server) newJob() *job {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextJobID++
	j := &job{ID: fmt.Sprintf("build-%04d", s.nextJobID), State: jobRunning}
	s.jobs[j.ID] = j
	return j
}

func (s *Server) runJob(id string, cfg countdown.Config, outFile, bitrate string) {
	result, err := s.build(s.jobContext(), cfg, outFile, bitrate)

	s.mu.Lock()
	defer s.mu.Unlock()
	j := s.jobs[id]
	if err != nil {
		j.State = jobFailed
		j.Error = err.Error()
		log.Error("build failed", "job", id, "err", err)
		return
	}
	j.State = jobDone
	j.Result = result
}

// jobContext returns the run context when the server is serving, so
// shutdown reaches running builds. Jobs submitted before Run (tests
// driving the router directly) fall back to Background.
func (s *Server) jobContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.baseCtx != nil {
		return s.baseCtx
	}
	return context.Background()
}

func (s *Server) handleGetBuild(c *gin.Context) {
	s.mu.Lock()
	j, ok := s.jobs[c.Param("id")]
	var snapshot job
	if ok {
		// runJob mutates the stored struct under the mutex; respond
		// from a copy so the render never reads a half-finished job.
		snapshot = *j
	}
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown build"})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (s *Server) handleListPresets(c *gin.Context) {
	s.presetMu.RLock()
	presets := s.presets
	s.presetMu.RUnlock()
	if presets == nil {
		presets = []preset.Preset{}
	}
	c.JSON(http.StatusOK, presets)
}

func (s *Server) handleDownload(c *gin.Context) {
	name := c.Param("name")
	if filepath.Base(name) != name {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file name"})
		return
	}
	c.FileAttachment(filepath.Join(s.cfg.OutputDir, name), name)
}

func (s *Server) reloadPresets() {
	if s.cfg.PresetDir == "" {
		return
	}
	presets, err := preset.List(s.cfg.PresetDir)
	if err != nil {
		log.Warn("unable to list presets", "dir", s.cfg.PresetDir, "err", err)
		return
	}
	s.presetMu.Lock()
	s.presets = presets
	s.presetMu.Unlock()
}

// watchPresets hot-reloads the preset listing when files change.
func (s *Server) watchPresets(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Error("unable to create preset watcher", "err", err)
		return
	}
	if err := watcher.Add(s.cfg.PresetDir); err != nil {
		log.Error("unable to watch preset dir", "dir", s.cfg.PresetDir, "err", err)
		_ = watcher.Close()
		return
	}
	s.watcher = watcher
	log.Debug("watching preset dir", "dir", s.cfg.PresetDir)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) {
					s.reloadPresets()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Debug("preset watcher error", "err", err)
			}
		}
	}()
}
