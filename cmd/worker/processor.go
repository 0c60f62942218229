package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/dataforge/internal/bootstrap"
	"github.com/inferloop/dataforge/pkg/models"
)

// processor polls the landing directory and runs one pipeline per new CSV
// file, with a bounded number of concurrent runs. Files already loaded are
// additionally caught by the pipeline's fingerprint check, so a restart
// never double-loads.
type processor struct {
	runtime     *bootstrap.Runtime
	flags       *workerFlags
	concurrency int
	logger      *logrus.Logger

	sem  chan struct{}
	wg   sync.WaitGroup
	mu   sync.Mutex
	seen map[string]bool

	active    int64
	completed int64
	failed    int64
}

func newProcessor(runtime *bootstrap.Runtime, flags *workerFlags, concurrency int, logger *logrus.Logger) *processor {
	if concurrency <= 0 {
		concurrency = 4
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &processor{
		runtime:     runtime,
		flags:       flags,
		concurrency: concurrency,
		logger:      logger,
		sem:         make(chan struct{}, concurrency),
		seen:        make(map[string]bool),
	}
}

func (p *processor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.flags.pollInterval)
	defer ticker.Stop()

	p.scan(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.scan(ctx)
		}
	}
}

func (p *processor) scan(ctx context.Context) {
	entries, err := os.ReadDir(p.flags.landingDir)
	if err != nil {
		p.logger.WithError(err).WithField("dir", p.flags.landingDir).Warn("Landing directory scan failed")
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		path := filepath.Join(p.flags.landingDir, entry.Name())
		if !p.claim(path) {
			continue
		}

		p.wg.Add(1)
		go func(path string) {
			defer p.wg.Done()
			select {
			case p.sem <- struct{}{}:
				defer func() { <-p.sem }()
			case <-ctx.Done():
				return
			}
			p.process(ctx, path)
		}(path)
	}
}

// claim marks a path as picked up; a path is processed at most once per
// worker lifetime.
func (p *processor) claim(path string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seen[path] {
		return false
	}
	p.seen[path] = true
	return true
}

func (p *processor) process(ctx context.Context, path string) {
	atomic.AddInt64(&p.active, 1)
	defer atomic.AddInt64(&p.active, -1)

	table := p.flags.targetTable
	if table == "" {
		table = tableNameFor(path)
	}

	job := models.NewJob(path, p.flags.targetDataset, table)
	p.logger.WithFields(logrus.Fields{
		"job_id": job.ID,
		"source": path,
		"table":  table,
	}).Info("Picked up landing file")

	result, err := p.runtime.Conductor.Run(ctx, job)
	if err != nil {
		atomic.AddInt64(&p.failed, 1)
		p.logger.WithError(err).WithFields(logrus.Fields{
			"job_id": job.ID,
			"status": result.Status,
		}).Error("Pipeline run failed")
		return
	}
	atomic.AddInt64(&p.completed, 1)
}

// Wait blocks until all in-flight runs finish.
func (p *processor) Wait() {
	p.wg.Wait()
}

func (p *processor) Active() int64    { return atomic.LoadInt64(&p.active) }
func (p *processor) Completed() int64 { return atomic.LoadInt64(&p.completed) }
func (p *processor) Failed() int64    { return atomic.LoadInt64(&p.failed) }

// tableNameFor derives a warehouse table name from the file name.
func tableNameFor(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	base = strings.ToLower(base)
	var b strings.Builder
	for _, r := range base {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "_")
}
