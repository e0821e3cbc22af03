package status

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agui1era/Sentinex/internal/redact"
)

// Report is one cycle result pushed to the status webhook. Every analyzed
// frame produces one, alert or not.
type Report struct {
	Source    string    `json:"source"`
	Text      string    `json:"text"`
	Score     float64   `json:"score"`
	Timestamp time.Time `json:"timestamp"`
}

// Config controls the reporter's webhook and queue sizing.
type Config struct {
	URL       string
	Timeout   time.Duration
	QueueSize int
	Workers   int
}

// Reporter posts reports to a webhook from background workers. Publishing
// never blocks: when the queue is full the report is dropped, so a slow or
// dead status endpoint cannot stall a capture loop. A nil Reporter is valid
// and discards everything.
type Reporter struct {
	url     string
	client  *http.Client
	queue   chan *Report
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

// NewReporter starts the delivery workers. Returns nil when no URL is
// configured.
func NewReporter(cfg Config) *Reporter {
	if cfg.URL == "" {
		return nil
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	r := &Reporter{
		url:    cfg.URL,
		client: &http.Client{Timeout: cfg.Timeout},
		queue:  make(chan *Report, cfg.QueueSize),
	}
	for i := 0; i < cfg.Workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}
	return r
}

// Publish enqueues the report without blocking the caller.
func (r *Reporter) Publish(rep *Report) {
	if r == nil || rep == nil {
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return
	}
	select {
	case r.queue <- rep:
	default:
		r.dropped.Add(1)
	}
}

// Dropped returns how many reports were discarded because the queue was
// full.
func (r *Reporter) Dropped() uint64 {
	if r == nil {
		return 0
	}
	return r.dropped.Load()
}

// Close stops accepting reports and waits for the queue to drain, bounded
// by ctx.
func (r *Reporter) Close(ctx context.Context) {
	if r == nil {
		return
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (r *Reporter) worker() {
	defer r.wg.Done()
	for rep := range r.queue {
		if err := r.post(rep); err != nil {
			redact.Logf("status: post report for %s: %v", rep.Source, err)
		}
	}
}

func (r *Reporter) post(rep *Report) error {
	payload, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, r.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 512))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
