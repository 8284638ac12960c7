package edge

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/chidhvilasa/access-control-backend/internal/access/service"
)

// Reporter uploads verification outcomes to the backend in batches. It is
// strictly fire-and-forget from the door's point of view: Enqueue never
// blocks, and when the buffer fills the oldest outcomes are dropped. The
// event log is an audit convenience, never a gate.
type Reporter struct {
	logger     *log.Logger
	client     *http.Client
	backendURL string
	piID       string
	interval   time.Duration

	mu      sync.Mutex
	pending []service.ReportedEvent
	max     int

	stop chan struct{}
	done chan struct{}
}

func NewReporter(logger *log.Logger, client *http.Client, backendURL, piID string, interval time.Duration, buffer int) *Reporter {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if buffer <= 0 {
		buffer = 1024
	}
	return &Reporter{
		logger:     logger,
		client:     client,
		backendURL: backendURL,
		piID:       piID,
		interval:   interval,
		max:        buffer,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Enqueue buffers one outcome. Oldest entries are dropped on overflow.
func (r *Reporter) Enqueue(ev service.ReportedEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pending) >= r.max {
		dropped := len(r.pending) - r.max + 1
		r.pending = r.pending[dropped:]
		r.logger.Printf("reporter: buffer full, dropped %d oldest outcome(s)", dropped)
	}
	r.pending = append(r.pending, ev)
}

// Pending reports the buffered outcome count.
func (r *Reporter) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func (r *Reporter) Start() {
	go r.loop()
	r.logger.Printf("reporter started interval=%s buffer=%d", r.interval, r.max)
}

func (r *Reporter) Stop() {
	close(r.stop)
	<-r.done
}

func (r *Reporter) loop() {
	defer close(r.done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.Flush(context.Background())
		case <-r.stop:
			// Final best-effort flush on shutdown.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			r.Flush(ctx)
			cancel()
			return
		}
	}
}

// Flush uploads the current buffer. On failure the batch is requeued behind
// anything enqueued meanwhile, still subject to the buffer cap.
func (r *Reporter) Flush(ctx context.Context) {
	r.mu.Lock()
	batch := r.pending
	r.pending = nil
	r.mu.Unlock()
	if len(batch) == 0 {
		return
	}

	if err := r.upload(ctx, batch); err != nil {
		r.logger.Printf("reporter: upload failed, requeueing %d outcome(s): %v", len(batch), err)
		r.mu.Lock()
		r.pending = append(batch, r.pending...)
		if len(r.pending) > r.max {
			r.pending = r.pending[len(r.pending)-r.max:]
		}
		r.mu.Unlock()
	}
}

func (r *Reporter) upload(ctx context.Context, batch []service.ReportedEvent) error {
	body, err := json.Marshal(batch)
	if err != nil {
		return err
	}
	u := r.backendURL + "/v1/pi/events?pi_id=" + url.QueryEscape(r.piID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &uploadError{status: resp.Status}
	}
	return nil
}

type uploadError struct{ status string }

func (e *uploadError) Error() string { return "backend returned " + e.status }
