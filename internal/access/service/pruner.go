package service

import (
	"context"
	"log"
	"time"
)

// Prunable is any store with time-based retention: the nonce mirror (whose
// entries are dead once past the maximum token lifetime) and the pi
// heartbeat table both qualify.
type Prunable interface {
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Pruner periodically deletes records older than a retention period from
// one store. It runs as a background goroutine and is safe to stop via its
// context or the Stop method.
//
// A retention of 0 disables pruning entirely.
type Pruner struct {
	name      string
	store     Prunable
	retention time.Duration
	interval  time.Duration
	logger    *log.Logger
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewPruner creates a pruner but does not start it. name appears in log
// lines so multiple pruners stay distinguishable.
func NewPruner(name string, s Prunable, retention, interval time.Duration, logger *log.Logger) *Pruner {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Pruner{
		name:      name,
		store:     s,
		retention: retention,
		interval:  interval,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Start begins the background pruning loop. It runs an immediate prune on
// startup, then repeats on the configured interval. The loop exits when
// ctx is cancelled or Stop is called.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		p.logger.Printf("%s pruner disabled (retention=0)", p.name)
		close(p.done)
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)

	go p.loop(ctx)

	p.logger.Printf("%s pruner started (retention=%s, interval=%s)", p.name, p.retention, p.interval)
}

// Stop signals the pruner to exit and waits for it to finish.
func (p *Pruner) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	<-p.done
}

func (p *Pruner) loop(ctx context.Context) {
	defer close(p.done)

	// Run immediately on startup to clean up any backlog.
	p.prune(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-p.retention)
	deleted, err := p.store.PruneOlderThan(ctx, cutoff)
	if err != nil {
		p.logger.Printf("%s prune error: %v", p.name, err)
		return
	}
	if deleted > 0 {
		p.logger.Printf("%s prune: deleted %d rows older than %s",
			p.name, deleted, cutoff.Format(time.RFC3339))
	}
}
