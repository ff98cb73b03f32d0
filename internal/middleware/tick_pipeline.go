package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"FinTrader/internal/domain/models"
	domrepo "FinTrader/internal/domain/repository"
)

// TickProcessor is the downstream stage the pipeline feeds.
type TickProcessor interface {
	ProcessTick(ctx context.Context, t *models.Tick) error
}

// TickPipeline sits between the tick sources (Kafka consumer, HTTP ingest)
// and the position updater. It validates, filters to the configured symbols,
// throttles per symbol, and buffers when downstream errors, flushing in the
// background with backoff.
type TickPipeline struct {
	proc    TickProcessor
	metrics domrepo.Metrics
	symbols map[string]struct{} // empty means accept all
	maxRPS  int
	bufCh   chan *models.Tick
	stopCh  chan struct{}
	started bool

	mu       sync.Mutex
	lastSeen map[string]time.Time
}

type TickPipelineOption func(*TickPipeline)

// WithMaxRPS caps accepted ticks per second per symbol.
func WithMaxRPS(n int) TickPipelineOption {
	return func(p *TickPipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the retry buffer used when downstream is unavailable.
func WithBufferSize(n int) TickPipelineOption {
	return func(p *TickPipeline) {
		if n > 0 {
			p.bufCh = make(chan *models.Tick, n)
		}
	}
}

// WithSymbols restricts the pipeline to the given symbols.
func WithSymbols(symbols []string) TickPipelineOption {
	return func(p *TickPipeline) {
		p.symbols = make(map[string]struct{}, len(symbols))
		for _, s := range symbols {
			p.symbols[s] = struct{}{}
		}
	}
}

func NewTickPipeline(proc TickProcessor, metrics domrepo.Metrics, opts ...TickPipelineOption) *TickPipeline {
	p := &TickPipeline{
		proc:     proc,
		metrics:  metrics,
		maxRPS:   20,
		bufCh:    make(chan *models.Tick, 1000),
		stopCh:   make(chan struct{}),
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches background flushing of buffered ticks.
func (p *TickPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case t := <-p.bufCh:
				if t == nil {
					continue
				}
				if err := p.proc.ProcessTick(ctx, t); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					select {
					case p.bufCh <- t:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop halts background flushing.
func (p *TickPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// ProcessTick validates, filters, throttles, and forwards the tick. A
// downstream error buffers the tick for the flush loop and is returned to
// the caller.
func (p *TickPipeline) ProcessTick(ctx context.Context, t *models.Tick) error {
	start := time.Now()
	if err := validateTick(t); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if len(p.symbols) > 0 {
		if _, ok := p.symbols[t.Symbol]; !ok {
			// not a tracked symbol; drop silently
			return nil
		}
	}
	if !p.allow(t.Symbol, start) {
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	if err := p.proc.ProcessTick(ctx, t); err != nil {
		p.metrics.RecordError("pipeline_process")
		select {
		case p.bufCh <- t:
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validateTick(t *models.Tick) error {
	if t == nil {
		return fmt.Errorf("tick nil")
	}
	if t.Symbol == "" {
		return fmt.Errorf("symbol empty")
	}
	if t.Price <= 0 {
		return fmt.Errorf("non-positive price")
	}
	if t.Volume < 0 {
		return fmt.Errorf("negative volume")
	}
	return nil
}

func (p *TickPipeline) allow(symbol string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	last := p.lastSeen[symbol]
	if !last.IsZero() && now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
		return false
	}
	p.lastSeen[symbol] = now
	return true
}
