package middleware

import (
	"context"
	"fmt"
	"sync"

	"PitWall/internal/domain/models"
	domrepo "PitWall/internal/domain/repository"
	"PitWall/internal/service/ratelimit"
)

// Proc is the minimal processor interface the pipeline needs.
type Proc interface {
	ProcessLap(ctx context.Context, lap *models.LapData) error
}

// LapPipeline sits between the timing feed and the tick processor. It
// validates records, throttles runaway feed bursts per competitor, and
// guarantees per-competitor FIFO ordering: the estimator update for lap N
// completes before lap N+1 is applied. Distinct competitors run in
// parallel on their own queues.
type LapPipeline struct {
	proc    Proc
	metrics domrepo.Metrics
	limiter *ratelimit.Limiter
	maxRPS  float64
	bufSize int

	mu      sync.Mutex
	queues  map[int]chan *models.LapData
	started bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type PipelineOption func(*LapPipeline)

// WithMaxRPS caps accepted lap records per second per competitor.
func WithMaxRPS(n float64) PipelineOption {
	return func(p *LapPipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the per-competitor queue depth.
func WithBufferSize(n int) PipelineOption {
	return func(p *LapPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// NewLapPipeline creates a pipeline in front of proc.
func NewLapPipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *LapPipeline {
	p := &LapPipeline{
		proc:    proc,
		metrics: metrics,
		limiter: ratelimit.New(),
		maxRPS:  5, // a competitor completes at most one lap per tick
		bufSize: 64,
		queues:  make(map[int]chan *models.LapData),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start arms the pipeline. Queues and their drain goroutines are created
// lazily per competitor.
func (p *LapPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true
	p.ctx, p.cancel = context.WithCancel(ctx)
}

// Stop drains and shuts down all competitor queues.
func (p *LapPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	cancel := p.cancel
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
}

// Process validates and enqueues one lap on its competitor's FIFO queue.
// A full queue drops the record rather than blocking the feed reader.
func (p *LapPipeline) Process(ctx context.Context, lap *models.LapData) error {
	if err := validateLap(lap); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !p.limiter.AllowCompetitor(lap.CompetitorID, p.maxRPS, p.maxRPS) {
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	q, err := p.queue(lap.CompetitorID)
	if err != nil {
		return err
	}
	select {
	case q <- lap:
		return nil
	default:
		p.metrics.RecordError("pipeline_queue_full")
		return fmt.Errorf("competitor %d queue full", lap.CompetitorID)
	}
}

// queue returns the competitor's queue, spawning its drain goroutine on
// first use.
func (p *LapPipeline) queue(competitorID int) (chan *models.LapData, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return nil, fmt.Errorf("pipeline not started")
	}
	q, ok := p.queues[competitorID]
	if !ok {
		q = make(chan *models.LapData, p.bufSize)
		p.queues[competitorID] = q
		p.wg.Add(1)
		go p.drain(q)
	}
	return q, nil
}

// drain applies one competitor's laps strictly in order.
func (p *LapPipeline) drain(q chan *models.LapData) {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case lap := <-q:
			if lap == nil {
				continue
			}
			if err := p.proc.ProcessLap(p.ctx, lap); err != nil {
				p.metrics.RecordError("pipeline_process")
			}
		}
	}
}

func validateLap(lap *models.LapData) error {
	if lap == nil {
		return fmt.Errorf("lap nil")
	}
	if lap.CompetitorID <= 0 {
		return fmt.Errorf("competitor id invalid")
	}
	if lap.LapNumber <= 0 {
		return fmt.Errorf("lap number invalid")
	}
	if lap.LapTime <= 0 {
		return fmt.Errorf("non-positive lap time")
	}
	return nil
}
