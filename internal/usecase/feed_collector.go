package usecase

import (
	"context"

	"PitWall/internal/domain/models"
	drepo "PitWall/internal/domain/repository"
	mid "PitWall/internal/middleware"
)

// FeedCollector reads the live timing stream and routes lap records into
// the pipeline and position ticks straight to the processor.
type FeedCollector struct {
	stream  drepo.TimingStream
	proc    *TickProcessor
	metrics drepo.Metrics
	pipe    *mid.LapPipeline
}

// NewFeedCollector creates a collector over the timing stream. The pipeline
// is shared with other ingest paths; its lifecycle belongs to the server,
// not the collector.
func NewFeedCollector(stream drepo.TimingStream, proc *TickProcessor, metrics drepo.Metrics, pipe *mid.LapPipeline) *FeedCollector {
	return &FeedCollector{stream: stream, proc: proc, metrics: metrics, pipe: pipe}
}

// IsConnected reports the stream connection state.
func (c *FeedCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *FeedCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	lapCh, posCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, lapCh, posCh, errCh)
	return nil
}

func (c *FeedCollector) consume(ctx context.Context, lapCh <-chan *models.LapData, posCh <-chan *models.PositionData, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				_ = c.stream.Reconnect(ctx)
			}
		case pos := <-posCh:
			if pos == nil {
				continue
			}
			c.proc.UpdatePosition(pos)
		case lap := <-lapCh:
			if lap == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, lap)
			} else {
				_ = c.proc.ProcessLap(ctx, lap)
			}
		}
	}
}

func (c *FeedCollector) Stop() error { return c.stream.Close() }

// Processor returns the underlying TickProcessor for lifecycle management.
func (c *FeedCollector) Processor() *TickProcessor { return c.proc }

// Shutdown closes the stream. The shared pipeline keeps running; other
// ingest paths may still be feeding it.
func (c *FeedCollector) Shutdown(ctx context.Context) error {
	return c.stream.Close()
}
