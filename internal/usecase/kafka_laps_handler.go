package usecase

import (
	"context"
	"encoding/json"
	"time"

	"PitWall/internal/domain/models"
	drepo "PitWall/internal/domain/repository"
	mid "PitWall/internal/middleware"
	pkgkafka "PitWall/pkg/kafka"
)

// KafkaLapsHandler consumes lap records published by a remote timing
// bridge and routes them through the same pipeline as the live feed.
type KafkaLapsHandler struct {
	topic   string
	pipe    *mid.LapPipeline
	proc    *TickProcessor
	metrics drepo.Metrics
}

func NewKafkaLapsHandler(topic string, pipe *mid.LapPipeline, proc *TickProcessor, metrics drepo.Metrics) *KafkaLapsHandler {
	return &KafkaLapsHandler{topic: topic, pipe: pipe, proc: proc, metrics: metrics}
}

func (h *KafkaLapsHandler) Topic() string { return h.topic }

// Handle decodes one lap message and applies it. Position frames ride the
// same topic with a frame tag.
func (h *KafkaLapsHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Frame    string               `json:"frame"`
		Lap      *models.LapData      `json:"lap,omitempty"`
		Position *models.PositionData `json:"position,omitempty"`
		SentAt   int64                `json:"sent_at"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if m.SentAt > 0 {
		h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.UnixMilli(m.SentAt)).Seconds())
	}

	switch m.Frame {
	case "position":
		if m.Position != nil {
			h.proc.UpdatePosition(m.Position)
		}
		return nil
	default:
		if m.Lap == nil {
			h.metrics.RecordError("consumer_empty_lap")
			return nil
		}
		if h.pipe != nil {
			return h.pipe.Process(ctx, m.Lap)
		}
		return h.proc.ProcessLap(ctx, m.Lap)
	}
}

var _ pkgkafka.MessageHandler = (*KafkaLapsHandler)(nil)
