package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/solar-panel-monitor/internal/core/domain"
	"github.com/kirillkom/solar-panel-monitor/internal/core/ports"
)

// TelemetryUseCase accepts sensor readings on the api side and processes
// them on the worker side.
type TelemetryUseCase struct {
	readings ports.ReadingRepository
	queue    ports.MessageQueue
	rules    ports.AlertRules
}

func NewTelemetryUseCase(readings ports.ReadingRepository, queue ports.MessageQueue, rules ports.AlertRules) *TelemetryUseCase {
	return &TelemetryUseCase{
		readings: readings,
		queue:    queue,
		rules:    rules,
	}
}

// RecordReading validates a reading and hands it to the worker via the
// queue. Persistence happens on the consumer side.
func (uc *TelemetryUseCase) RecordReading(ctx context.Context, reading domain.PanelReading) (*domain.PanelReading, error) {
	if strings.TrimSpace(reading.PanelID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "record reading", fmt.Errorf("panel_id is required"))
	}
	if reading.ID == "" {
		reading.ID = uuid.NewString()
	}
	if reading.RecordedAt.IsZero() {
		reading.RecordedAt = time.Now().UTC()
	}

	if err := uc.queue.PublishReading(ctx, reading); err != nil {
		return nil, fmt.Errorf("publish reading: %w", err)
	}
	return &reading, nil
}

// ProcessReading persists a consumed reading and evaluates alert rules
// against it. Alert publication is best effort.
func (uc *TelemetryUseCase) ProcessReading(ctx context.Context, reading domain.PanelReading) error {
	if err := uc.readings.SaveReading(ctx, &reading); err != nil {
		return fmt.Errorf("save reading: %w", err)
	}

	if uc.rules == nil {
		return nil
	}
	for _, alert := range uc.rules.EvaluateReading(reading) {
		if err := uc.queue.PublishAlert(ctx, alert); err != nil {
			slog.Warn("alert_publish_failed", "panel_id", alert.PanelID, "rule", alert.Rule, "error", err)
		}
	}
	return nil
}
