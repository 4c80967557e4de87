package internal

import (
	"log/slog"

	"github.com/starford/photoboard/internal/index"
	"github.com/starford/photoboard/internal/sse"
	"github.com/starford/photoboard/internal/workflow"
)

// journalListener records every committed transition. The journal is
// derived data, so a failed write is logged and otherwise ignored.
func journalListener(j index.Journal, logger *slog.Logger) workflow.Listener {
	return func(ev workflow.Event) {
		err := j.RecordTransition(index.Transition{
			PhotoID:   ev.Photo.ID,
			Filename:  ev.Photo.Filename,
			From:      ev.From,
			To:        ev.Photo.Category,
			Relocated: ev.Relocated,
			At:        ev.At,
		})
		if err != nil {
			logger.Warn("journal write failed",
				slog.String("id", ev.Photo.ID),
				slog.String("error", err.Error()))
		}
	}
}

// brokerListener forwards committed transitions to SSE clients.
func brokerListener(b *sse.Broker) workflow.Listener {
	return func(ev workflow.Event) {
		b.PublishPhoto(sse.PhotoEvent{
			Kind:      string(ev.Kind),
			ID:        ev.Photo.ID,
			Filename:  ev.Photo.Filename,
			Category:  string(ev.Photo.Category),
			From:      string(ev.From),
			Relocated: ev.Relocated,
			At:        ev.At,
		})
	}
}
