package notify

import (
	"context"
	"errors"
	"log/slog"

	"tools.zach/dev/steamwatch/internal/presence"
)

// LogSink writes one structured record per event.
type LogSink struct {
	log *slog.Logger
}

// NewLogSink creates a LogSink writing to log.
func NewLogSink(log *slog.Logger) *LogSink {
	return &LogSink{log: log}
}

// Name implements [Sink].
func (*LogSink) Name() string { return "log" }

// Deliver implements [Sink].
func (s *LogSink) Deliver(ctx context.Context, b Batch) error {
	if f := b.Failure; f != nil {
		level := slog.LevelWarn
		if f.Auth {
			level = slog.LevelError
		}
		s.log.Log(ctx, level, "poll failed",
			"steam_id", b.Account.SteamID,
			"auth", f.Auth,
			"retry_in", f.RetryIn,
			"error", f.Err,
		)
	}

	for _, ev := range b.Events {
		switch e := ev.(type) {
		case presence.StatusChanged:
			attrs := []any{
				"steam_id", b.Account.SteamID,
				"from", e.From.String(),
				"to", e.To.String(),
				"since", e.Since,
				"elapsed", e.Elapsed,
			}
			if e.WentActive() {
				attrs = append(attrs, "session_start", e.SessionStart, "merged", e.MergedShortInterruption)
			}
			if e.Session != nil {
				attrs = append(attrs,
					"session_start", e.Session.Start,
					"session_duration", e.Session.Duration,
					"activity_total", e.Session.ActivityTotal,
					"activity_count", e.Session.ActivityCount,
				)
			}
			if e.Inactivity != nil {
				attrs = append(attrs, "last_active", e.Inactivity.LastActiveAt, "inactive_for", e.Inactivity.Total)
			}
			s.log.InfoContext(ctx, "status changed", attrs...)

		case presence.ActivityChanged:
			attrs := []any{
				"steam_id", b.Account.SteamID,
				"kind", e.Kind.String(),
			}
			if e.OldID != "" {
				attrs = append(attrs, "old", activityLabel(e.OldName, e.OldID), "played", e.Played)
			}
			if e.NewID != "" {
				attrs = append(attrs, "new", activityLabel(e.NewName, e.NewID), "new_id", e.NewID)
			}
			s.log.InfoContext(ctx, "activity changed", attrs...)

		default:
			return errors.New("unknown event type")
		}
	}
	return nil
}
