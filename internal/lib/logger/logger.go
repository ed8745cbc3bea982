package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// SetupLogger builds the root slog logger for the given environment.
// Local runs log text to stdout at debug level; dev and prod log JSON,
// additionally appending to a file under logPath when it is writable.
func SetupLogger(env, logPath string) *slog.Logger {
	var out io.Writer = os.Stdout

	if env != envLocal && logPath != "" {
		file, err := os.OpenFile(
			filepath.Join(logPath, "clinichat.log"),
			os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644,
		)
		if err == nil {
			out = io.MultiWriter(os.Stdout, file)
		}
	}

	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}

// Alerter delivers a log record to an out-of-band channel (e.g. a Telegram
// admin chat).
type Alerter interface {
	SendAlert(text string) error
}

// SetupTelegramHandler wraps the logger so records at or above level are also
// forwarded to the alerter. Delivery failures are ignored; alerting must
// never break logging.
func SetupTelegramHandler(log *slog.Logger, alerter Alerter, level slog.Level) *slog.Logger {
	return slog.New(&alertHandler{
		next:    log.Handler(),
		alerter: alerter,
		level:   level,
	})
}

type alertHandler struct {
	next    slog.Handler
	alerter Alerter
	level   slog.Level
	attrs   []slog.Attr
}

func (h *alertHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *alertHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level >= h.level && h.alerter != nil {
		text := record.Level.String() + ": " + record.Message
		record.Attrs(func(a slog.Attr) bool {
			text += "\n" + a.Key + "=" + a.Value.String()
			return true
		})
		for _, a := range h.attrs {
			text += "\n" + a.Key + "=" + a.Value.String()
		}
		_ = h.alerter.SendAlert(text)
	}
	return h.next.Handle(ctx, record)
}

func (h *alertHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &alertHandler{
		next:    h.next.WithAttrs(attrs),
		alerter: h.alerter,
		level:   h.level,
		attrs:   append(h.attrs[:len(h.attrs):len(h.attrs)], attrs...),
	}
}

func (h *alertHandler) WithGroup(name string) slog.Handler {
	return &alertHandler{
		next:    h.next.WithGroup(name),
		alerter: h.alerter,
		level:   h.level,
		attrs:   h.attrs,
	}
}
