package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/linemk/bookshop/internal/lib/logger/handlers/slogpretty"
)

// switching logger
const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

const serviceName = "bookshop"

// ключи, значения которых не попадают в лог ни в одном окружении
var redactedKeys = map[string]bool{
	"card_number": true,
	"cvv":         true,
	"password":    true,
	"token":       true,
}

// SetupLogger инициализирует логгер в зависимости от переданного окружения
// для локальной разработки используется цветной вывод (pretty), а для dev/prod – JSON
func SetupLogger(env string) *slog.Logger {
	if env == EnvLocal {
		return setupPrettySlog()
	}
	return NewJSON(os.Stdout, env)
}

// NewJSON — JSON-логгер для dev/prod. Каждая запись несёт service и env, секреты вырезаются
func NewJSON(w io.Writer, env string) *slog.Logger {
	level := slog.LevelInfo
	if env == EnvDev {
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: redact,
	})
	return slog.New(handler).With(
		slog.String("service", serviceName),
		slog.String("env", env),
	)
}

func redact(_ []string, a slog.Attr) slog.Attr {
	if redactedKeys[a.Key] {
		return slog.String(a.Key, "[REDACTED]")
	}
	return a
}

func setupPrettySlog() *slog.Logger {
	color.NoColor = false

	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level:       slog.LevelDebug,
			ReplaceAttr: redact,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)
	return slog.New(handler)
}
