package supervisor

import (
	"io"
	"log/slog"

	"github.com/khanglvm/persona-search/internal/logging"
)

func discardLogger() *slog.Logger {
	return slog.New(logging.NewSlogHandler(logging.NewTestLogger(io.Discard)))
}
