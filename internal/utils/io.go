package utils

import (
	"io"
	"log/slog"
)

// CloseWithLog closes c and logs a close failure instead of returning it, for
// deferred response-body closes where the primary error already won.
func CloseWithLog(c io.Closer) {
	if err := c.Close(); err != nil {
		slog.Warn("failed to close resource", "error", err.Error())
	}
}
