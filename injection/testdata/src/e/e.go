package e

import (
	"log"
	"log/slog"
	"net/http"
)

func handle(r *http.Request) {
	path := r.URL.Path
	slog.Info(path) // want "tainted data reaches argument 0 of log/slog.Info"

	slog.Info("request", "path", path)

	logger := slog.Default()
	logger.Warn(r.Host) // want "tainted data reaches argument 1 of \\(\\*log/slog.Logger\\).Warn"

	audit(r.Method)
}

func audit(method string) {
	log.SetPrefix(method) // want "tainted data reaches argument 0 of log.SetPrefix"
}
