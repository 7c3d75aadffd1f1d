package handler

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/blendin/internal/api/apierr"
)

// writeError answers with err's mapped status. Failures the client could not
// have caused are logged here, since their cause never reaches the response.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	if apierr.Status(err) >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
	}
	apierr.WriteError(w, err)
}
