package handler

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/boddenberg/yield-assistant-go/internal/service"
)

func exportCSVHandler(trk *service.Tracker, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/export/csv")
		defer span.End()

		out, filename, err := trk.ExportCSV(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		serveAttachment(w, out, filename, "text/csv; charset=utf-8")
	}
}

func exportXLSXHandler(trk *service.Tracker, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/export/xlsx")
		defer span.End()

		out, filename, err := trk.ExportXLSX(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		serveAttachment(w, out, filename,
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	}
}

func serveAttachment(w http.ResponseWriter, data []byte, filename, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
	w.Write(data)
}
