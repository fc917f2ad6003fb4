package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/boddenberg/yield-assistant-go/internal/domain"
	"github.com/boddenberg/yield-assistant-go/internal/service"
)

// maxUploadBytes caps screenshot size; game screenshots are a few MB at most.
const maxUploadBytes = 16 << 20

func uploadStatusHandler(trk *service.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, trk.UploadStatus())
	}
}

func uploadTargetHandler(trk *service.Tracker, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "POST /v1/upload/target")
		defer span.End()

		var target domain.UploadTarget
		if err := json.NewDecoder(r.Body).Decode(&target); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := trk.SetUploadTarget(target); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, trk.UploadStatus())
	}
}

func uploadFileHandler(trk *service.Tracker, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "POST /v1/upload/file")
		defer span.End()

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing file field")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable file")
			return
		}

		previewID, err := trk.AttachUpload(header.Filename, data)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"previewId": previewID})
	}
}

// uploadPasteHandler receives the clipboard payload as multipart parts and
// stages the first image-typed one; everything else is ignored.
func uploadPasteHandler(trk *service.Tracker, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "POST /v1/upload/paste")
		defer span.End()

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		reader, err := r.MultipartReader()
		if err != nil {
			writeError(w, http.StatusBadRequest, "expected multipart clipboard payload")
			return
		}

		for {
			part, err := reader.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				writeError(w, http.StatusBadRequest, "malformed clipboard payload")
				return
			}

			data, err := io.ReadAll(part)
			part.Close()
			if err != nil {
				writeError(w, http.StatusBadRequest, "unreadable clipboard payload")
				return
			}

			previewID, handled, err := trk.PasteUpload(part.Header.Get("Content-Type"), data)
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}
			if handled {
				writeJSON(w, http.StatusOK, map[string]any{"handled": true, "previewId": previewID})
				return
			}
		}

		// No image among the pasted items: a no-op, not an error.
		writeJSON(w, http.StatusOK, map[string]any{"handled": false})
	}
}

func uploadConfirmHandler(trk *service.Tracker, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/upload/confirm")
		defer span.End()

		values, err := trk.ConfirmUpload(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"values": values})
	}
}

func uploadCancelHandler(trk *service.Tracker, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "POST /v1/upload/cancel")
		defer span.End()

		if err := trk.CancelUpload(); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func uploadPreviewHandler(trk *service.Tracker, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		if id == "" {
			writeError(w, http.StatusBadRequest, "id is required")
			return
		}
		data, ok := trk.UploadPreview(id)
		if !ok {
			writeError(w, http.StatusNotFound, "preview not found")
			return
		}
		w.Header().Set("Content-Type", http.DetectContentType(data))
		w.Write(data)
	}
}
