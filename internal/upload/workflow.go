// Package upload drives the screenshot recognition workflow: pick a target
// slot, stage an image (file upload or clipboard paste), confirm to scan,
// merge the recognised values into the targeted snapshot.
package upload

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/yield-assistant-go/internal/domain"
	"github.com/boddenberg/yield-assistant-go/internal/infra/observability"
	"github.com/boddenberg/yield-assistant-go/internal/port"
)

// PastedFilename names clipboard images, which carry no filename of their own.
const PastedFilename = "pasted_image.png"

// Status is the externally visible workflow state.
type Status struct {
	Target    *domain.UploadTarget `json:"target"`
	PreviewID string               `json:"previewId"`
	Filename  string               `json:"filename"`
	Scanning  bool                 `json:"scanning"`
}

// Workflow is a single-user staging area for one pending screenshot.
// All transitions are serialised; the OCR call itself runs outside the lock
// so status queries stay responsive during a scan.
type Workflow struct {
	logger   *zap.Logger
	scanner  port.Scanner
	applier  port.ScanApplier
	previews *PreviewStore
	metrics  *observability.Metrics

	mu        sync.Mutex
	target    *domain.UploadTarget
	previewID string
	filename  string
	scanning  bool
	cancelled bool // a cancel or retarget arrived while the scan was in flight
}

func NewWorkflow(logger *zap.Logger, scanner port.Scanner, applier port.ScanApplier, previews *PreviewStore, metrics *observability.Metrics) *Workflow {
	return &Workflow{
		logger:   logger,
		scanner:  scanner,
		applier:  applier,
		previews: previews,
		metrics:  metrics,
	}
}

// Status returns a snapshot of the workflow state.
func (w *Workflow) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := Status{PreviewID: w.previewID, Filename: w.filename, Scanning: w.scanning}
	if w.target != nil {
		t := *w.target
		s.Target = &t
	}
	return s
}

// SetTarget selects the snapshot slot and resource group the next image will
// fill. Any previously staged image is discarded, and an in-flight scan's
// result will be thrown away when it lands.
func (w *Workflow) SetTarget(t domain.UploadTarget) error {
	if !t.DataType.Valid() {
		return &domain.ErrValidation{Field: "dataType", Message: "must be init or final"}
	}
	if !t.ScanType.Valid() {
		return &domain.ErrValidation{Field: "scanType", Message: "must be cash_exp or reserve"}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.scanning {
		w.cancelled = true
	}
	w.previews.Release(w.previewID)
	w.previewID = ""
	w.filename = ""
	w.target = &t
	return nil
}

// AttachFile stages an uploaded image, replacing any previously staged one.
// Requires a target; images arriving without one are rejected and not stored.
func (w *Workflow) AttachFile(filename string, data []byte) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.scanning {
		return "", &domain.ErrScanInProgress{}
	}
	if w.target == nil {
		return "", &domain.ErrNoTargetSelected{}
	}

	w.previews.Release(w.previewID)
	w.previewID = w.previews.Put(data)
	w.filename = filename
	return w.previewID, nil
}

// Paste stages a clipboard item. Non-image items are ignored without touching
// the workflow; the second return reports whether the item was consumed.
func (w *Workflow) Paste(contentType string, data []byte) (string, bool, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return "", false, nil
	}
	id, err := w.AttachFile(PastedFilename, data)
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// Confirm submits the staged image for recognition on behalf of accountID and
// merges the result into the targeted snapshot. On success the workflow
// returns to idle; on failure the staged image and target are kept so the
// user can retry or cancel.
func (w *Workflow) Confirm(ctx context.Context, accountID string) (domain.ScanValues, error) {
	w.mu.Lock()
	if w.scanning {
		w.mu.Unlock()
		return nil, &domain.ErrScanInProgress{}
	}
	if w.target == nil || w.previewID == "" {
		w.mu.Unlock()
		return nil, &domain.ErrNothingPending{}
	}

	target := *w.target
	previewID := w.previewID
	filename := w.filename
	image, ok := w.previews.Get(previewID)
	if !ok {
		// Handle vanished (process restart between stage and confirm).
		w.previewID = ""
		w.filename = ""
		w.mu.Unlock()
		return nil, &domain.ErrNothingPending{}
	}
	w.scanning = true
	w.cancelled = false
	w.mu.Unlock()

	values, err := w.scanner.Scan(ctx, accountID, filename, image)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.scanning = false
	if w.cancelled {
		w.cancelled = false
		w.previews.Release(previewID)
		return nil, &domain.ErrScanCancelled{}
	}
	if err != nil {
		w.metrics.IncrScan("error")
		w.logger.Warn("scan failed, keeping staged image",
			zap.String("account_id", accountID),
			zap.Error(err))
		return nil, err
	}

	if err := w.applier.ApplyScan(target, values, time.Now()); err != nil {
		w.metrics.IncrScan("error")
		return nil, err
	}

	w.metrics.IncrScan("success")
	w.logger.Info("scan applied",
		zap.String("account_id", accountID),
		zap.String("data_type", string(target.DataType)),
		zap.String("scan_type", string(target.ScanType)),
		zap.Int("values", len(values)))

	w.previews.Release(previewID)
	w.previewID = ""
	w.filename = ""
	w.target = nil
	return values, nil
}

// Cancel discards the staged image and target from any state. A scan already
// in flight keeps running, but its result is thrown away when it lands.
func (w *Workflow) Cancel() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.scanning {
		w.cancelled = true
	}
	w.previews.Release(w.previewID)
	w.previewID = ""
	w.filename = ""
	w.target = nil
	return nil
}

// Preview returns the staged image bytes for a handle.
func (w *Workflow) Preview(id string) ([]byte, bool) {
	return w.previews.Get(id)
}

// Close releases any staged image.
func (w *Workflow) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.previews.Release(w.previewID)
	w.previewID = ""
	w.filename = ""
	w.target = nil
}
