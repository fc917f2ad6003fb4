// Package service orchestrates the domain components behind the HTTP
// handlers: account management, session calculation, the upload workflow,
// reporting and export.
package service

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/yield-assistant-go/internal/domain"
	"github.com/boddenberg/yield-assistant-go/internal/export"
	"github.com/boddenberg/yield-assistant-go/internal/infra/observability"
	"github.com/boddenberg/yield-assistant-go/internal/ledger"
	"github.com/boddenberg/yield-assistant-go/internal/session"
	"github.com/boddenberg/yield-assistant-go/internal/syncer"
	"github.com/boddenberg/yield-assistant-go/internal/upload"
)

var tracer = otel.Tracer("service")

// SessionView is what the session screen shows: both snapshots plus the most
// recent calculation result, if any.
type SessionView struct {
	InitData  domain.Snapshot `json:"initData"`
	FinalData domain.Snapshot `json:"finalData"`
	Result    *domain.Result  `json:"result"`
}

// Tracker wires the synchronizer, upload workflow and export engine together.
type Tracker struct {
	logger   *zap.Logger
	syncer   *syncer.Synchronizer
	workflow *upload.Workflow
	exporter *export.Service
	metrics  *observability.Metrics

	mu         sync.Mutex
	lastResult *domain.Result
}

func NewTracker(logger *zap.Logger, syn *syncer.Synchronizer, workflow *upload.Workflow, exporter *export.Service, metrics *observability.Metrics) *Tracker {
	return &Tracker{
		logger:   logger,
		syncer:   syn,
		workflow: workflow,
		exporter: exporter,
		metrics:  metrics,
	}
}

// --- Accounts ---

// Accounts returns the registry with the active account id.
func (t *Tracker) Accounts() (domain.Registry, error) {
	reg := t.syncer.Registry()
	if ready, _, _ := t.syncer.Ready(); !ready {
		return domain.Registry{}, &domain.ErrStateNotReady{}
	}
	return reg, nil
}

// AddAccount creates an account and makes it active.
func (t *Tracker) AddAccount(name string) (domain.Account, error) {
	acct, err := t.syncer.AddAccount(name)
	if err != nil {
		return domain.Account{}, err
	}
	t.clearResult()
	t.logger.Info("account added", zap.String("account_id", acct.ID))
	return acct, nil
}

// RenameAccount updates an account's display name.
func (t *Tracker) RenameAccount(id, name string) error {
	return t.syncer.RenameAccount(id, name)
}

// DeleteAccount removes an account, keeping at least one.
func (t *Tracker) DeleteAccount(ctx context.Context, id string) error {
	if err := t.syncer.DeleteAccount(ctx, id); err != nil {
		return err
	}
	t.clearResult()
	t.logger.Info("account deleted", zap.String("account_id", id))
	return nil
}

// ActivateAccount switches the active account and loads its state. Unsent
// edits of the previous account's view are replaced, and the last result is
// cleared since it belonged to the previous account.
func (t *Tracker) ActivateAccount(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Tracker.ActivateAccount")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", id))

	if err := t.syncer.SelectAccount(ctx, id); err != nil {
		return err
	}
	t.clearResult()
	return nil
}

// --- Session ---

// Session returns the active account's snapshots and the last result.
func (t *Tracker) Session() (SessionView, error) {
	state, err := t.syncer.State()
	if err != nil {
		return SessionView{}, err
	}
	return SessionView{
		InitData:  state.InitData,
		FinalData: state.FinalData,
		Result:    t.currentResult(),
	}, nil
}

// UpdateSnapshot applies a partial edit to one snapshot.
func (t *Tracker) UpdateSnapshot(dataType domain.DataType, patch domain.SnapshotPatch) (SessionView, error) {
	state, err := t.syncer.UpdateSnapshot(dataType, patch)
	if err != nil {
		return SessionView{}, err
	}
	return SessionView{
		InitData:  state.InitData,
		FinalData: state.FinalData,
		Result:    t.currentResult(),
	}, nil
}

// Calculate derives the session result from the current snapshots and writes
// today's ledger record. Snapshots are kept; recalculating the same day
// overwrites its record.
func (t *Tracker) Calculate(ctx context.Context) (domain.Result, error) {
	_, span := tracer.Start(ctx, "Tracker.Calculate")
	defer span.End()
	start := time.Now()

	state, err := t.syncer.State()
	if err != nil {
		return domain.Result{}, err
	}

	now := time.Now()
	result, record, err := session.Calculate(state.InitData, state.FinalData, now)
	if err != nil {
		return domain.Result{}, err
	}
	if _, err := t.syncer.PutDailyRecord(ledger.DateKey(now), record); err != nil {
		return domain.Result{}, err
	}

	t.mu.Lock()
	t.lastResult = &result
	t.mu.Unlock()

	t.metrics.IncrCalculation()
	t.metrics.RecordRequestDuration("calculate", time.Since(start))
	return result, nil
}

// WeeklyReport renders the active account's table for the current week.
func (t *Tracker) WeeklyReport() (ledger.Report, error) {
	state, err := t.syncer.State()
	if err != nil {
		return ledger.Report{}, err
	}
	return ledger.BuildReport(state.WeeklyData, time.Now()), nil
}

// --- Upload workflow ---

// UploadStatus returns the workflow state.
func (t *Tracker) UploadStatus() upload.Status {
	return t.workflow.Status()
}

// SetUploadTarget selects the slot the next screenshot fills.
func (t *Tracker) SetUploadTarget(target domain.UploadTarget) error {
	if _, _, loading := t.syncer.Ready(); loading {
		return &domain.ErrStateNotReady{}
	}
	return t.workflow.SetTarget(target)
}

// AttachUpload stages an uploaded screenshot.
func (t *Tracker) AttachUpload(filename string, data []byte) (string, error) {
	return t.workflow.AttachFile(filename, data)
}

// PasteUpload stages a clipboard item if it is an image.
func (t *Tracker) PasteUpload(contentType string, data []byte) (string, bool, error) {
	return t.workflow.Paste(contentType, data)
}

// ConfirmUpload scans the staged screenshot for the active account and merges
// the recognised values.
func (t *Tracker) ConfirmUpload(ctx context.Context) (domain.ScanValues, error) {
	ctx, span := tracer.Start(ctx, "Tracker.ConfirmUpload")
	defer span.End()

	acct, err := t.syncer.ActiveAccount()
	if err != nil {
		return nil, err
	}
	return t.workflow.Confirm(ctx, acct.ID)
}

// CancelUpload discards the staged screenshot and target.
func (t *Tracker) CancelUpload() error {
	return t.workflow.Cancel()
}

// UploadPreview returns the staged screenshot bytes.
func (t *Tracker) UploadPreview(id string) ([]byte, bool) {
	return t.workflow.Preview(id)
}

// --- Export ---

// ExportCSV renders the all-accounts report as CSV.
func (t *Tracker) ExportCSV(ctx context.Context) ([]byte, string, error) {
	ctx, span := tracer.Start(ctx, "Tracker.ExportCSV")
	defer span.End()
	start := time.Now()

	out, err := t.exporter.CSV(ctx)
	if err != nil {
		return nil, "", err
	}
	t.metrics.RecordRequestDuration("export_csv", time.Since(start))
	return out, export.CSVFilename, nil
}

// ExportXLSX renders the all-accounts report as a workbook.
func (t *Tracker) ExportXLSX(ctx context.Context) ([]byte, string, error) {
	ctx, span := tracer.Start(ctx, "Tracker.ExportXLSX")
	defer span.End()
	start := time.Now()

	out, err := t.exporter.XLSX(ctx)
	if err != nil {
		return nil, "", err
	}
	t.metrics.RecordRequestDuration("export_xlsx", time.Since(start))
	return out, export.XLSXFilename, nil
}

// --- Lifecycle / status ---

// MetricsSummary returns the counter snapshot.
func (t *Tracker) MetricsSummary() *domain.MetricsSummary {
	return t.metrics.GetSummary()
}

// Ready reports whether both the registry and the active account's state have
// loaded.
func (t *Tracker) Ready() bool {
	registry, state, loading := t.syncer.Ready()
	return registry && state && !loading
}

// Reload retries failed loads so a store outage at startup does not require a
// process restart.
func (t *Tracker) Reload(ctx context.Context) error {
	return t.syncer.Reload(ctx)
}

// Close flushes pending saves and releases staged uploads.
func (t *Tracker) Close() {
	t.workflow.Close()
	t.syncer.Close()
}

func (t *Tracker) currentResult() *domain.Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastResult == nil {
		return nil
	}
	r := *t.lastResult
	return &r
}

func (t *Tracker) clearResult() {
	t.mu.Lock()
	t.lastResult = nil
	t.mu.Unlock()
}
