package domain

// Core models for the yield assistant: accounts, snapshots, daily records
// and the weekly ledger. Field names follow the wire format shared with the
// frontend and the remote state store.

// Account identifies one tracked game account. ID is the stable persistence
// key; Name is display-only and freely renamable.
type Account struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Registry is the account list plus the currently active account id.
// Persisted as a whole document via POST /state (no account query param).
type Registry struct {
	Accounts []Account `json:"accounts"`
	Account  string    `json:"account"`
}

// EnsureDefaults normalises a registry decoded from a remote reply.
func (r *Registry) EnsureDefaults() {
	if r.Accounts == nil {
		r.Accounts = []Account{}
	}
}

// Find returns the account with the given id.
func (r *Registry) Find(id string) (Account, bool) {
	for _, a := range r.Accounts {
		if a.ID == id {
			return a, true
		}
	}
	return Account{}, false
}

// Clone returns a copy whose account slice is independent of the original.
func (r Registry) Clone() Registry {
	out := Registry{Account: r.Account, Accounts: make([]Account, len(r.Accounts))}
	copy(out.Accounts, r.Accounts)
	return out
}

// Snapshot is a point-in-time reading of the three tracked resources.
// Time is RFC3339 or a bare clock time ("15:04:05"); resources stay ""
// until entered or scanned.
type Snapshot struct {
	Time    string  `json:"time"`
	Cash    Numeric `json:"cash"`
	Reserve Numeric `json:"reserve"`
	Exp     Numeric `json:"exp"`
}

// SnapshotPatch is a partial snapshot edit; nil fields are left untouched.
type SnapshotPatch struct {
	Time    *string  `json:"time"`
	Cash    *Numeric `json:"cash"`
	Reserve *Numeric `json:"reserve"`
	Exp     *Numeric `json:"exp"`
}

// DailyRecord is one day's computed result, keyed in the ledger by the local
// calendar date of the calculation (YYYY-MM-DD).
type DailyRecord struct {
	InitCash      Metric `json:"initCash"`
	FinalCash     Metric `json:"finalCash"`
	NetCash       Metric `json:"netCash"`
	InitReserve   Metric `json:"initReserve"`
	FinalReserve  Metric `json:"finalReserve"`
	NetReserve    Metric `json:"netReserve"`
	InitExp       Metric `json:"initExp"`
	FinalExp      Metric `json:"finalExp"`
	NetExp        Metric `json:"netExp"`
	Duration      Metric `json:"duration"`
	HourlyCash    Metric `json:"hourlyCash"`
	HourlyReserve Metric `json:"hourlyReserve"`
	HourlyExp     Metric `json:"hourlyExp"`
}

// RecordFields is the canonical field order used by reports and exports.
var RecordFields = []string{
	"initCash", "finalCash", "netCash",
	"initReserve", "finalReserve", "netReserve",
	"initExp", "finalExp", "netExp",
	"duration", "hourlyCash", "hourlyReserve", "hourlyExp",
}

// Field returns a record value by its wire name.
func (d DailyRecord) Field(name string) (float64, bool) {
	switch name {
	case "initCash":
		return d.InitCash.Float(), true
	case "finalCash":
		return d.FinalCash.Float(), true
	case "netCash":
		return d.NetCash.Float(), true
	case "initReserve":
		return d.InitReserve.Float(), true
	case "finalReserve":
		return d.FinalReserve.Float(), true
	case "netReserve":
		return d.NetReserve.Float(), true
	case "initExp":
		return d.InitExp.Float(), true
	case "finalExp":
		return d.FinalExp.Float(), true
	case "netExp":
		return d.NetExp.Float(), true
	case "duration":
		return d.Duration.Float(), true
	case "hourlyCash":
		return d.HourlyCash.Float(), true
	case "hourlyReserve":
		return d.HourlyReserve.Float(), true
	case "hourlyExp":
		return d.HourlyExp.Float(), true
	}
	return 0, false
}

// WeeklyLedger maps date keys (YYYY-MM-DD) to daily records. Storage is
// unbounded; aggregation windows are applied at read time.
type WeeklyLedger map[string]DailyRecord

// Clone returns a deep copy of the ledger.
func (l WeeklyLedger) Clone() WeeklyLedger {
	out := make(WeeklyLedger, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// AccountState is the full persisted unit for one account: its ledger and
// the two live snapshots. Persisted whole-document via POST /state?account=.
type AccountState struct {
	WeeklyData WeeklyLedger `json:"weeklyData"`
	InitData   Snapshot     `json:"initData"`
	FinalData  Snapshot     `json:"finalData"`
}

// EnsureDefaults fills fields absent from a remote reply with empty values.
func (s *AccountState) EnsureDefaults() {
	if s.WeeklyData == nil {
		s.WeeklyData = WeeklyLedger{}
	}
}

// Clone returns a deep copy suitable for handing to another goroutine.
func (s AccountState) Clone() AccountState {
	return AccountState{
		WeeklyData: s.WeeklyData.Clone(),
		InitData:   s.InitData,
		FinalData:  s.FinalData,
	}
}

// Result is the immediate display result of one calculation.
type Result struct {
	Cash          Metric `json:"cash"`
	Reserve       Metric `json:"reserve"`
	Exp           Metric `json:"exp"`
	Duration      Metric `json:"duration"`
	HourlyCash    Metric `json:"hourlyCash"`
	HourlyReserve Metric `json:"hourlyReserve"`
	HourlyExp     Metric `json:"hourlyExp"`
}

// DataType selects which snapshot an upload targets.
type DataType string

// ScanType selects which resource group a screenshot covers.
type ScanType string

const (
	DataInit  DataType = "init"
	DataFinal DataType = "final"

	ScanCashExp ScanType = "cash_exp"
	ScanReserve ScanType = "reserve"
)

// Valid reports whether the value is one of the two snapshot slots.
func (d DataType) Valid() bool { return d == DataInit || d == DataFinal }

// Valid reports whether the value is a known scan group.
func (s ScanType) Valid() bool { return s == ScanCashExp || s == ScanReserve }

// UploadTarget names the snapshot slot and resource group a pending
// screenshot will fill. Transient, never persisted.
type UploadTarget struct {
	DataType DataType `json:"dataType"`
	ScanType ScanType `json:"scanType"`
}

// OCR value labels as they appear on the game screen and in the OCR reply.
const (
	LabelCash    = "现金"
	LabelExp     = "获得经验"
	LabelReserve = "储备金"
)

// ScanValues is the OCR reply payload: screen label → recognised value.
// Labels the recogniser missed are simply absent.
type ScanValues map[string]Numeric

// MetricsSummary is the counter snapshot served by GET /v1/metrics/summary.
type MetricsSummary struct {
	Calculations   int64   `json:"calculations"`
	Scans          int64   `json:"scans"`
	ScanErrors     int64   `json:"scanErrors"`
	RegistrySaves  int64   `json:"registrySaves"`
	AccountSaves   int64   `json:"accountSaves"`
	ExternalErrors int64   `json:"externalErrors"`
	CacheHitRate   float64 `json:"cacheHitRate"`
}
