// Package export flattens every account's ledger into a single tabular
// report, fetched concurrently from the remote store.
package export

import (
	"context"
	"math"
	"sort"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/boddenberg/yield-assistant-go/internal/domain"
	"github.com/boddenberg/yield-assistant-go/internal/infra/observability"
	"github.com/boddenberg/yield-assistant-go/internal/infra/resilience"
	"github.com/boddenberg/yield-assistant-go/internal/port"
)

// Export artifact names.
const (
	CSVFilename  = "weekly_report_all_accounts.csv"
	XLSXFilename = "weekly_report_all_accounts.xlsx"
)

// Header is the fixed column order of the flattened report.
var Header = []string{
	"账号", "日期",
	"initCash", "finalCash", "netCash",
	"initReserve", "finalReserve", "netReserve",
	"initExp", "finalExp", "netExp",
	"duration", "hourlyCash", "hourlyReserve", "hourlyExp",
}

const ledgerCache = "ledger"

// Service builds the all-accounts report. Account ledgers come from the
// remote store with a short-lived cache in front, so back-to-back exports
// don't refetch every account.
type Service struct {
	logger   *zap.Logger
	store    port.StateStore
	local    port.RegistrySource
	cache    port.Cache[domain.AccountState]
	metrics  *observability.Metrics
	bulkhead *resilience.Bulkhead
}

func NewService(logger *zap.Logger, store port.StateStore, local port.RegistrySource, cache port.Cache[domain.AccountState], metrics *observability.Metrics, concurrency int) *Service {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Service{
		logger:   logger,
		store:    store,
		local:    local,
		cache:    cache,
		metrics:  metrics,
		bulkhead: resilience.NewBulkhead(concurrency),
	}
}

// Accounts merges the locally held registry with the remote one, keyed by id.
// Local entries come first and keep their display names; remote-only accounts
// are appended. A remote registry failure degrades to the local view, so an
// export still covers everything this process knows about.
func (s *Service) Accounts(ctx context.Context) []domain.Account {
	local := s.local.Registry()

	merged := make([]domain.Account, 0, len(local.Accounts))
	seen := make(map[string]bool, len(local.Accounts))
	add := func(a domain.Account) {
		if a.ID == "" || seen[a.ID] {
			return
		}
		seen[a.ID] = true
		merged = append(merged, a)
	}
	for _, a := range local.Accounts {
		add(a)
	}

	remote, err := s.store.LoadRegistry(ctx)
	if err != nil {
		s.logger.Warn("remote registry unavailable, exporting local accounts only", zap.Error(err))
	} else {
		for _, a := range remote.Accounts {
			add(a)
		}
		if _, ok := seen[remote.Account]; !ok && remote.Account != "" {
			add(domain.Account{ID: remote.Account, Name: remote.Account})
		}
	}
	if _, ok := seen[local.Account]; !ok && local.Account != "" {
		add(domain.Account{ID: local.Account, Name: local.Account})
	}
	return merged
}

// Rows builds the flattened report: one row per account per recorded date,
// dates ascending, accounts in registry order. Accounts with no records get
// a single placeholder row so they are not silently dropped.
func (s *Service) Rows(ctx context.Context) ([][]string, error) {
	accounts := s.Accounts(ctx)

	ledgers := make([]domain.WeeklyLedger, len(accounts))
	g, gctx := errgroup.WithContext(ctx)
	for i, acct := range accounts {
		i, acct := i, acct
		g.Go(func() error {
			if err := s.bulkhead.Acquire(gctx); err != nil {
				return err
			}
			defer s.bulkhead.Release()

			state, err := s.loadState(gctx, acct.ID)
			if err != nil {
				return err
			}
			ledgers[i] = state.WeeklyData
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rows := [][]string{Header}
	for i, acct := range accounts {
		rows = append(rows, accountRows(acct, ledgers[i])...)
	}
	return rows, nil
}

func (s *Service) loadState(ctx context.Context, accountID string) (domain.AccountState, error) {
	if state, ok := s.cache.Get(accountID); ok {
		s.metrics.IncrCacheHit(ledgerCache)
		return state, nil
	}
	s.metrics.IncrCacheMiss(ledgerCache)

	state, err := s.store.LoadAccount(ctx, accountID)
	if err != nil {
		return domain.AccountState{}, err
	}
	state.EnsureDefaults()
	s.cache.Set(accountID, state)
	return state, nil
}

func accountRows(acct domain.Account, ledger domain.WeeklyLedger) [][]string {
	if len(ledger) == 0 {
		row := make([]string, len(Header))
		row[0] = acct.Name
		return [][]string{row}
	}

	dates := make([]string, 0, len(ledger))
	for k := range ledger {
		dates = append(dates, k)
	}
	sort.Strings(dates)

	rows := make([][]string, 0, len(dates))
	for _, date := range dates {
		rec := ledger[date]
		row := make([]string, 0, len(Header))
		row = append(row, acct.Name, date)
		for _, field := range domain.RecordFields {
			v, _ := rec.Field(field)
			row = append(row, cell(v))
		}
		rows = append(rows, row)
	}
	return rows
}

// cell renders a record value for export: plain decimal, NaN verbatim.
func cell(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
