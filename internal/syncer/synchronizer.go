// Package syncer keeps the in-memory working copy of the registry and the
// active account's state in sync with the remote store. Mutations apply
// locally first and flush to the store on two independent debounced streams,
// one for the registry document and one for the account document.
package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/boddenberg/yield-assistant-go/internal/domain"
	"github.com/boddenberg/yield-assistant-go/internal/infra/observability"
	"github.com/boddenberg/yield-assistant-go/internal/port"
)

// DefaultAccountName seeds a fresh registry so there is always an account to
// work in.
const DefaultAccountName = "账号_01"

// Synchronizer owns the working copy. Saves are whole-document and
// last-write-wins; until a document has loaded successfully its save stream
// stays gated so local defaults can never clobber the stored copy.
type Synchronizer struct {
	logger      *zap.Logger
	store       port.StateStore
	metrics     *observability.Metrics
	saveTimeout time.Duration

	mu            sync.Mutex
	registry      domain.Registry
	registryReady bool
	state         domain.AccountState
	stateReady    bool
	loading       bool
	loadGen       int

	regTask  *debounceTask
	acctTask *debounceTask
}

func New(logger *zap.Logger, store port.StateStore, metrics *observability.Metrics, debounce, saveTimeout time.Duration) *Synchronizer {
	return &Synchronizer{
		logger:      logger,
		store:       store,
		metrics:     metrics,
		saveTimeout: saveTimeout,
		regTask:     newDebounceTask(debounce),
		acctTask:    newDebounceTask(debounce),
	}
}

// Init loads the registry and the active account's state. An empty remote
// registry is seeded with one default account and written back. On failure
// the relevant ready gate stays closed; Reload retries later.
func (s *Synchronizer) Init(ctx context.Context) error {
	reg, err := s.store.LoadRegistry(ctx)
	if err != nil {
		s.logger.Warn("registry load failed, mutations gated until reload", zap.Error(err))
		return err
	}
	reg.EnsureDefaults()

	seeded := false
	if len(reg.Accounts) == 0 {
		reg.Accounts = []domain.Account{{ID: uuid.New().String(), Name: DefaultAccountName}}
		seeded = true
	}
	if _, ok := reg.Find(reg.Account); !ok {
		reg.Account = reg.Accounts[0].ID
		seeded = true
	}

	s.mu.Lock()
	s.registry = reg
	s.registryReady = true
	s.mu.Unlock()

	if seeded {
		s.scheduleRegistrySave()
	}
	return s.loadActiveAccount(ctx, reg.Account)
}

// Reload retries whatever failed to load: the registry first if its gate is
// still closed, then the active account's state.
func (s *Synchronizer) Reload(ctx context.Context) error {
	s.mu.Lock()
	ready := s.registryReady
	active := s.registry.Account
	s.mu.Unlock()

	if !ready {
		return s.Init(ctx)
	}
	return s.loadActiveAccount(ctx, active)
}

// loadActiveAccount fetches accountID's state and installs it, unless a newer
// selection superseded this load while it was in flight.
func (s *Synchronizer) loadActiveAccount(ctx context.Context, accountID string) error {
	s.mu.Lock()
	s.loadGen++
	gen := s.loadGen
	s.stateReady = false
	s.loading = true
	s.mu.Unlock()

	state, err := s.store.LoadAccount(ctx, accountID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.loadGen || s.registry.Account != accountID {
		// A newer load owns the state now; this reply is stale.
		s.logger.Debug("discarding stale account load", zap.String("account_id", accountID))
		return nil
	}
	s.loading = false
	if err != nil {
		s.logger.Warn("account state load failed, mutations gated until reload",
			zap.String("account_id", accountID), zap.Error(err))
		return err
	}
	state.EnsureDefaults()
	s.state = state
	s.stateReady = true
	return nil
}

// Registry returns a copy of the working registry.
func (s *Synchronizer) Registry() domain.Registry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Clone()
}

// Ready reports the two load gates and whether a load is in flight.
func (s *Synchronizer) Ready() (registry, state, loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registryReady, s.stateReady, s.loading
}

// ActiveAccount returns the currently selected account.
func (s *Synchronizer) ActiveAccount() (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.registryReady {
		return domain.Account{}, &domain.ErrStateNotReady{}
	}
	a, ok := s.registry.Find(s.registry.Account)
	if !ok {
		return domain.Account{}, &domain.ErrNotFound{Resource: "account", ID: s.registry.Account}
	}
	return a, nil
}

// AddAccount creates an account, makes it active and gives it a fresh empty
// state. The new account has no remote document yet, so no load is needed.
func (s *Synchronizer) AddAccount(name string) (domain.Account, error) {
	if name == "" {
		return domain.Account{}, &domain.ErrValidation{Field: "name", Message: "must not be empty"}
	}

	s.mu.Lock()
	if !s.registryReady {
		s.mu.Unlock()
		return domain.Account{}, &domain.ErrStateNotReady{}
	}
	acct := domain.Account{ID: uuid.New().String(), Name: name}
	s.registry.Accounts = append(s.registry.Accounts, acct)
	s.registry.Account = acct.ID
	s.loadGen++ // supersede any in-flight load for the previous account
	s.state = domain.AccountState{}
	s.state.EnsureDefaults()
	s.stateReady = true
	s.loading = false
	s.mu.Unlock()

	s.scheduleRegistrySave()
	return acct, nil
}

// RenameAccount updates an account's display name.
func (s *Synchronizer) RenameAccount(id, name string) error {
	if name == "" {
		return &domain.ErrValidation{Field: "name", Message: "must not be empty"}
	}

	s.mu.Lock()
	if !s.registryReady {
		s.mu.Unlock()
		return &domain.ErrStateNotReady{}
	}
	found := false
	for i := range s.registry.Accounts {
		if s.registry.Accounts[i].ID == id {
			s.registry.Accounts[i].Name = name
			found = true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		return &domain.ErrNotFound{Resource: "account", ID: id}
	}
	s.scheduleRegistrySave()
	return nil
}

// DeleteAccount removes an account. The last remaining account cannot be
// deleted. Deleting the active account activates the first remaining one and
// loads its state.
func (s *Synchronizer) DeleteAccount(ctx context.Context, id string) error {
	s.mu.Lock()
	if !s.registryReady {
		s.mu.Unlock()
		return &domain.ErrStateNotReady{}
	}
	if _, ok := s.registry.Find(id); !ok {
		s.mu.Unlock()
		return &domain.ErrNotFound{Resource: "account", ID: id}
	}
	if len(s.registry.Accounts) <= 1 {
		s.mu.Unlock()
		return &domain.ErrLastAccount{}
	}

	kept := s.registry.Accounts[:0:0]
	for _, a := range s.registry.Accounts {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	s.registry.Accounts = kept

	wasActive := s.registry.Account == id
	var next string
	if wasActive {
		next = kept[0].ID
		s.registry.Account = next
	}
	s.mu.Unlock()

	s.scheduleRegistrySave()
	if wasActive {
		return s.loadActiveAccount(ctx, next)
	}
	return nil
}

// SelectAccount makes an existing account active and loads its state.
func (s *Synchronizer) SelectAccount(ctx context.Context, id string) error {
	s.mu.Lock()
	if !s.registryReady {
		s.mu.Unlock()
		return &domain.ErrStateNotReady{}
	}
	if _, ok := s.registry.Find(id); !ok {
		s.mu.Unlock()
		return &domain.ErrNotFound{Resource: "account", ID: id}
	}
	if s.registry.Account == id && s.stateReady {
		s.mu.Unlock()
		return nil
	}
	s.registry.Account = id
	s.mu.Unlock()

	s.scheduleRegistrySave()
	return s.loadActiveAccount(ctx, id)
}

// State returns a copy of the active account's working state.
func (s *Synchronizer) State() (domain.AccountState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stateReady {
		return domain.AccountState{}, &domain.ErrStateNotReady{}
	}
	return s.state.Clone(), nil
}

// UpdateSnapshot applies a partial edit to the init or final snapshot.
func (s *Synchronizer) UpdateSnapshot(dataType domain.DataType, patch domain.SnapshotPatch) (domain.AccountState, error) {
	if !dataType.Valid() {
		return domain.AccountState{}, &domain.ErrValidation{Field: "dataType", Message: "must be init or final"}
	}

	s.mu.Lock()
	if !s.stateReady {
		s.mu.Unlock()
		return domain.AccountState{}, &domain.ErrStateNotReady{}
	}
	snap := &s.state.InitData
	if dataType == domain.DataFinal {
		snap = &s.state.FinalData
	}
	if patch.Time != nil {
		snap.Time = *patch.Time
	}
	if patch.Cash != nil {
		snap.Cash = *patch.Cash
	}
	if patch.Reserve != nil {
		snap.Reserve = *patch.Reserve
	}
	if patch.Exp != nil {
		snap.Exp = *patch.Exp
	}
	out := s.state.Clone()
	s.mu.Unlock()

	s.scheduleAccountSave()
	return out, nil
}

// ApplyScan merges recognised values into the targeted snapshot and stamps
// its time. Labels the recogniser missed clear the corresponding field so a
// stale manual value is never mistaken for a fresh reading.
func (s *Synchronizer) ApplyScan(target domain.UploadTarget, values domain.ScanValues, scannedAt time.Time) error {
	s.mu.Lock()
	if !s.stateReady {
		s.mu.Unlock()
		return &domain.ErrStateNotReady{}
	}
	snap := &s.state.InitData
	if target.DataType == domain.DataFinal {
		snap = &s.state.FinalData
	}
	snap.Time = scannedAt.Format(time.RFC3339)
	switch target.ScanType {
	case domain.ScanCashExp:
		snap.Cash = values[domain.LabelCash]
		snap.Exp = values[domain.LabelExp]
	case domain.ScanReserve:
		snap.Reserve = values[domain.LabelReserve]
	}
	s.mu.Unlock()

	s.scheduleAccountSave()
	return nil
}

// PutDailyRecord stores a computed record under its date key.
func (s *Synchronizer) PutDailyRecord(dateKey string, rec domain.DailyRecord) (domain.AccountState, error) {
	s.mu.Lock()
	if !s.stateReady {
		s.mu.Unlock()
		return domain.AccountState{}, &domain.ErrStateNotReady{}
	}
	s.state.WeeklyData[dateKey] = rec
	out := s.state.Clone()
	s.mu.Unlock()

	s.scheduleAccountSave()
	return out, nil
}

// scheduleRegistrySave arms the registry stream with the current document.
func (s *Synchronizer) scheduleRegistrySave() {
	s.mu.Lock()
	if !s.registryReady {
		s.mu.Unlock()
		return
	}
	reg := s.registry.Clone()
	s.mu.Unlock()

	s.regTask.Schedule(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.saveTimeout)
		defer cancel()
		if err := s.store.SaveRegistry(ctx, reg); err != nil {
			s.logger.Error("registry save failed", zap.Error(err))
			return
		}
		s.metrics.IncrSaveFlush("registry")
	})
}

// scheduleAccountSave arms the account stream with the current document.
func (s *Synchronizer) scheduleAccountSave() {
	s.mu.Lock()
	if !s.stateReady {
		s.mu.Unlock()
		return
	}
	accountID := s.registry.Account
	state := s.state.Clone()
	s.mu.Unlock()

	s.acctTask.Schedule(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.saveTimeout)
		defer cancel()
		if err := s.store.SaveAccount(ctx, accountID, state); err != nil {
			s.logger.Error("account save failed",
				zap.String("account_id", accountID), zap.Error(err))
			return
		}
		s.metrics.IncrSaveFlush("account")
	})
}

// Close flushes both save streams so nothing debounced is lost on shutdown.
func (s *Synchronizer) Close() {
	s.regTask.Flush()
	s.acctTask.Flush()
}
