// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/boddenberg/yield-assistant-go/internal/domain"
)

// StateStore persists the account registry and per-account state in a remote
// key-value document store. Saves are whole-document replacements.
type StateStore interface {
	LoadRegistry(ctx context.Context) (domain.Registry, error)
	LoadAccount(ctx context.Context, accountID string) (domain.AccountState, error)
	SaveRegistry(ctx context.Context, reg domain.Registry) error
	SaveAccount(ctx context.Context, accountID string, state domain.AccountState) error
}

// Scanner submits a screenshot to the OCR service and returns the recognised
// label → value pairs.
type Scanner interface {
	Scan(ctx context.Context, accountID, filename string, image []byte) (domain.ScanValues, error)
}

// ScanApplier merges recognised values into the targeted snapshot.
// Implemented by the account synchronizer.
type ScanApplier interface {
	ApplyScan(target domain.UploadTarget, values domain.ScanValues, scannedAt time.Time) error
}

// RegistrySource exposes the locally held account registry.
type RegistrySource interface {
	Registry() domain.Registry
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
