package store

import (
	"context"
	"errors"

	"github.com/nhle/opencart-qa/internal/model"
)

var (
	// ErrNoRuns is returned when a run is needed but none has been started.
	ErrNoRuns = errors.New("no test runs recorded")

	// ErrDuplicateEmail is returned when a registered user's email is
	// already stored.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
)

// Store defines the persistence interface for test run metadata and the
// accounts generated during runs.
type Store interface {
	// === Runs ===

	StartRun(ctx context.Context, name string) (*model.Run, error)
	// FinishRun marks runID finished. An empty runID targets the most
	// recently started run.
	FinishRun(ctx context.Context, runID string) (*model.Run, error)
	LatestRun(ctx context.Context) (*model.Run, error)
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)

	// === Users ===

	SaveRegisteredUser(ctx context.Context, u *model.RegisteredUser) error
	GetRegisteredUser(ctx context.Context, email string) (*model.RegisteredUser, error)
	StoreUserData(ctx context.Context, u *model.UserData) error
	ListUserData(ctx context.Context) ([]model.UserData, error)

	Close() error
}
