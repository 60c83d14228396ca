// Package request runs the request lifecycle: validated, audited,
// transactional writes followed by change events.
package request

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"kreltrack/internal/application/permission"
	"kreltrack/internal/application/request/validation"
	"kreltrack/internal/domain/audit"
	"kreltrack/internal/domain/lookup"
	"kreltrack/internal/domain/request"
	"kreltrack/internal/domain/shared/events"
	"kreltrack/internal/shared/db"
	apperrors "kreltrack/internal/shared/errors"
	"kreltrack/internal/shared/logger"
	"kreltrack/internal/shared/services/text"
)

// TxRunner runs fn in one store transaction.
type TxRunner interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReferenceChecker re-checks references inside the write transaction.
type ReferenceChecker interface {
	MissingReferences(ctx context.Context, refs map[lookup.Table]string) ([]lookup.Table, error)
}

type Validator interface {
	Validate(ctx context.Context, candidate request.Patch, mode validation.Mode, current *request.Request) (validation.Result, error)
}

type DeletePolicy string

const (
	DeleteSoft DeletePolicy = "soft"
	DeleteHard DeletePolicy = "hard"
)

func ParseDeletePolicy(s string) (DeletePolicy, error) {
	switch DeletePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", DeleteSoft:
		return DeleteSoft, nil
	case DeleteHard:
		return DeleteHard, nil
	}
	return "", fmt.Errorf("unknown delete policy %q, expected soft or hard", s)
}

// Deps are the collaborators of Service. All fields are required.
type Deps struct {
	Repo       request.Repository
	References ReferenceChecker
	Validator  Validator
	Numbers    request.NumberGenerator
	Tx         TxRunner
	Audit      audit.Recorder
	Authz      permission.Authorizer
	Publisher  events.Publisher
	Text       text.Service
}

type Options struct {
	DeletePolicy DeletePolicy
	// StoreTimeout bounds each store round trip; zero disables it.
	StoreTimeout time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Service owns every write to the request table. Writes to one number are
// serialised and their events are published before the next write to that
// number starts, so subscribers see one request's events in commit order.
// A synchronous subscriber that writes back to the same number waits at most
// one store timeout for the section and then fails with a timeout.
type Service struct {
	repo       request.Repository
	references ReferenceChecker
	validator  Validator
	numbers    request.NumberGenerator
	tx         TxRunner
	audit      audit.Recorder
	authz      permission.Authorizer
	publisher  events.Publisher
	text       text.Service

	deletePolicy DeletePolicy
	storeTimeout time.Duration
	now          func() time.Time

	locks  *keyedLocks
	logger logger.Interface
}

func NewService(deps Deps, opts Options, log logger.Interface) *Service {
	if opts.DeletePolicy == "" {
		opts.DeletePolicy = DeleteSoft
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		repo:         deps.Repo,
		references:   deps.References,
		validator:    deps.Validator,
		numbers:      deps.Numbers,
		tx:           deps.Tx,
		audit:        deps.Audit,
		authz:        deps.Authz,
		publisher:    deps.Publisher,
		text:         deps.Text,
		deletePolicy: opts.DeletePolicy,
		storeTimeout: opts.StoreTimeout,
		now:          opts.Now,
		locks:        newKeyedLocks(),
		logger:       log.Named("request.service"),
	}
}

func (s *Service) DeletePolicy() DeletePolicy {
	return s.deletePolicy
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// createKey serialises number assignment; request numbers never start with '#'.
const createKey = "#create"

// lock enters the section for key, waiting no longer than one store timeout.
func (s *Service) lock(ctx context.Context, key string) (func(), error) {
	lockCtx, cancel := db.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	unlock, err := s.locks.Lock(lockCtx, key)
	if err != nil {
		s.logger.Warnw("request section busy", "key", key, "error", err)
		return nil, translateStoreError(key, fmt.Sprintf("request %s is busy", key), err)
	}
	return unlock, nil
}

// checkReferences is the in-transaction backstop for lookup entries retired
// between validation and commit.
func (s *Service) checkReferences(ctx context.Context, r *request.Request, fields []string) error {
	refs := make(map[lookup.Table]string)
	for _, name := range fields {
		table := lookup.Table(name)
		if !table.IsValid() {
			continue
		}
		refs[table] = r.FieldValue(name)
	}
	if len(refs) == 0 {
		return nil
	}

	missing, err := s.references.MissingReferences(ctx, refs)
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		return nil
	}
	failures := make([]apperrors.FieldError, 0, len(missing))
	for _, table := range missing {
		failures = append(failures, apperrors.FieldError{
			Field:   table.String(),
			Message: fmt.Sprintf(validation.MsgUnknownReference, table),
		})
	}
	return apperrors.NewFieldValidationError(failures)
}

func (s *Service) validate(ctx context.Context, p request.Patch, mode validation.Mode, current *request.Request) error {
	res, err := s.validator.Validate(ctx, p, mode, current)
	if err != nil {
		return apperrors.FromStoreError("failed to resolve references", err)
	}
	return res.Err()
}

// translateStoreError maps repository errors onto the error taxonomy. A
// caller cancellation is returned unchanged.
func translateStoreError(number, message string, err error) error {
	switch {
	case err == nil:
		return nil
	case apperrors.IsAppError(err):
		return err
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, request.ErrNotFound):
		return apperrors.NewNotFoundError(fmt.Sprintf("request %s not found", number))
	case errors.Is(err, request.ErrVersionConflict):
		return apperrors.NewConflictError(fmt.Sprintf("request %s was changed by someone else, reload and retry", number))
	case apperrors.IsDuplicateError(err):
		return apperrors.NewConflictError(fmt.Sprintf("request %s already exists", number))
	}
	return apperrors.FromStoreError(message, err)
}
