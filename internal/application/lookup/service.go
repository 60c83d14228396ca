package lookup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kreltrack/internal/application/permission"
	"kreltrack/internal/domain/audit"
	"kreltrack/internal/domain/lookup"
	pvo "kreltrack/internal/domain/permission/value_objects"
	"kreltrack/internal/domain/shared/events"
	"kreltrack/internal/domain/user"
	"kreltrack/internal/shared/db"
	apperrors "kreltrack/internal/shared/errors"
	"kreltrack/internal/shared/logger"
)

// TxRunner runs fn in one store transaction.
type TxRunner interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Invalidator drops cached copies of a table.
type Invalidator interface {
	Invalidate(table lookup.Table)
}

// Service runs the administrative edits of the lookup tables. Every edit
// commits with its audit entry, then invalidates the cache and publishes
// lookup-changed or equipment-changed.
type Service struct {
	repo         lookup.Repository
	cache        Invalidator
	tx           TxRunner
	audit        audit.Recorder
	authz        permission.Authorizer
	publisher    events.Publisher
	storeTimeout time.Duration
	logger       logger.Interface
}

func NewService(
	repo lookup.Repository,
	cache Invalidator,
	tx TxRunner,
	auditRecorder audit.Recorder,
	authz permission.Authorizer,
	publisher events.Publisher,
	storeTimeout time.Duration,
	log logger.Interface,
) *Service {
	return &Service{
		repo:         repo,
		cache:        cache,
		tx:           tx,
		audit:        auditRecorder,
		authz:        authz,
		publisher:    publisher,
		storeTimeout: storeTimeout,
		logger:       log.Named("lookup.admin"),
	}
}

func (s *Service) AddEntry(ctx context.Context, actor user.Actor, table lookup.Table, code, label string, sortKey int) error {
	if table == lookup.TableEquipment {
		return apperrors.NewValidationError("equipment is added with its control number, name and factory")
	}
	entry, err := lookup.NewEntry(table, code, label, sortKey)
	if err != nil {
		return apperrors.NewValidationError(err.Error())
	}

	return s.write(ctx, actor, table, events.KindLookupChanged, audit.Entry{
		Entity:    audit.EntityLookup,
		EntityKey: table.String() + "/" + entry.Code,
		Action:    audit.ActionCreate,
		Details:   map[string]interface{}{"label": entry.Label, "sort_key": entry.SortKey},
	}, func(ctx context.Context) error {
		return s.repo.CreateEntry(ctx, entry)
	})
}

func (s *Service) RenameEntry(ctx context.Context, actor user.Actor, table lookup.Table, code, label string) error {
	if label == "" {
		return apperrors.NewValidationError("label is required")
	}
	return s.modifyEntry(ctx, actor, table, code, map[string]interface{}{"label": label}, func(e *lookup.Entry) {
		e.Label = label
	})
}

// SetEntryActive retires or restores an entry. Retired entries still resolve
// for display but are refused as new references.
func (s *Service) SetEntryActive(ctx context.Context, actor user.Actor, table lookup.Table, code string, active bool) error {
	return s.modifyEntry(ctx, actor, table, code, map[string]interface{}{"active": active}, func(e *lookup.Entry) {
		e.Active = active
	})
}

func (s *Service) SetEntrySortKey(ctx context.Context, actor user.Actor, table lookup.Table, code string, sortKey int) error {
	return s.modifyEntry(ctx, actor, table, code, map[string]interface{}{"sort_key": sortKey}, func(e *lookup.Entry) {
		e.SortKey = sortKey
	})
}

func (s *Service) modifyEntry(ctx context.Context, actor user.Actor, table lookup.Table, code string, details map[string]interface{}, mutate func(*lookup.Entry)) error {
	if table == lookup.TableEquipment {
		return apperrors.NewValidationError("equipment is edited through the equipment operations")
	}
	if !table.IsValid() {
		return apperrors.NewValidationError(fmt.Sprintf("unknown lookup table: %s", table))
	}

	return s.write(ctx, actor, table, events.KindLookupChanged, audit.Entry{
		Entity:    audit.EntityLookup,
		EntityKey: table.String() + "/" + code,
		Action:    audit.ActionUpdate,
		Details:   details,
	}, func(ctx context.Context) error {
		entry, err := s.repo.GetEntry(ctx, table, code)
		if err != nil {
			return err
		}
		mutate(entry)
		return s.repo.UpdateEntry(ctx, *entry)
	})
}

func (s *Service) AddEquipment(ctx context.Context, actor user.Actor, e lookup.Equipment) error {
	eq, err := normalizeEquipment(e)
	if err != nil {
		return err
	}
	eq.Active = true
	return s.write(ctx, actor, lookup.TableEquipment, events.KindEquipmentChanged, audit.Entry{
		Entity:    audit.EntityEquipment,
		EntityKey: eq.ControlNo,
		Action:    audit.ActionCreate,
		Details:   equipmentDetails(eq),
	}, func(ctx context.Context) error {
		return s.repo.CreateEquipment(ctx, eq)
	})
}

func (s *Service) UpdateEquipment(ctx context.Context, actor user.Actor, e lookup.Equipment) error {
	eq, err := normalizeEquipment(e)
	if err != nil {
		return err
	}
	return s.write(ctx, actor, lookup.TableEquipment, events.KindEquipmentChanged, audit.Entry{
		Entity:    audit.EntityEquipment,
		EntityKey: eq.ControlNo,
		Action:    audit.ActionUpdate,
		Details:   equipmentDetails(eq),
	}, func(ctx context.Context) error {
		return s.repo.UpdateEquipment(ctx, eq)
	})
}

// DeleteEquipment refuses equipment that requests still point at; retire it
// with an update setting Active=false instead.
func (s *Service) DeleteEquipment(ctx context.Context, actor user.Actor, controlNo string) error {
	return s.write(ctx, actor, lookup.TableEquipment, events.KindEquipmentChanged, audit.Entry{
		Entity:    audit.EntityEquipment,
		EntityKey: controlNo,
		Action:    audit.ActionDelete,
	}, func(ctx context.Context) error {
		return s.repo.DeleteEquipment(ctx, controlNo)
	})
}

// ListEquipment returns the full equipment records, optionally for one factory.
func (s *Service) ListEquipment(ctx context.Context, factory string) ([]lookup.Equipment, error) {
	ctx, cancel := db.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	list, err := s.repo.ListEquipment(ctx, factory)
	if err != nil {
		return nil, apperrors.FromStoreError("failed to list equipment", err)
	}
	return list, nil
}

func (s *Service) write(ctx context.Context, actor user.Actor, table lookup.Table, kind events.Kind, entry audit.Entry, fn func(ctx context.Context) error) error {
	if err := s.authz.Authorize(ctx, actor, pvo.ResourceLookup, pvo.ActionWrite); err != nil {
		return err
	}

	entry.Actor = actor.Username
	entry.At = time.Now().UTC()

	storeCtx, cancel := db.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	err := s.tx.RunInTransaction(storeCtx, func(txCtx context.Context) error {
		if err := fn(txCtx); err != nil {
			return err
		}
		return s.audit.Record(txCtx, entry)
	})
	if err != nil {
		s.logger.Warnw("lookup edit failed", "table", table, "key", entry.EntityKey, "action", entry.Action, "error", err)
		return translateLookupError(entry.EntityKey, err)
	}

	s.cache.Invalidate(table)
	subject := table.String()
	if kind == events.KindEquipmentChanged {
		subject = entry.EntityKey
	}
	s.publisher.Publish(events.New(kind, subject))

	s.logger.Infow("lookup edited", "table", table, "key", entry.EntityKey, "action", entry.Action, "user", actor.Username)
	return nil
}

func translateLookupError(key string, err error) error {
	switch {
	case errors.Is(err, lookup.ErrEntryExists):
		return apperrors.NewConflictError(fmt.Sprintf("%s already exists", key))
	case errors.Is(err, lookup.ErrEntryNotFound):
		return apperrors.NewNotFoundError(fmt.Sprintf("%s not found", key))
	case errors.Is(err, lookup.ErrEquipmentInUse):
		return apperrors.NewConflictError(fmt.Sprintf("%s is still referenced by requests", key))
	default:
		return apperrors.FromStoreError("failed to save lookup change", err)
	}
}

func normalizeEquipment(e lookup.Equipment) (lookup.Equipment, error) {
	eq, err := lookup.NewEquipment(e.ControlNo, e.Name, e.Factory)
	if err != nil {
		return lookup.Equipment{}, apperrors.NewValidationError(err.Error())
	}
	eq.Spec = e.Spec
	eq.Recipes = e.Recipes
	eq.Remark = e.Remark
	eq.Active = e.Active
	return eq, nil
}

func equipmentDetails(e lookup.Equipment) map[string]interface{} {
	return map[string]interface{}{
		"name":    e.Name,
		"factory": e.Factory,
		"active":  e.Active,
	}
}
