// Package workflow owns the registration lifecycle: submission with contest
// code allocation, the pending -> approved/denied state machine, and the
// notifications that follow each confirmed write.
//
// Every notification is sent strictly after the store confirmed the write it
// belongs to. Notifier failures are logged and never change the result of the
// operation that triggered them.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"sortec/entity"
	"sortec/lib/sl"

	"github.com/google/uuid"
)

// Store is the record store the workflow depends on.
// Reads return nil, nil for a missing record.
type Store interface {
	CreateRegistration(ctx context.Context, reg *entity.Registration) error
	GetRegistration(ctx context.Context, id string) (*entity.Registration, error)
	GetRegistrationByCode(ctx context.Context, code string) (*entity.Registration, error)
	Registrations(ctx context.Context) iter.Seq2[*entity.Registration, error]
	// UpdateParticipant overwrites the participant fields only; false if the record is absent.
	UpdateParticipant(ctx context.Context, id string, p *entity.Participant) (bool, error)
	// SetStatus moves the record from one status to another only if it is still
	// in `from`; false if no record matched.
	SetStatus(ctx context.Context, id string, from, to entity.Status, at time.Time) (bool, error)
	DeleteRegistration(ctx context.Context, id string) (bool, error)
	CountRegistrations(ctx context.Context) (int64, error)
}

// Allocator hands out strictly increasing correlatives, atomically.
type Allocator interface {
	Next(ctx context.Context) (int64, error)
}

// Seeder is implemented by allocators that can be initialized from an
// existing record count. Seed has no effect once the counter exists.
type Seeder interface {
	Seed(ctx context.Context, floor int64) error
}

type Notifier interface {
	Send(ctx context.Context, intent entity.NotificationIntent) error
}

type Config struct {
	CodePrefix string
	AdminEmail string
	// BaseUrl is the public API root used to build approve/deny links.
	BaseUrl  string
	SiteUrl  string
	ImageUrl string
	// StoreTimeout bounds a single store write once it is detached from the caller.
	StoreTimeout time.Duration
}

type Workflow struct {
	store    Store
	alloc    Allocator
	notifier Notifier
	codes    CodeGenerator
	conf     Config
	now      func() time.Time
	log      *slog.Logger
}

func New(store Store, alloc Allocator, notifier Notifier, conf Config, log *slog.Logger) *Workflow {
	if store == nil {
		panic("registration store is nil")
	}
	if alloc == nil {
		panic("sequence allocator is nil")
	}
	if conf.StoreTimeout <= 0 {
		conf.StoreTimeout = 10 * time.Second
	}
	return &Workflow{
		store:    store,
		alloc:    alloc,
		notifier: notifier,
		codes:    NewCodeGenerator(conf.CodePrefix),
		conf:     conf,
		now:      func() time.Time { return time.Now().UTC() },
		log:      log.With(sl.Module("workflow")),
	}
}

// SeedSequence initializes the allocator from the current record count so that
// codes keep increasing over data created before the counter existed.
func (w *Workflow) SeedSequence(ctx context.Context) error {
	seeder, ok := w.alloc.(Seeder)
	if !ok {
		return nil
	}
	count, err := w.store.CountRegistrations(ctx)
	if err != nil {
		return &entity.StorageError{Op: "count", Err: err}
	}
	if err = seeder.Seed(ctx, count); err != nil {
		return &entity.AllocationError{Err: err}
	}
	w.log.With(slog.Int64("floor", count)).Debug("sequence seeded")
	return nil
}

// Submit validates the candidate, allocates its contest code and stores it as pending.
// The admin review notification is sent only after the record is stored.
func (w *Workflow) Submit(ctx context.Context, candidate *entity.Participant) (*entity.Registration, error) {
	if candidate == nil {
		return nil, fmt.Errorf("candidate is nil")
	}
	if err := candidate.Validate(); err != nil {
		return nil, err
	}

	correlative, err := w.alloc.Next(ctx)
	if err != nil {
		var aerr *entity.AllocationError
		if errors.As(err, &aerr) {
			return nil, err
		}
		return nil, &entity.AllocationError{Err: err}
	}

	code, err := w.codes.Generate(candidate.GivenNames, candidate.FamilyNames, correlative)
	if err != nil {
		return nil, err
	}

	reg := &entity.Registration{
		Id:          uuid.NewString(),
		Participant: *candidate,
		ContestCode: &code,
		Status:      entity.StatusPending,
		CreatedAt:   w.now(),
	}

	log := w.log.With(
		slog.String("id", reg.Id),
		slog.String("contest_code", code),
		sl.Secret("document_number", reg.DocumentNumber),
	)

	writeCtx, cancel := w.writeContext(ctx)
	defer cancel()
	if err = w.store.CreateRegistration(writeCtx, reg); err != nil {
		log.Error("save registration", sl.Err(err))
		return nil, &entity.StorageError{Op: "create", Err: err}
	}
	log.Info("registration submitted")

	w.notify(ctx, w.adminReviewIntent(reg))
	return reg, nil
}

func (w *Workflow) Approve(ctx context.Context, id string) (*entity.Decision, error) {
	return w.decide(ctx, id, entity.StatusApproved)
}

func (w *Workflow) Deny(ctx context.Context, id string) (*entity.Decision, error) {
	return w.decide(ctx, id, entity.StatusDenied)
}

// decide moves a pending record to target. A record that is already terminal is
// returned as stored: OutcomeAlreadyHandled for the same state, OutcomeConflict
// for the other one. Concurrent callers race on the store's status swap and
// exactly one of them observes OutcomeApplied.
func (w *Workflow) decide(ctx context.Context, id string, target entity.Status) (*entity.Decision, error) {
	log := w.log.With(
		slog.String("id", id),
		slog.String("target", string(target)),
	)

	reg, err := w.store.GetRegistration(ctx, id)
	if err != nil {
		return nil, &entity.StorageError{Op: "get", Err: err}
	}
	if reg == nil {
		return nil, notFound(id)
	}
	if reg.Status != entity.StatusPending {
		return settled(reg, target), nil
	}

	at := w.now()
	writeCtx, cancel := w.writeContext(ctx)
	defer cancel()
	swapped, err := w.store.SetStatus(writeCtx, id, entity.StatusPending, target, at)
	if err != nil {
		log.Error("set status", sl.Err(err))
		return nil, &entity.StorageError{Op: "set status", Err: err}
	}
	if !swapped {
		// someone else decided first, or the record was removed meanwhile
		current, err := w.store.GetRegistration(ctx, id)
		if err != nil {
			return nil, &entity.StorageError{Op: "get", Err: err}
		}
		if current == nil {
			return nil, notFound(id)
		}
		log.With(slog.String("status", string(current.Status))).Debug("lost decision race")
		return settled(current, target), nil
	}

	reg.Status = target
	reg.DecidedAt = &at
	log.With(slog.String("contest_code", reg.Code())).Info("registration decided")

	if target == entity.StatusApproved {
		w.notify(ctx, w.approvedIntent(reg))
	} else {
		w.notify(ctx, w.deniedIntent(reg))
	}
	return &entity.Decision{Registration: reg, Outcome: entity.OutcomeApplied}, nil
}

func settled(reg *entity.Registration, target entity.Status) *entity.Decision {
	outcome := entity.OutcomeConflict
	if reg.Status == target {
		outcome = entity.OutcomeAlreadyHandled
	}
	return &entity.Decision{Registration: reg, Outcome: outcome}
}

// Update overwrites the participant fields present in the update. Status,
// contest code, id and creation time are never touched.
func (w *Workflow) Update(ctx context.Context, id string, update *entity.ParticipantUpdate) (*entity.Registration, error) {
	if update == nil {
		return nil, fmt.Errorf("update is nil")
	}
	if err := update.Validate(); err != nil {
		return nil, err
	}

	reg, err := w.store.GetRegistration(ctx, id)
	if err != nil {
		return nil, &entity.StorageError{Op: "get", Err: err}
	}
	if reg == nil {
		return nil, notFound(id)
	}

	participant := reg.Participant
	update.Apply(&participant)

	writeCtx, cancel := w.writeContext(ctx)
	defer cancel()
	found, err := w.store.UpdateParticipant(writeCtx, id, &participant)
	if err != nil {
		w.log.With(slog.String("id", id)).Error("update registration", sl.Err(err))
		return nil, &entity.StorageError{Op: "update", Err: err}
	}
	if !found {
		return nil, notFound(id)
	}

	updated, err := w.store.GetRegistration(ctx, id)
	if err != nil {
		return nil, &entity.StorageError{Op: "get", Err: err}
	}
	if updated == nil {
		return nil, notFound(id)
	}
	w.log.With(slog.String("id", id)).Debug("registration updated")
	return updated, nil
}

// Remove deletes the record; a missing id is reported as not found.
func (w *Workflow) Remove(ctx context.Context, id string) error {
	writeCtx, cancel := w.writeContext(ctx)
	defer cancel()
	found, err := w.store.DeleteRegistration(writeCtx, id)
	if err != nil {
		return &entity.StorageError{Op: "delete", Err: err}
	}
	if !found {
		return notFound(id)
	}
	w.log.With(slog.String("id", id)).Info("registration removed")
	return nil
}

// List yields every registration in store order.
func (w *Workflow) List(ctx context.Context) iter.Seq2[*entity.Registration, error] {
	return func(yield func(*entity.Registration, error) bool) {
		for reg, err := range w.store.Registrations(ctx) {
			if err != nil {
				yield(nil, &entity.StorageError{Op: "list", Err: err})
				return
			}
			if !yield(reg, nil) {
				return
			}
		}
	}
}

// GetById returns nil, nil when the registration does not exist.
func (w *Workflow) GetById(ctx context.Context, id string) (*entity.Registration, error) {
	reg, err := w.store.GetRegistration(ctx, id)
	if err != nil {
		return nil, &entity.StorageError{Op: "get", Err: err}
	}
	return reg, nil
}

// GetByCode returns nil, nil when no registration carries the code.
func (w *Workflow) GetByCode(ctx context.Context, code string) (*entity.Registration, error) {
	reg, err := w.store.GetRegistrationByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, &entity.StorageError{Op: "get by code", Err: err}
	}
	return reg, nil
}

func (w *Workflow) Count(ctx context.Context) (int64, error) {
	count, err := w.store.CountRegistrations(ctx)
	if err != nil {
		return 0, &entity.StorageError{Op: "count", Err: err}
	}
	return count, nil
}

// writeContext detaches a store write from the caller's cancellation. A write
// the store has applied must be reported as such, otherwise the notification
// that follows it would be lost.
func (w *Workflow) writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), w.conf.StoreTimeout)
}

// notify hands the intent over and only logs a failure. The triggering write is
// already durable, so the caller's cancellation must not drop the hand-off.
func (w *Workflow) notify(ctx context.Context, intent entity.NotificationIntent) {
	if w.notifier == nil {
		return
	}
	err := w.notifier.Send(context.WithoutCancel(ctx), intent)
	if err == nil {
		return
	}
	var derr *entity.DeliveryError
	if !errors.As(err, &derr) {
		err = &entity.DeliveryError{Kind: intent.Kind, Recipient: intent.Recipient, Err: err}
	}
	w.log.With(
		slog.String("kind", string(intent.Kind)),
		slog.String("registration_id", intent.Payload.RegistrationId),
	).Warn("notification not delivered", sl.Err(err))
}

func (w *Workflow) adminReviewIntent(reg *entity.Registration) entity.NotificationIntent {
	return entity.NotificationIntent{
		Kind:      entity.KindAdminReview,
		Recipient: w.conf.AdminEmail,
		Payload: entity.NotificationPayload{
			RegistrationId:  reg.Id,
			ParticipantName: reg.FullName(),
			ContestCode:     reg.Code(),
			VoucherUrl:      reg.VoucherUrl,
			ApproveLink:     w.link("approve", reg.Id),
			DenyLink:        w.link("deny", reg.Id),
		},
	}
}

func (w *Workflow) approvedIntent(reg *entity.Registration) entity.NotificationIntent {
	return entity.NotificationIntent{
		Kind:      entity.KindApproved,
		Recipient: reg.Email,
		Payload: entity.NotificationPayload{
			RegistrationId:  reg.Id,
			ParticipantName: reg.GivenNames,
			ContestCode:     reg.Code(),
			ImageUrl:        w.conf.ImageUrl,
			SiteUrl:         w.conf.SiteUrl,
		},
	}
}

func (w *Workflow) deniedIntent(reg *entity.Registration) entity.NotificationIntent {
	return entity.NotificationIntent{
		Kind:      entity.KindDenied,
		Recipient: reg.Email,
		Payload: entity.NotificationPayload{
			RegistrationId:  reg.Id,
			ParticipantName: reg.GivenNames,
			SiteUrl:         w.conf.SiteUrl,
		},
	}
}

func (w *Workflow) link(action, id string) string {
	return fmt.Sprintf("%s/v1/registrations/%s/%s", strings.TrimSuffix(w.conf.BaseUrl, "/"), id, action)
}

func notFound(id string) error {
	return fmt.Errorf("registration %s: %w", id, entity.ErrNotFound)
}
