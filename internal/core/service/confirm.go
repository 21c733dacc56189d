package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/99minutos/taskboard/internal/core/domain"
)

// Confirmation outcomes reported to the MutationObserver.
const (
	outcomeAcked      = "acked"
	outcomeReconciled = "reconciled"
	outcomeFailed     = "failed"
)

// A write is confirmed when the store acknowledged it, or when a re-read by
// key shows the intended state after an ambiguous acknowledgment.

type rereadFunc[T any] func(ctx context.Context) (*T, error)

// confirmInsert resolves the result of an Insert of want.
func confirmInsert[T any](ctx context.Context, d Deps, kind domain.EntityKind, want *T, err error, reread rereadFunc[T], same func(*T) bool) (*T, error) {
	if err == nil {
		d.Observer.Confirmed(kind, domain.ActionCreate, outcomeAcked)
		return want, nil
	}
	if !errors.Is(err, domain.ErrPersistenceAmbiguous) {
		return nil, err
	}
	return reconcile(ctx, d, kind, domain.ActionCreate, err, reread, same)
}

// confirmUpdate resolves the result of an UpdateReturning call. A nil
// document with a nil error is a missing acknowledgment.
func confirmUpdate[T any](ctx context.Context, d Deps, kind domain.EntityKind, got *T, err error, reread rereadFunc[T], applied func(*T) bool) (*T, error) {
	switch {
	case err == nil && got != nil && applied(got):
		d.Observer.Confirmed(kind, domain.ActionUpdate, outcomeAcked)
		return got, nil
	case err != nil && !errors.Is(err, domain.ErrPersistenceAmbiguous):
		return nil, err
	}
	if err == nil {
		err = domain.ErrPersistenceAmbiguous
	}
	return reconcile(ctx, d, kind, domain.ActionUpdate, err, reread, applied)
}

// confirmDelete resolves the result of a Delete. Zero removed records or an
// ambiguous error is confirmed by the record no longer being found.
func confirmDelete[T any](ctx context.Context, d Deps, kind domain.EntityKind, n int64, err error, reread rereadFunc[T]) error {
	switch {
	case err == nil && n > 0:
		d.Observer.Confirmed(kind, domain.ActionDelete, outcomeAcked)
		return nil
	case err != nil && !errors.Is(err, domain.ErrPersistenceAmbiguous):
		return err
	}

	_, rerr := reread(ctx)
	if errors.Is(rerr, domain.ErrNotFound) {
		d.Log.Warn().Str("entity", string(kind)).Msg("delete acknowledgment missing, confirmed by re-read")
		d.Observer.Confirmed(kind, domain.ActionDelete, outcomeReconciled)
		return nil
	}
	d.Observer.Confirmed(kind, domain.ActionDelete, outcomeFailed)
	if rerr != nil {
		return fmt.Errorf("%w: re-read: %v", domain.ErrPersistenceFailed, rerr)
	}
	return fmt.Errorf("%w: record still present", domain.ErrPersistenceFailed)
}

func reconcile[T any](ctx context.Context, d Deps, kind domain.EntityKind, action domain.Action, cause error, reread rereadFunc[T], ok func(*T) bool) (*T, error) {
	got, err := reread(ctx)
	if err == nil && got != nil && ok(got) {
		d.Log.Warn().Err(cause).Str("entity", string(kind)).Str("action", string(action)).
			Msg("write acknowledgment missing, confirmed by re-read")
		d.Observer.Confirmed(kind, action, outcomeReconciled)
		return got, nil
	}

	d.Observer.Confirmed(kind, action, outcomeFailed)
	d.Log.Error().Err(cause).AnErr("reread_err", err).Str("entity", string(kind)).Str("action", string(action)).
		Msg("write could not be confirmed")
	if err != nil {
		return nil, fmt.Errorf("%w: re-read: %v", domain.ErrPersistenceFailed, err)
	}
	return nil, fmt.Errorf("%w: change not visible", domain.ErrPersistenceFailed)
}
