package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"

	"github.com/99minutos/taskboard/internal/core/domain"
)

// unreachable reports errors raised before the server could answer.
func unreachable(err error) bool {
	var sel topology.ServerSelectionError
	return errors.As(err, &sel) || errors.Is(err, mongo.ErrClientDisconnected)
}

// readErr maps a driver error from a read onto the domain taxonomy.
func readErr(op string, err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	case unreachable(err), mongo.IsTimeout(err), mongo.IsNetworkError(err):
		return fmt.Errorf("%s: %w: %v", op, domain.ErrUpstreamUnavailable, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// writeErr maps a driver error from a write. A write that failed before
// reaching a server is unavailable; one that may have reached it without an
// answer coming back is ambiguous.
func writeErr(op string, err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", op, domain.ErrConflict)
	case unreachable(err):
		return fmt.Errorf("%s: %w: %v", op, domain.ErrUpstreamUnavailable, err)
	case mongo.IsTimeout(err), mongo.IsNetworkError(err), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w: %v", op, domain.ErrPersistenceAmbiguous, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
