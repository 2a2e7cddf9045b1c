package orders

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/models"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/payments"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/repository"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrorKind buckets every failure an order operation can hit, so handlers
// map errors to responses without string matching.
type ErrorKind string

const (
	KindNotFound         ErrorKind = "not_found"
	KindPermissionDenied ErrorKind = "permission_denied"
	KindNetwork          ErrorKind = "network"
	KindValidation       ErrorKind = "validation"
	KindParse            ErrorKind = "parse"
	KindConflict         ErrorKind = "conflict"
	KindUnknown          ErrorKind = "unknown"
)

// OrderError carries the failed operation, the order it targeted and the
// classified kind alongside the underlying cause.
type OrderError struct {
	Op      string
	OrderID string
	Kind    ErrorKind
	Err     error
}

func (e *OrderError) Error() string {
	if e.OrderID == "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s order %s: %s: %v", e.Op, e.OrderID, e.Kind, e.Err)
}

func (e *OrderError) Unwrap() error {
	return e.Err
}

// E wraps err with operation context and a classified kind. A nil err
// returns nil so call sites can wrap unconditionally.
func E(op, orderID string, err error) error {
	if err == nil {
		return nil
	}
	var oe *OrderError
	if errors.As(err, &oe) && oe.Op == op {
		return err
	}
	return &OrderError{Op: op, OrderID: orderID, Kind: Classify(err), Err: err}
}

// KindOf extracts the classified kind, classifying on the fly for errors
// that never passed through E.
func KindOf(err error) ErrorKind {
	var oe *OrderError
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return Classify(err)
}

// Classify maps an arbitrary error onto the taxonomy. Sentinels from the
// stores come first; driver and transport errors are inspected after.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	var te *TransitionError
	if errors.As(err, &te) {
		return KindValidation
	}
	var rve *RefundValidationError
	if errors.As(err, &rve) {
		return KindValidation
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return KindValidation
	}

	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, mongo.ErrNoDocuments):
		return KindNotFound
	case errors.Is(err, repository.ErrPermissionDenied):
		return KindPermissionDenied
	case errors.Is(err, repository.ErrConflict):
		return KindConflict
	case errors.Is(err, repository.ErrInvalid):
		return KindValidation
	case errors.Is(err, payments.ErrUnsupportedMethod):
		return KindValidation
	case errors.Is(err, repository.ErrParse):
		return KindParse
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return KindNetwork
	case errors.Is(err, repository.ErrUnavailable):
		return KindNetwork
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		if cmdErr.Code == 13 {
			return KindPermissionDenied
		}
		return KindUnknown
	}
	if mongo.IsTimeout(err) {
		return KindNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetwork
	}

	return KindUnknown
}

// TransitionError reports an illegal status move, including where the order
// could have gone instead.
type TransitionError struct {
	OrderID string
	From    models.OrderStatus
	To      models.OrderStatus
}

func (e *TransitionError) Error() string {
	allowed := models.AllowedTransitions(e.From)
	if len(allowed) == 0 {
		return fmt.Sprintf("order %s: status %s is terminal, cannot move to %s", e.OrderID, e.From, e.To)
	}
	names := make([]string, len(allowed))
	for i, status := range allowed {
		names[i] = string(status)
	}
	return fmt.Sprintf("order %s: cannot move from %s to %s (allowed: %s)",
		e.OrderID, e.From, e.To, strings.Join(names, ", "))
}

// RefundValidationError rejects a refund before anything reaches a payment
// provider.
type RefundValidationError struct {
	OrderID string
	Reason  string
}

func (e *RefundValidationError) Error() string {
	return fmt.Sprintf("refund for order %s rejected: %s", e.OrderID, e.Reason)
}

// ValidationError rejects malformed caller input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}
