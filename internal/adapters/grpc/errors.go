package grpc

import (
	"errors"

	"google.golang.org/grpc/codes"

	"github.com/barazo-forum/barazo-trust/internal/domain"
)

func mapCode(err error) (codes.Code, string, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrSelfInteraction):
		return codes.InvalidArgument, "VALIDATION_ERROR", err.Error()
	case errors.Is(err, domain.ErrForbidden):
		return codes.PermissionDenied, "FORBIDDEN", err.Error()
	case errors.Is(err, domain.ErrRateLimited), errors.Is(err, domain.ErrRecomputeCooldown):
		return codes.ResourceExhausted, "RATE_LIMITED", "too many requests"
	case errors.Is(err, domain.ErrNotFound):
		return codes.NotFound, "NOT_FOUND", "resource not found"
	default:
		return codes.Internal, "INTERNAL_ERROR", "internal error"
	}
}
