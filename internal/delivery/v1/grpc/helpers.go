package grpc

import (
	"errors"

	"github.com/DRSN-tech/product-matcher/pkg/e"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func GRPCErrorResponse(err error) error {
	switch {
	case errors.Is(err, e.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, e.ErrNotFound):
		return status.Error(codes.NotFound, e.ErrNotFound.Error())
	case errors.Is(err, e.ErrDuplicateArticle):
		return status.Error(codes.AlreadyExists, e.ErrDuplicateArticle.Error())
	case errors.Is(err, e.ErrDegenerateVector), errors.Is(err, e.ErrDimensionMismatch):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, e.ErrStoreUnavailable), errors.Is(err, e.ErrEmbeddingFailed):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, e.ErrInternalServerError.Error())
	}
}
