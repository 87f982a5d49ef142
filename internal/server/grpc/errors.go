package grpcserver

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rzbill/devlog/internal/logerr"
)

// toStatus maps log engine error classes onto gRPC codes.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	var code codes.Code
	switch {
	case errors.Is(err, logerr.ErrDuplicate):
		code = codes.AlreadyExists
	case errors.Is(err, logerr.ErrInvalidArgument):
		code = codes.InvalidArgument
	case errors.Is(err, logerr.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, logerr.ErrFull):
		code = codes.ResourceExhausted
	case errors.Is(err, logerr.ErrUnsupported):
		code = codes.Unimplemented
	case errors.Is(err, logerr.ErrCorrupt):
		code = codes.DataLoss
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}

func invalid(msg string) error { return status.Error(codes.InvalidArgument, msg) }
