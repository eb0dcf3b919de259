package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-funds-ledger/internal/app/core/domain"
)

var codeByKind = map[domain.Kind]codes.Code{
	domain.KindInvalidAmount:     codes.InvalidArgument,
	domain.KindSelfTransfer:      codes.InvalidArgument,
	domain.KindNoContactProvided: codes.InvalidArgument,
	domain.KindInvalidInput:      codes.InvalidArgument,
	domain.KindUserNotFound:      codes.NotFound,
	domain.KindDuplicateUsername: codes.AlreadyExists,
	domain.KindDuplicateEmail:    codes.AlreadyExists,
	domain.KindDuplicatePhone:    codes.AlreadyExists,
	domain.KindInsufficientFunds: codes.FailedPrecondition,
	domain.KindCeilingExceeded:   codes.FailedPrecondition,
	domain.KindStoreUnavailable:  codes.Unavailable,
	domain.KindInvalidCredential: codes.Unauthenticated,
}

// toStatus 把業務錯誤轉成 gRPC status，訊息以錯誤種類開頭
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	kind := domain.KindOf(err)
	if code, ok := codeByKind[kind]; ok {
		return status.Error(code, string(kind)+": "+err.Error())
	}
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, "internal error")
}
