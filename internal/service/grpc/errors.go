package grpcsvc

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

// toStatus переводит доменную ошибку в gRPC-статус. Текст статуса —
// сообщение для пользователя; неожиданные ошибки пишутся в лог целиком.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	msg := domain.UserMessage(err)
	var subErr *domain.SubmissionError

	switch {
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidPrice),
		domain.IsValidationError(err):
		return status.Error(codes.InvalidArgument, msg)
	case errors.Is(err, domain.ErrItemUnavailable),
		errors.Is(err, domain.ErrVariationNotFound),
		errors.Is(err, domain.ErrNotDeliverable):
		return status.Error(codes.FailedPrecondition, msg)
	case errors.Is(err, domain.ErrSubmissionInFlight):
		return status.Error(codes.Aborted, msg)
	case errors.Is(err, domain.ErrAlreadySubmitted):
		return status.Error(codes.AlreadyExists, msg)
	case errors.Is(err, domain.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, msg)
	case errors.Is(err, domain.ErrQuoteDiscarded),
		errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.As(err, &subErr):
		if subErr.StatusCode == 0 {
			return status.Error(codes.Unavailable, msg)
		}
		return status.Error(codes.FailedPrecondition, msg)
	default:
		log.WithField("component", "grpc-cart-service").WithError(err).Error("unexpected error")
		return status.Error(codes.Internal, msg)
	}
}
