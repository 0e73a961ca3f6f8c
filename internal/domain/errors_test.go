package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

func TestUserMessage(t *testing.T) {
	require.Equal(t, "", domain.UserMessage(nil))
	require.Equal(t, "Your cart is empty!", domain.UserMessage(fmt.Errorf("assemble: %w", domain.ErrEmptyCart)))
	require.Equal(t, "Please enter delivery address", domain.UserMessage(domain.ErrMissingDeliveryAddress))
	require.Equal(t, "Error: Restaurant is closed",
		domain.UserMessage(&domain.SubmissionError{StatusCode: 400, Message: "Restaurant is closed"}))
	require.Equal(t, "Error: Failed to place order", domain.UserMessage(&domain.SubmissionError{StatusCode: 502}))
	require.Equal(t, "Error: Failed to place order", domain.UserMessage(errors.New("socket closed")))
	require.Equal(t, "Please sign in again", domain.UserMessage(fmt.Errorf("GET /bonuses/: %w", domain.ErrUnauthorized)))
}

func TestIsValidationError(t *testing.T) {
	require.True(t, domain.IsValidationError(domain.ErrEmptyCart))
	require.True(t, domain.IsValidationError(fmt.Errorf("wrap: %w", domain.ErrInvalidBonusAmount)))
	require.False(t, domain.IsValidationError(domain.ErrQuoteUnavailable))
	require.False(t, domain.IsValidationError(&domain.SubmissionError{}))
}
