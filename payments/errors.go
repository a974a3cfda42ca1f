package payments

import "github.com/goliatone/go-errors"

var (
	ErrPaymentNotFound = errors.New("payment not found", errors.CategoryNotFound).
				WithTextCode("NOT_FOUND").
				WithCode(errors.CodeNotFound)

	ErrNoPayoutAccount = errors.New("no payout account on file", errors.CategoryNotFound).
				WithTextCode("NOT_FOUND").
				WithCode(errors.CodeNotFound)

	ErrInsufficientBalance = errors.New("insufficient balance for withdrawal", errors.CategoryConflict).
				WithTextCode("CONFLICT").
				WithCode(errors.CodeConflict)

	ErrInvalidPhone = errors.New("invalid phone number", errors.CategoryValidation).
			WithTextCode("VALIDATION_ERROR").
			WithCode(errors.CodeBadRequest)

	ErrGatewayRejected = errors.New("payment gateway rejected the request", errors.CategoryOperation).
				WithTextCode("GATEWAY_REJECTED").
				WithCode(errors.CodeInternal)
)
