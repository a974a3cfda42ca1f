package marketplace

import "github.com/goliatone/go-errors"

var (
	ErrListingNotFound = errors.New("listing not found", errors.CategoryNotFound).
				WithTextCode("NOT_FOUND").
				WithCode(errors.CodeNotFound)

	ErrOrderNotFound = errors.New("order not found", errors.CategoryNotFound).
				WithTextCode("NOT_FOUND").
				WithCode(errors.CodeNotFound)

	ErrListingInactive = errors.New("listing is not accepting orders", errors.CategoryConflict).
				WithTextCode("CONFLICT").
				WithCode(errors.CodeConflict)

	ErrOrderClosed = errors.New("order is already closed", errors.CategoryConflict).
			WithTextCode("CONFLICT").
			WithCode(errors.CodeConflict)

	ErrNotOwner = errors.New("not the owner of this resource", errors.CategoryAuthz).
			WithTextCode("INSUFFICIENT_PERMISSIONS").
			WithCode(errors.CodeForbidden)
)
