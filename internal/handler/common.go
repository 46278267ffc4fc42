package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ankur-foundation/ngo-portal/internal/apperr"
	"github.com/ankur-foundation/ngo-portal/internal/repository"
)

// requestTimeout bounds every store call made by a handler.
const requestTimeout = 5 * time.Second

func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// storeErr maps repository sentinels to API errors. notFound is the message
// used for ErrNotFound and ErrReferenceNotFound; failure is the generic
// message for anything unexpected.
func storeErr(err error, notFound, failure string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, repository.ErrReferenceNotFound):
		return apperr.NotFound(notFound)
	case errors.Is(err, repository.ErrEmailExists):
		return apperr.Conflict("User already exists with this email")
	case errors.Is(err, repository.ErrConflict):
		return apperr.Conflict("A record with this name already exists")
	}
	return apperr.Internal(failure, err)
}

// bind decodes the request body, reporting malformed JSON as a 400.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return apperr.Validation("invalid request body")
	}
	return nil
}

// queryUint parses an optional unsigned query parameter; zero means absent.
func queryUint(c echo.Context, name string) (uint64, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		return 0, apperr.Validation(name + " must be a positive integer")
	}
	return n, nil
}
