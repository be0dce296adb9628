package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"redcode-api/internal/repository"
	"redcode-api/internal/service"
	"redcode-api/internal/thumbnail"
	"redcode-api/pkg/apierror"
)

const maxBodyBytes = 4 << 20

var errSweeperDisabled = apierror.ServiceUnavailable("Liveness sweeper is not running")

// toAPIError maps service and store errors onto HTTP errors.
func toAPIError(err error) *apierror.Error {
	var apiErr *apierror.Error
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, service.ErrMalformedReport):
		return apierror.BadRequest("Missing username or data").WithCause(err)
	case errors.Is(err, service.ErrBotNotFound):
		return apierror.NotFound("Bot not found in database").WithCause(err)
	case errors.Is(err, service.ErrInvalidCredentials):
		return apierror.Unauthorized("Invalid username or password").WithCause(err)
	case errors.Is(err, service.ErrInvalidInput):
		return apierror.BadRequest(err.Error()).WithCause(err)
	case errors.Is(err, repository.ErrUserExists):
		return apierror.Conflict("Username already exists").WithCause(err)
	case errors.Is(err, repository.ErrNotFound):
		return apierror.NotFound("").WithCause(err)
	case errors.Is(err, thumbnail.ErrLookupFailed):
		return apierror.BadGateway("Failed to fetch thumbnail").WithCause(err)
	}
	return apierror.InternalError("").WithCause(err)
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		return apierror.BadRequest("invalid request body").WithCause(err)
	}
	return nil
}
