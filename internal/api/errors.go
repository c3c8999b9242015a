package api

import (
	"errors"
	"net/http"

	"quickpim/internal/domain"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

// httpStatusFromDomainError maps domain errors to HTTP status codes.
func httpStatusFromDomainError(err error) int {
	var notFound *domain.NotFoundError
	var validation *domain.ValidationError
	var credential *domain.CredentialError
	var upstream *domain.UpstreamError

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &credential):
		return http.StatusUnauthorized
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &upstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// reasonFromError returns the machine-readable reason code, if any.
func reasonFromError(err error) string {
	var validation *domain.ValidationError
	var credential *domain.CredentialError
	var upstream *domain.UpstreamError

	switch {
	case errors.As(err, &validation):
		return validation.Reason
	case errors.As(err, &credential):
		return credential.Reason
	case errors.As(err, &upstream):
		return upstream.Code
	default:
		return ""
	}
}
