package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Anzil-km/attention-nudge/services"
	"github.com/Anzil-km/attention-nudge/utils"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

const (
	codeInvalidRole           = "invalid_role"
	codeMalformedSubscription = "malformed_subscription"
	codeInvalidBody           = "invalid_body"
	codeMissingParameters     = "missing_parameters"
	codeInvalidMessage        = "invalid_message"
	codeNotRegistered         = "not_registered"
	codePushFailed            = "push_failed"
	codeInternal              = "internal_error"
)

// writeError maps a service error onto a status code and error code.
func writeError(c *gin.Context, logger *utils.Logger, err error) {
	status, code := http.StatusInternalServerError, codeInternal
	message := err.Error()

	switch {
	case errors.Is(err, services.ErrInvalidIdentity):
		status, code = http.StatusBadRequest, codeInvalidRole
	case errors.Is(err, services.ErrMalformedSubscription):
		status, code = http.StatusBadRequest, codeMalformedSubscription
	case errors.Is(err, services.ErrMissingParameters):
		status, code = http.StatusBadRequest, codeMissingParameters
	case errors.Is(err, services.ErrInvalidMessage):
		status, code = http.StatusBadRequest, codeInvalidMessage
	case errors.Is(err, services.ErrNoSubscribers):
		status, code = http.StatusNotFound, codeNotRegistered
	case errors.Is(err, services.ErrTransportFailure):
		status, code = http.StatusInternalServerError, codePushFailed
		message = "Push failed"
	default:
		logger.Error("Request failed", "path", c.FullPath(), "error", err)
		message = "Internal server error"
	}

	_ = c.Error(err)
	c.JSON(status, ErrorResponse{Error: code, Message: message})
}

func writeInvalidBody(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   codeInvalidBody,
		Message: "Invalid JSON payload",
	})
}
