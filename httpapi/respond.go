package httpapi

import (
	"net/http"

	"github.com/goliatone/go-router"
	"github.com/goliatone/go-staff/pkg/types"
)

const msgInternal = "Failed to process request"

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error     string `json:"error"`
	Details   string `json:"details,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func (a *API) writeError(c router.Context, err error) error {
	status := types.HTTPStatus(err)
	body := ErrorBody{
		Error:     types.ErrorMessage(err),
		Details:   types.ErrorDetails(err),
		RequestID: RequestIDFrom(c.Context()),
	}
	if types.TextCode(err) == "" {
		// untyped errors never reach the client verbatim
		a.logger.Error("request failed", err, "request_id", body.RequestID)
		body.Error = msgInternal
		body.Details = ""
	}
	return c.JSON(status, body)
}

func writeOK(c router.Context, payload any) error {
	return c.JSON(http.StatusOK, payload)
}
