package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/teachbridge/backend/internal/apperr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondServiceError maps a service error to the HTTP boundary using
// its kind.
func RespondServiceError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	RespondError(c, apperr.HTTPStatus(kind), string(kind), err)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
