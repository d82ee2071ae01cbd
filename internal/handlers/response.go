package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/koladetyk/tabithaAI-backend-sub000/internal/apierr"
)

// Every response carries the same envelope so clients never branch on shape.
type Envelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Data    any      `json:"data,omitempty"`
	Error   *APIFail `json:"error,omitempty"`
}

type APIFail struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func RespondOK(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

func RespondCreated(c *gin.Context, message string, data any) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Message: message, Data: data})
}

// RespondError translates a service error into the envelope. Unclassified
// errors surface as a 500 with their message; stack traces stay server-side.
func RespondError(c *gin.Context, err error) {
	status := apierr.StatusOf(err)
	msg := "unknown error"
	var apiErr *apierr.Error
	if errors.As(err, &apiErr) {
		msg = apiErr.Error()
	} else if err != nil {
		msg = err.Error()
	}
	c.JSON(status, Envelope{
		Success: false,
		Message: msg,
		Error:   &APIFail{Message: msg, Code: apierr.CodeOf(err)},
	})
}
