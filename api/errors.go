package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"property-governance-backend/governance"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var kindStatus = map[governance.Kind]int{
	governance.KindNotFound:     http.StatusNotFound,
	governance.KindUnauthorized: http.StatusUnauthorized,
	governance.KindForbidden:    http.StatusForbidden,
	governance.KindInvalidState: http.StatusConflict,
	governance.KindValidation:   http.StatusBadRequest,
	governance.KindInternal:     http.StatusInternalServerError,
}

// StatusOf maps a governance error to its HTTP status.
func StatusOf(err error) int {
	if status, ok := kindStatus[governance.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// abortWithError writes err as an ErrorResponse. Internal errors are logged
// and their details are not sent to the client.
func abortWithError(c *gin.Context, log logrus.FieldLogger, err error) {
	status := StatusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.WithFields(logrus.Fields{
			"request_id": c.GetString(requestIDKey),
			"path":       c.FullPath(),
		}).WithError(err).Error("request failed")
		msg = "internal server error"
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg, Code: governance.CodeOf(err)})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: governance.ErrValidation.Code})
}
