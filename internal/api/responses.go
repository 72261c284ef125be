package api

import (
	"errors"
	"net/http"

	"dbmask/internal/anonymize"
	"dbmask/internal/database"
	"dbmask/internal/session"

	"github.com/gin-gonic/gin"
)

var errTableNotFound = errors.New("table not found")

// statusFor maps request-level failures to 400 and everything else to 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, database.ErrMissingParameters),
		errors.Is(err, database.ErrUnsupportedDialect),
		errors.Is(err, session.ErrNoConnection),
		errors.Is(err, anonymize.ErrUnknownStrategy),
		errors.Is(err, errTableNotFound):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	msg := err.Error()
	if errors.Is(err, database.ErrMissingParameters) {
		msg = "Missing required connection parameters"
	}
	if errors.Is(err, session.ErrNoConnection) {
		msg = "No active database connection"
	}
	c.Error(err)
	c.AbortWithStatusJSON(statusFor(err), gin.H{"error": msg})
}

func badRequest(c *gin.Context, err error) {
	c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
