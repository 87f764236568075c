// Package handlers implements the REST request handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agentdeck/agentdeck/pkg/types"
)

// respondError maps an error kind to an HTTP status and writes the error
// body.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch types.KindOf(err) {
	case types.KindNotFound:
		status = http.StatusNotFound
	case types.KindInvalidInput:
		status = http.StatusBadRequest
	case types.KindAgentNotAvailable:
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
