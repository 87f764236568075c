package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agentdeck/agentdeck/internal/crypto"
	"github.com/agentdeck/agentdeck/internal/store"
)

// StorageHandler handles export, import, reset, and stats requests.
type StorageHandler struct {
	store  *store.Store
	sealer *crypto.Sealer
}

// NewStorageHandler creates a new StorageHandler.
func NewStorageHandler(st *store.Store, sealer *crypto.Sealer) *StorageHandler {
	return &StorageHandler{store: st, sealer: sealer}
}

// Stats returns storage statistics.
func (h *StorageHandler) Stats(c *gin.Context) {
	stats, err := h.store.GetStats()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Export returns the full store state as JSON. With ?sealed=true the
// snapshot is encrypted to the daemon's age identity.
func (h *StorageHandler) Export(c *gin.Context) {
	data, err := h.store.ExportAll()
	if err != nil {
		respondError(c, err)
		return
	}

	if c.Query("sealed") == "true" {
		sealed, err := h.sealer.Seal(data)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/octet-stream", sealed)
		return
	}

	c.Data(http.StatusOK, "application/json", data)
}

// Import replaces the full store state with the posted snapshot. Sealed
// snapshots are detected by their header and unsealed first.
func (h *StorageHandler) Import(c *gin.Context) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if crypto.IsSealed(data) {
		data, err = h.sealer.Unseal(data)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	if err := h.store.ImportAll(data); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "snapshot imported"})
}

// Reset clears the entire store.
func (h *StorageHandler) Reset(c *gin.Context) {
	if err := h.store.Reset(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "storage reset"})
}
