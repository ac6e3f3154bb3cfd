package handlers

import (
	"net/http"

	"go-cargo-portal/internal/auth"
	"go-cargo-portal/internal/database"
	"go-cargo-portal/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type IssueKeyRequest struct {
	Label       string `json:"label" binding:"required"`
	Permissions string `json:"permissions" binding:"required"` // e.g. "packages:write,consolidation:write"
	Live        bool   `json:"live"`
}

// IssueWarehouseKey mints an API key for an inter-system integration
// (scanners, label printers, the warehouse management system). The raw
// key appears in this response and nowhere else; only its hash is kept.
func IssueWarehouseKey(c *gin.Context) {
	actorID := c.MustGet("userID").(uint)

	var req IssueKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	generated, err := auth.GenerateWarehouseKey(req.Live)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate key"})
		return
	}

	key := models.WarehouseKey{
		KeyID:       uuid.NewString(),
		Prefix:      generated.Prefix,
		Hash:        generated.Hash,
		Label:       req.Label,
		Permissions: req.Permissions,
	}
	if err := database.DB.Create(&key).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store key"})
		return
	}

	audit(actorID, "apikey.issue", "warehouse_key", key.KeyID, req.Label)
	c.JSON(http.StatusCreated, gin.H{
		"key_id":      key.KeyID,
		"api_key":     generated.Raw, // shown once
		"prefix":      key.Prefix,
		"label":       key.Label,
		"permissions": key.Permissions,
	})
}

// ListWarehouseKeys shows issued keys by prefix. Hashes never leave the
// database.
func ListWarehouseKeys(c *gin.Context) {
	var keys []models.WarehouseKey
	if err := database.DB.Order("created_at DESC").Find(&keys).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch keys"})
		return
	}
	c.JSON(http.StatusOK, keys)
}

// RevokeWarehouseKey disables a key immediately. Revocation is permanent;
// integrations get a fresh key instead.
func RevokeWarehouseKey(c *gin.Context) {
	actorID := c.MustGet("userID").(uint)
	keyID := c.Param("key_id")

	var key models.WarehouseKey
	if err := database.DB.Where("key_id = ?", keyID).First(&key).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Key not found"})
		return
	}
	if key.Revoked {
		c.JSON(http.StatusOK, gin.H{"message": "Key already revoked"})
		return
	}

	key.Revoked = true
	if err := database.DB.Save(&key).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to revoke key"})
		return
	}

	audit(actorID, "apikey.revoke", "warehouse_key", key.KeyID, key.Label)
	c.JSON(http.StatusOK, gin.H{"message": "Key revoked", "key_id": key.KeyID})
}
