package middleware

import (
	"net/http"
	"time"

	"go-cargo-portal/internal/auth"
	"go-cargo-portal/internal/database"
	"go-cargo-portal/internal/logger"
	"go-cargo-portal/internal/models"

	"github.com/gin-gonic/gin"
)

// extractAPIKey pulls the raw key out of the request. The warehouse
// integrations send it in x-warehouse-key, x-api-key, or as ?id= for
// legacy label printers that can't set headers.
func extractAPIKey(c *gin.Context) string {
	if k := c.GetHeader("x-warehouse-key"); k != "" {
		return k
	}
	if k := c.GetHeader("x-api-key"); k != "" {
		return k
	}
	return c.Query("id")
}

// RequireAPIKey authenticates inter-system warehouse calls. The key must
// exist (by hash), not be revoked, and carry the given permission scope.
// On success the key's display prefix is stored in the context for rate
// limiting.
func RequireAPIKey(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := extractAPIKey(c)
		if raw == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "API key is required"})
			c.Abort()
			return
		}
		if !auth.ValidKeyFormat(raw) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			c.Abort()
			return
		}

		var key models.WarehouseKey
		if err := database.DB.Where("hash = ?", auth.HashKey(raw)).First(&key).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			c.Abort()
			return
		}
		if key.Revoked {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "API key has been revoked"})
			c.Abort()
			return
		}
		if !auth.HasPermission(key.Permissions, permission) {
			c.JSON(http.StatusForbidden, gin.H{"error": "API key lacks permission: " + permission})
			c.Abort()
			return
		}

		// Best-effort usage stamp; never blocks the request
		now := time.Now()
		if err := database.DB.Model(&models.WarehouseKey{}).
			Where("id = ?", key.ID).
			Update("last_used_at", now).Error; err != nil {
			logger.L.Warnw("failed to stamp api key usage", "key_id", key.KeyID, "err", err)
		}

		c.Set("apiKeyPrefix", key.Prefix)
		c.Set("apiKeyID", key.KeyID)
		c.Next()
	}
}
