package handlers

import (
	"fmt"
	"net/http"

	"go-cargo-portal/internal/database"
	"go-cargo-portal/internal/models"
	"go-cargo-portal/internal/outbox"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm/clause"
)

// ListInventory shows packaging consumables with a low-stock flag.
func ListInventory(c *gin.Context) {
	var items []models.InventoryItem
	if err := database.DB.Order("sku ASC").Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch inventory"})
		return
	}

	type row struct {
		models.InventoryItem
		LowStock bool `json:"low_stock"`
	}
	out := make([]row, 0, len(items))
	for _, it := range items {
		out = append(out, row{InventoryItem: it, LowStock: it.Current <= it.Min})
	}
	c.JSON(http.StatusOK, out)
}

type RestockRequest struct {
	SKU      string `json:"sku" binding:"required"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity" binding:"required"`
	Min      int    `json:"min"`
	Max      int    `json:"max"`
}

// RestockInventory adds stock, creating the SKU on first restock.
func RestockInventory(c *gin.Context) {
	actorID := c.MustGet("userID").(uint)

	var req RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if req.Quantity <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Quantity must be greater than zero"})
		return
	}

	tx := database.DB.Begin()

	var item models.InventoryItem
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("sku = ?", req.SKU).First(&item).Error
	if err != nil {
		// First restock creates the item
		item = models.InventoryItem{
			SKU:     req.SKU,
			Name:    req.Name,
			Current: req.Quantity,
			Min:     req.Min,
			Max:     req.Max,
		}
		if err := tx.Create(&item).Error; err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create inventory item"})
			return
		}
	} else {
		item.Current += req.Quantity
		if req.Min > 0 {
			item.Min = req.Min
		}
		if req.Max > 0 {
			item.Max = req.Max
		}
		if err := tx.Save(&item).Error; err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update inventory"})
			return
		}
	}

	tx.Commit()

	audit(actorID, "inventory.restock", "inventory_item", item.SKU, fmt.Sprintf("qty=%d", req.Quantity))
	c.JSON(http.StatusOK, gin.H{"message": "Restocked", "item": item})
}

type ConsumeRequest struct {
	SKU      string `json:"sku" binding:"required"`
	Quantity int    `json:"quantity" binding:"required"`
}

// ConsumeInventory deducts consumables used while packing. The row is
// locked for the deduction so two packers cannot both take the last box.
func ConsumeInventory(c *gin.Context) {
	var req ConsumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if req.Quantity <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Quantity must be greater than zero"})
		return
	}

	tx := database.DB.Begin()

	var item models.InventoryItem
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("sku = ?", req.SKU).First(&item).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusNotFound, gin.H{"error": "SKU not found"})
		return
	}

	if item.Current < req.Quantity {
		tx.Rollback()
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Insufficient stock for %s", item.SKU)})
		return
	}

	item.Current -= req.Quantity
	if err := tx.Save(&item).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update inventory"})
		return
	}

	tx.Commit()

	// Low-stock warning rides the outbox to the ops channel
	if item.Current <= item.Min {
		_ = outbox.Enqueue(database.DB, "inventory_low", map[string]interface{}{
			"sku":     item.SKU,
			"current": item.Current,
			"min":     item.Min,
		})
	}

	c.JSON(http.StatusOK, gin.H{"message": "Consumed", "item": item})
}
