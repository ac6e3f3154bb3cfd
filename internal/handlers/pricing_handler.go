package handlers

import (
	"errors"
	"net/http"
	"time"

	"go-cargo-portal/internal/database"
	"go-cargo-portal/internal/lifecycle"
	"go-cargo-portal/internal/models"
	"go-cargo-portal/internal/outbox"
	"go-cargo-portal/internal/pricing"

	"github.com/gin-gonic/gin"
)

// storedRules loads pricing rules in primary-key order so the
// first-created rule wins when bands overlap. Inactive rules are loaded
// too; ComputeRate skips them.
func storedRules() ([]pricing.Rule, error) {
	var rows []models.PricingRule
	if err := database.DB.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	rules := make([]pricing.Rule, 0, len(rows))
	for _, r := range rows {
		rules = append(rules, pricing.Rule{
			ID:          r.ID,
			Origin:      r.Origin,
			Destination: r.Destination,
			WeightMin:   r.WeightMin,
			WeightMax:   r.WeightMax,
			BaseRate:    r.BaseRate,
			PerKgRate:   r.PerKgRate,
			Currency:    r.Currency,
			Active:      r.Active,
		})
	}
	return rules, nil
}

type QuoteRequest struct {
	Origin        string  `json:"origin" binding:"required"`
	Destination   string  `json:"destination" binding:"required"`
	WeightKg      float64 `json:"weight_kg" binding:"required"`
	DeclaredValue float64 `json:"declared_value"`
	ServiceMode   string  `json:"service_mode"`
	Express       bool    `json:"express"`
	Fragile       bool    `json:"fragile"`
	Hazardous     bool    `json:"hazardous"`
	WithInsurance bool    `json:"with_insurance"`
}

// QuoteShipment prices a prospective shipment: banded lane rate, optional
// insurance premium, and a delivery estimate.
func QuoteShipment(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	mode := req.ServiceMode
	if mode == "" {
		mode = "air"
	}

	rules, err := storedRules()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load pricing rules"})
		return
	}

	quote, err := pricing.ComputeRate(rules, req.Origin, req.Destination, req.WeightKg)
	if err != nil {
		if errors.Is(err, pricing.ErrNoMatchingRule) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No rate available for this lane and weight"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute rate"})
		return
	}

	eta := pricing.Estimate(mode, req.Origin, req.Destination, req.Express, time.Now())

	resp := gin.H{
		"rate":     quote,
		"eta":      eta,
		"total":    quote.Rate,
		"currency": quote.Currency,
	}
	if req.WithInsurance {
		premium := pricing.ComputeInsurance(req.DeclaredValue, mode, req.Fragile, req.Hazardous)
		resp["insurance"] = premium
		resp["total"] = quote.Rate + premium
	}
	c.JSON(http.StatusOK, resp)
}

// --- ADMIN: PRICING RULES ---

func ListPricingRules(c *gin.Context) {
	var rules []models.PricingRule
	if err := database.DB.Order("id ASC").Find(&rules).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch pricing rules"})
		return
	}
	c.JSON(http.StatusOK, rules)
}

type PricingRuleRequest struct {
	Origin      string  `json:"origin" binding:"required"`
	Destination string  `json:"destination" binding:"required"`
	WeightMin   float64 `json:"weight_min"`
	WeightMax   float64 `json:"weight_max" binding:"required"`
	BaseRate    float64 `json:"base_rate"`
	PerKgRate   float64 `json:"per_kg_rate"`
	Currency    string  `json:"currency"`
}

func CreatePricingRule(c *gin.Context) {
	actorID := c.MustGet("userID").(uint)

	var req PricingRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if req.WeightMax <= req.WeightMin {
		c.JSON(http.StatusBadRequest, gin.H{"error": "weight_max must be greater than weight_min"})
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	rule := models.PricingRule{
		Origin:      req.Origin,
		Destination: req.Destination,
		WeightMin:   req.WeightMin,
		WeightMax:   req.WeightMax,
		BaseRate:    req.BaseRate,
		PerKgRate:   req.PerKgRate,
		Currency:    currency,
		Active:      true,
	}
	if err := database.DB.Create(&rule).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create pricing rule"})
		return
	}

	audit(actorID, "pricing.rule_create", "pricing_rule", rule.Origin+"->"+rule.Destination, "")
	c.JSON(http.StatusCreated, rule)
}

// SetPricingRuleActive enables or disables a rule without deleting it,
// so past quotes can still be explained.
func SetPricingRuleActive(c *gin.Context) {
	actorID := c.MustGet("userID").(uint)
	id := c.Param("id")

	var body struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	var rule models.PricingRule
	if err := database.DB.First(&rule, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Pricing rule not found"})
		return
	}

	rule.Active = *body.Active
	if err := database.DB.Save(&rule).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update pricing rule"})
		return
	}

	audit(actorID, "pricing.rule_toggle", "pricing_rule", rule.Origin+"->"+rule.Destination, "")
	c.JSON(http.StatusOK, rule)
}

// --- WAREHOUSE: CONSOLIDATION ---

type ConsolidationRequest struct {
	TrackingNumbers   []string `json:"tracking_numbers" binding:"required,min=2"`
	ServiceMode       string   `json:"service_mode" binding:"required"`
	ConsolidationType string   `json:"consolidation_type"` // "fcl" or "lcl" for ocean
	MaxWeightKg       float64  `json:"max_weight_kg"`
	MaxVolumeM3       float64  `json:"max_volume_m3"`
}

// loadSpecs resolves tracking numbers into consolidation inputs. Every
// number must exist and not be soft-deleted.
func loadSpecs(trackingNumbers []string) ([]pricing.PackageSpec, string, error) {
	specs := make([]pricing.PackageSpec, 0, len(trackingNumbers))
	for _, tn := range trackingNumbers {
		var pkg models.Package
		err := database.DB.Where("tracking_number = ? AND status <> ?", tn, lifecycle.StatusDeleted).
			First(&pkg).Error
		if err != nil {
			return nil, tn, err
		}
		specs = append(specs, pricing.PackageSpec{
			TrackingNumber: pkg.TrackingNumber,
			CustomerID:     pkg.UserID,
			WeightKg:       pkg.WeightKg,
			DeclaredValue:  pkg.DeclaredValue,
			LengthCm:       pkg.LengthCm,
			WidthCm:        pkg.WidthCm,
			HeightCm:       pkg.HeightCm,
		})
	}
	return specs, "", nil
}

// CheckConsolidation previews whether packages can ship together and
// what it would cost. Read-only.
func CheckConsolidation(c *gin.Context) {
	var req ConsolidationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	specs, missing, err := loadSpecs(req.TrackingNumbers)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Package not found: " + missing})
		return
	}

	check := pricing.CanConsolidate(specs, req.MaxWeightKg, req.MaxVolumeM3)
	if !check.OK {
		c.JSON(http.StatusOK, gin.H{"check": check})
		return
	}

	priced, err := pricing.Consolidate(specs, req.ServiceMode, req.ConsolidationType, time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown service mode: " + req.ServiceMode})
		return
	}

	c.JSON(http.StatusOK, gin.H{"check": check, "consolidation": priced})
}

// ExecuteConsolidation groups the packages for real: prices the shipment
// and moves every member to ready_to_ship with a history entry.
func ExecuteConsolidation(c *gin.Context) {
	var req ConsolidationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	specs, missing, err := loadSpecs(req.TrackingNumbers)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Package not found: " + missing})
		return
	}

	check := pricing.CanConsolidate(specs, req.MaxWeightKg, req.MaxVolumeM3)
	if !check.OK {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": check.Reason})
		return
	}

	priced, err := pricing.Consolidate(specs, req.ServiceMode, req.ConsolidationType, time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown service mode: " + req.ServiceMode})
		return
	}

	for _, tn := range req.TrackingNumbers {
		if _, err := packages.UpdateStatus(tn, lifecycle.StatusReadyToShip, "consolidated shipment"); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update package " + tn})
			return
		}
	}

	_ = outbox.Enqueue(database.DB, "consolidation_created", map[string]interface{}{
		"tracking_numbers": req.TrackingNumbers,
		"service_mode":     req.ServiceMode,
		"cost":             priced.Cost,
		"currency":         priced.Currency,
	})

	c.JSON(http.StatusOK, gin.H{
		"message":       "Consolidation created",
		"consolidation": priced,
	})
}
