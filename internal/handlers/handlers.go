package handlers

import (
	"go-cargo-portal/internal/billing"
	"go-cargo-portal/internal/config"
	"go-cargo-portal/internal/database"
	"go-cargo-portal/internal/lifecycle"
	"go-cargo-portal/internal/logger"
	"go-cargo-portal/internal/models"
	"go-cargo-portal/internal/payment"
)

// Package-level dependencies, set once from main before routes are
// registered. Handlers are plain functions, so shared state lives here
// next to the global database.DB.
var (
	cfg       *config.Config
	reconcile *billing.Reconciler
	packages  *lifecycle.Manager
	stripeGW  *payment.StripeGateway
	paypalGW  *payment.PayPalGateway
)

// Init wires the handler package. stripe/paypal may be nil when the
// gateway is not configured; the affected endpoints return 503.
func Init(c *config.Config, r *billing.Reconciler, m *lifecycle.Manager, sg *payment.StripeGateway, pg *payment.PayPalGateway) {
	cfg = c
	reconcile = r
	packages = m
	stripeGW = sg
	paypalGW = pg
}

// audit writes a back-office audit row. Best effort: an audit failure is
// logged but never fails the request that triggered it.
func audit(actorID uint, action, entity, entityRef, detail string) {
	entry := models.AuditLog{
		ActorID:   actorID,
		Action:    action,
		Entity:    entity,
		EntityRef: entityRef,
		Detail:    detail,
	}
	if err := database.DB.Create(&entry).Error; err != nil {
		logger.L.Warnw("failed to write audit log", "action", action, "ref", entityRef, "err", err)
	}
}
