package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tablebook/tablebook/models"
	"github.com/tablebook/tablebook/services"
	"github.com/tablebook/tablebook/utils"
)

type AvailabilityController struct {
	DB      *gorm.DB
	Service *services.AvailabilityService
}

func NewAvailabilityController(db *gorm.DB) *AvailabilityController {
	return &AvailabilityController{
		DB:      db,
		Service: services.NewAvailabilityService(db),
	}
}

func (ac *AvailabilityController) bindRequest(c *gin.Context) (services.AvailabilityRequest, bool) {
	var req services.AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return req, false
	}
	if req.Type != "" {
		if _, err := models.ParseReservationType(string(req.Type)); err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return req, false
		}
	}
	return req, true
}

// CheckAvailability answers whether the slot can be booked, with a reason
// when it cannot.
func (ac *AvailabilityController) CheckAvailability(c *gin.Context) {
	req, ok := ac.bindRequest(c)
	if !ok {
		return
	}

	available, reason, err := ac.Service.Check(req)
	if err != nil {
		utils.RespondError(c, http.StatusUnprocessableEntity, err)
		return
	}

	data := gin.H{"available": available}
	if reason != "" {
		data["reason"] = reason
	}
	utils.RespondJSON(c, http.StatusOK, "Availability checked", data)
}

// FindAvailableTables lists candidate tables for the slot, best fit first.
func (ac *AvailabilityController) FindAvailableTables(c *gin.Context) {
	req, ok := ac.bindRequest(c)
	if !ok {
		return
	}

	tables, err := ac.Service.AvailableTables(req)
	if err != nil {
		utils.RespondError(c, http.StatusUnprocessableEntity, err)
		return
	}
	if tables == nil {
		tables = []models.Table{}
	}

	utils.RespondJSON(c, http.StatusOK, "Available tables", tables)
}
