package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tablebook/tablebook/models"
	"github.com/tablebook/tablebook/realtime"
	"github.com/tablebook/tablebook/utils"
)

type TableController struct {
	DB *gorm.DB
}

func NewTableController(db *gorm.DB) *TableController {
	return &TableController{DB: db}
}

// CreateTable adds a table to a restaurant's floor plan.
func (tc *TableController) CreateTable(c *gin.Context) {
	var req struct {
		RestaurantID uint   `json:"restaurant_id" binding:"required"`
		TableNumber  string `json:"table_number" binding:"required"`
		Capacity     int    `json:"capacity" binding:"required,gt=0"`
		Location     string `json:"location"`
		Features     string `json:"features"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	table := models.Table{
		RestaurantID: req.RestaurantID,
		TableNumber:  req.TableNumber,
		Capacity:     req.Capacity,
		Location:     req.Location,
		Features:     req.Features,
		Status:       models.TableAvailable,
	}

	if err := tc.DB.Create(&table).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	realtime.BroadcastTableCreate(table)

	utils.InfoLogger.Printf("New table created: %s (restaurant=%d, capacity=%d)",
		table.TableNumber, table.RestaurantID, table.Capacity)
	utils.RespondJSON(c, http.StatusCreated, "Table created successfully", table)
}

// GetAllTables lists tables, optionally filtered by restaurant and status.
func (tc *TableController) GetAllTables(c *gin.Context) {
	q := tc.DB.Model(&models.Table{})
	if rid := c.Query("restaurant_id"); rid != "" {
		q = q.Where("restaurant_id = ?", rid)
	}
	if status := c.Query("status"); status != "" {
		parsed, err := models.ParseTableStatus(status)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		q = q.Where("status = ?", parsed)
	}

	var tables []models.Table
	if err := q.Order("table_number").Find(&tables).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", tables)
}

// GetTableByID returns one table together with its allowed next statuses,
// so clients render transition actions from the server's rules rather than
// hard-coding them.
func (tc *TableController) GetTableByID(c *gin.Context) {
	var table models.Table
	if err := tc.DB.First(&table, c.Param("table_id")).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table detail", gin.H{
		"table":               table,
		"allowed_transitions": models.AllowedTableTransitions(table.Status),
	})
}

// UpdateTableStatus applies one staff-initiated transition. The lifecycle
// rules are enforced here; an illegal move is rejected, not forwarded.
func (tc *TableController) UpdateTableStatus(c *gin.Context) {
	var body struct {
		Status  string `json:"status" binding:"required"`
		Notes   string `json:"notes"`
		Version *uint  `json:"version"`
	}

	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	next, err := models.ParseTableStatus(body.Status)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var table models.Table
	if err := tc.DB.First(&table, c.Param("table_id")).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	if !models.CanTransitionTable(table.Status, next) {
		utils.RespondError(c, http.StatusUnprocessableEntity,
			fmt.Errorf("cannot transition table from %s to %s", table.Status, next))
		return
	}
	if body.Version != nil && *body.Version != table.Version {
		utils.RespondError(c, http.StatusConflict, ErrVersionConflict)
		return
	}

	result := tc.DB.Model(&models.Table{}).
		Where("id = ? AND version = ?", table.ID, table.Version).
		Updates(map[string]interface{}{
			"status":  next,
			"version": table.Version + 1,
		})
	if result.Error != nil {
		utils.RespondError(c, http.StatusInternalServerError, result.Error)
		return
	}
	if result.RowsAffected == 0 {
		utils.RespondError(c, http.StatusConflict, ErrVersionConflict)
		return
	}

	// Going out of service opens a service log; coming back closes it.
	switch next {
	case models.TableOutOfService:
		svc := models.ServiceLog{
			TableID:   table.ID,
			Reason:    body.Notes,
			StartedAt: time.Now(),
		}
		tc.DB.Create(&svc)
	case models.TableAvailable:
		now := time.Now()
		tc.DB.Model(&models.ServiceLog{}).
			Where("table_id = ? AND finished_at IS NULL", table.ID).
			Update("finished_at", now)
	}

	if err := tc.DB.First(&table, table.ID).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	realtime.BroadcastTableUpdate(table)
	utils.InfoLogger.Printf("Table %d status changed to %s", table.ID, table.Status)
	utils.RespondJSON(c, http.StatusOK, "Table status updated", table)
}

// UpdateTable edits floor-plan attributes, not status.
func (tc *TableController) UpdateTable(c *gin.Context) {
	var body struct {
		TableNumber *string `json:"table_number"`
		Capacity    *int    `json:"capacity"`
		Location    *string `json:"location"`
		Features    *string `json:"features"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var table models.Table
	if err := tc.DB.First(&table, c.Param("table_id")).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	if body.TableNumber != nil {
		table.TableNumber = *body.TableNumber
	}
	if body.Capacity != nil {
		if *body.Capacity <= 0 {
			utils.RespondError(c, http.StatusBadRequest, errors.New("capacity must be positive"))
			return
		}
		table.Capacity = *body.Capacity
	}
	if body.Location != nil {
		table.Location = *body.Location
	}
	if body.Features != nil {
		table.Features = *body.Features
	}

	if err := tc.DB.Save(&table).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	realtime.BroadcastTableUpdate(table)
	utils.RespondJSON(c, http.StatusOK, "Table updated", table)
}

// DeleteTable soft-deletes a table. Historical reservations keep their
// reference.
func (tc *TableController) DeleteTable(c *gin.Context) {
	var table models.Table
	if err := tc.DB.First(&table, c.Param("table_id")).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	var activeHolds int64
	tc.DB.Model(&models.Reservation{}).
		Where("table_id = ? AND status IN ?", table.ID,
			[]models.ReservationStatus{models.ReservationPending, models.ReservationConfirmed}).
		Count(&activeHolds)
	if activeHolds > 0 {
		utils.RespondError(c, http.StatusConflict,
			fmt.Errorf("table has %d active reservations", activeHolds))
		return
	}

	if err := tc.DB.Delete(&table).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	realtime.BroadcastTableDelete(table.ID)
	utils.InfoLogger.Printf("Table %d deleted", table.ID)
	utils.RespondJSON(c, http.StatusOK, "Table deleted", gin.H{"id": table.ID})
}

// GetFloorStats returns the per-status table counts for the dashboard.
func (tc *TableController) GetFloorStats(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "Floor stats", tc.floorStats(c.Query("restaurant_id")))
}

func (tc *TableController) floorStats(restaurantID string) map[string]int64 {
	stats := make(map[string]int64)
	var total int64
	for _, status := range []models.TableStatus{
		models.TableAvailable, models.TableReserved, models.TableOccupied, models.TableOutOfService,
	} {
		var count int64
		q := tc.DB.Model(&models.Table{}).Where("status = ?", status)
		if restaurantID != "" {
			q = q.Where("restaurant_id = ?", restaurantID)
		}
		q.Count(&count)
		stats[string(status)] = count
		total += count
	}
	stats["TOTAL"] = total
	return stats
}
