package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tablebook/tablebook/middlewares"
	"github.com/tablebook/tablebook/models"
	"github.com/tablebook/tablebook/utils"
)

type ServiceLogController struct {
	DB *gorm.DB
}

func NewServiceLogController(db *gorm.DB) *ServiceLogController {
	return &ServiceLogController{DB: db}
}

// GetAllServiceLogs lists service work; pass open=true for unfinished work
// only.
func (slc *ServiceLogController) GetAllServiceLogs(c *gin.Context) {
	q := slc.DB.Preload("Table").Order("started_at DESC")
	if c.Query("open") == "true" {
		q = q.Where("finished_at IS NULL")
	}
	if tid := c.Query("table_id"); tid != "" {
		q = q.Where("table_id = ?", tid)
	}

	var logs []models.ServiceLog
	if err := q.Find(&logs).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "All service logs", logs)
}

// ClaimServiceLog assigns the open work item to the calling staff member.
func (slc *ServiceLogController) ClaimServiceLog(c *gin.Context) {
	var entry models.ServiceLog
	if err := slc.DB.First(&entry, c.Param("log_id")).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	userID, _ := middlewares.UserIDFromContext(c)
	entry.StaffID = &userID

	if err := slc.DB.Save(&entry).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Service log claimed", entry)
}

// FinishServiceLog closes the work item and returns the table to service.
func (slc *ServiceLogController) FinishServiceLog(c *gin.Context) {
	var entry models.ServiceLog
	if err := slc.DB.First(&entry, c.Param("log_id")).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	now := time.Now()
	entry.FinishedAt = &now
	if err := slc.DB.Save(&entry).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	// No other open work on the table means it can seat guests again.
	var openCount int64
	slc.DB.Model(&models.ServiceLog{}).
		Where("table_id = ? AND finished_at IS NULL", entry.TableID).
		Count(&openCount)
	if openCount == 0 {
		var table models.Table
		if err := slc.DB.First(&table, entry.TableID).Error; err == nil &&
			table.Status == models.TableOutOfService {
			slc.DB.Model(&table).Updates(map[string]interface{}{
				"status":  models.TableAvailable,
				"version": table.Version + 1,
			})
		}
	}

	utils.RespondJSON(c, http.StatusOK, "Service log finished", entry)
}

// DeleteServiceLog removes a log entry, admin only.
func (slc *ServiceLogController) DeleteServiceLog(c *gin.Context) {
	role, _ := middlewares.RoleFromContext(c)
	if role != models.RoleAdmin {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	id, _ := strconv.Atoi(c.Param("log_id"))
	if err := slc.DB.Delete(&models.ServiceLog{}, id).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Service log deleted", gin.H{"log_id": id})
}
