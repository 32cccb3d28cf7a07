package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tablebook/tablebook/services"
	"github.com/tablebook/tablebook/utils"
)

type DepositController struct {
	DB      *gorm.DB
	Service *services.DepositService
}

func NewDepositController(db *gorm.DB) *DepositController {
	return &DepositController{
		DB:      db,
		Service: services.GetDepositService(db),
	}
}

// CreateDeposit opens the gateway transaction for a whole-venue booking.
func (dc *DepositController) CreateDeposit(c *gin.Context) {
	var reservationID uint
	if err := dc.DB.Table("reservations").
		Where("id = ?", c.Param("reservation_id")).
		Select("id").Scan(&reservationID).Error; err != nil || reservationID == 0 {
		utils.RespondError(c, http.StatusNotFound, errors.New("reservation not found"))
		return
	}

	deposit, err := dc.Service.CreateDeposit(reservationID)
	if err != nil {
		utils.RespondError(c, http.StatusUnprocessableEntity, err)
		return
	}

	utils.RespondJSON(c, http.StatusCreated, "Deposit created", deposit)
}

// GetDeposit returns the deposit attached to a reservation.
func (dc *DepositController) GetDeposit(c *gin.Context) {
	var deposit struct {
		ID             uint    `json:"id"`
		ReservationID  uint    `json:"reservation_id"`
		Amount         float64 `json:"amount"`
		GatewayOrderID string  `json:"gateway_order_id"`
		Status         string  `json:"status"`
		SnapToken      string  `json:"snap_token,omitempty"`
		RedirectURL    string  `json:"redirect_url,omitempty"`
	}
	err := dc.DB.Table("deposits").
		Where("reservation_id = ?", c.Param("reservation_id")).
		First(&deposit).Error
	if err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Deposit detail", deposit)
}

// HandleGatewayCallback receives Midtrans payment notifications. The
// signature is verified before any state changes.
func (dc *DepositController) HandleGatewayCallback(c *gin.Context) {
	var notif struct {
		OrderID           string `json:"order_id" binding:"required"`
		StatusCode        string `json:"status_code"`
		GrossAmount       string `json:"gross_amount"`
		SignatureKey      string `json:"signature_key"`
		TransactionStatus string `json:"transaction_status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&notif); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if !dc.Service.ValidateSignature(notif.OrderID, notif.StatusCode, notif.GrossAmount, notif.SignatureKey) {
		utils.ErrorLogger.Printf("Rejected gateway callback with bad signature for %s", notif.OrderID)
		utils.RespondError(c, http.StatusForbidden, errors.New("invalid signature"))
		return
	}

	deposit, err := dc.Service.HandleCallback(notif.OrderID, notif.TransactionStatus)
	if err != nil {
		utils.RespondError(c, http.StatusUnprocessableEntity, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Callback processed", deposit)
}
