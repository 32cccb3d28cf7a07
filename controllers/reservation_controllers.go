package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tablebook/tablebook/middlewares"
	"github.com/tablebook/tablebook/models"
	"github.com/tablebook/tablebook/realtime"
	"github.com/tablebook/tablebook/services"
	"github.com/tablebook/tablebook/utils"
)

type ReservationController struct {
	DB           *gorm.DB
	Availability *services.AvailabilityService
	Flow         *services.ReservationFlow
}

func NewReservationController(db *gorm.DB) *ReservationController {
	return &ReservationController{
		DB:           db,
		Availability: services.NewAvailabilityService(db),
		Flow:         services.NewReservationFlow(db),
	}
}

// CreateReservation books a slot. Availability is validated and the rows are
// inserted inside one transaction, so a slot cannot be double-booked between
// check and insert.
func (rc *ReservationController) CreateReservation(c *gin.Context) {
	var req struct {
		RestaurantID    uint   `json:"restaurant_id" binding:"required"`
		CustomerName    string `json:"customer_name" binding:"required"`
		CustomerEmail   string `json:"customer_email"`
		CustomerPhone   string `json:"customer_phone"`
		Type            string `json:"type"`
		Date            string `json:"date" binding:"required"`
		Time            string `json:"time" binding:"required"`
		DurationMinutes int    `json:"duration_minutes"`
		GuestCount      int    `json:"guest_count" binding:"required,gt=0"`
		TableID         *uint  `json:"table_id"`
		SpecialRequests string `json:"special_requests"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	resType := models.ReservationTypeTable
	if req.Type != "" {
		parsed, err := models.ParseReservationType(req.Type)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		resType = parsed
	}

	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid date %q, want YYYY-MM-DD", req.Date))
		return
	}
	if _, err := time.Parse("15:04", req.Time); err != nil {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid time %q, want HH:MM", req.Time))
		return
	}

	avReq := services.AvailabilityRequest{
		RestaurantID:    req.RestaurantID,
		Date:            req.Date,
		Time:            req.Time,
		GuestCount:      req.GuestCount,
		DurationMinutes: req.DurationMinutes,
		Type:            resType,
	}

	var reservation models.Reservation
	err := rc.DB.Transaction(func(tx *gorm.DB) error {
		av := services.NewAvailabilityService(tx)

		if req.TableID != nil {
			var table models.Table
			if err := tx.First(&table, *req.TableID).Error; err != nil {
				return fmt.Errorf("table not found: %w", err)
			}
			free, reason, err := av.TableFreeFor(table, avReq)
			if err != nil {
				return err
			}
			if !free {
				return fmt.Errorf("requested table unavailable: %s", reason)
			}
		} else {
			ok, reason, err := av.Check(avReq)
			if err != nil {
				return err
			}
			if !ok {
				return errors.New(reason)
			}
		}

		customer := models.Customer{
			Name:  req.CustomerName,
			Email: req.CustomerEmail,
			Phone: req.CustomerPhone,
		}
		if userID, ok := middlewares.UserIDFromContext(c); ok {
			customer.UserID = &userID
		}
		if err := tx.Create(&customer).Error; err != nil {
			return err
		}

		reservation = models.Reservation{
			ReservationNumber: models.NewReservationNumber(req.Date),
			RestaurantID:      req.RestaurantID,
			CustomerID:        customer.ID,
			TableID:           req.TableID,
			Type:              resType,
			Date:              req.Date,
			Time:              req.Time,
			DurationMinutes:   req.DurationMinutes,
			GuestCount:        req.GuestCount,
			Status:            models.ReservationPending,
			SpecialRequests:   req.SpecialRequests,
		}
		if err := tx.Create(&reservation).Error; err != nil {
			return err
		}

		log := models.ReservationStatusLog{
			ReservationID: reservation.ID,
			FromStatus:    models.ReservationPending,
			ToStatus:      models.ReservationPending,
			Notes:         "reservation created",
		}
		return tx.Create(&log).Error
	})
	if err != nil {
		utils.RespondError(c, http.StatusUnprocessableEntity, err)
		return
	}

	rc.DB.Preload("Customer").Preload("Table").First(&reservation, reservation.ID)
	realtime.BroadcastReservationCreate(reservation)

	utils.InfoLogger.Printf("Reservation %s created (restaurant=%d, guests=%d, %s %s)",
		reservation.ReservationNumber, reservation.RestaurantID, reservation.GuestCount,
		reservation.Date, reservation.Time)

	response := gin.H{"reservation": reservation}
	if services.RequiresDeposit(reservation.Type) {
		response["deposit_required"] = true
		response["deposit_amount"] = services.DepositAmount(&reservation)
	}
	utils.RespondJSON(c, http.StatusCreated, "Reservation created", response)
}

// GetAllReservations lists reservations with optional filters.
func (rc *ReservationController) GetAllReservations(c *gin.Context) {
	q := rc.DB.Preload("Customer").Preload("Table")
	if rid := c.Query("restaurant_id"); rid != "" {
		q = q.Where("restaurant_id = ?", rid)
	}
	if date := c.Query("date"); date != "" {
		q = q.Where("date = ?", date)
	}
	if status := c.Query("status"); status != "" {
		parsed, err := models.ParseReservationStatus(status)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		q = q.Where("status = ?", parsed)
	}

	var reservations []models.Reservation
	if err := q.Order("date, time").Find(&reservations).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of reservations", reservations)
}

// GetReservationByID returns one reservation with its allowed transitions
// and audit trail.
func (rc *ReservationController) GetReservationByID(c *gin.Context) {
	var reservation models.Reservation
	if err := rc.DB.Preload("Customer").Preload("Table").
		First(&reservation, c.Param("reservation_id")).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	var logs []models.ReservationStatusLog
	rc.DB.Where("reservation_id = ?", reservation.ID).Order("created_at").Find(&logs)

	utils.RespondJSON(c, http.StatusOK, "Reservation detail", gin.H{
		"reservation":         reservation,
		"allowed_transitions": models.AllowedReservationTransitions(reservation.Status),
		"status_history":      logs,
	})
}

// GetDailyReservations is the staff day-sheet: every reservation for one
// restaurant on one date.
func (rc *ReservationController) GetDailyReservations(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid date %q", date))
		return
	}

	var reservations []models.Reservation
	if err := rc.DB.Preload("Customer").Preload("Table").
		Where("restaurant_id = ? AND date = ?", c.Param("restaurant_id"), date).
		Order("time").Find(&reservations).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	counts := make(map[models.ReservationStatus]int)
	for _, r := range reservations {
		counts[r.Status]++
	}

	utils.RespondJSON(c, http.StatusOK, "Daily reservations", gin.H{
		"date":          date,
		"reservations":  reservations,
		"status_counts": counts,
	})
}

// UpdateReservation edits booking details before arrival. Changing the slot
// re-runs the availability check.
func (rc *ReservationController) UpdateReservation(c *gin.Context) {
	var body struct {
		Date            *string `json:"date"`
		Time            *string `json:"time"`
		DurationMinutes *int    `json:"duration_minutes"`
		GuestCount      *int    `json:"guest_count"`
		SpecialRequests *string `json:"special_requests"`
		Version         *uint   `json:"version"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var reservation models.Reservation
	if err := rc.DB.First(&reservation, c.Param("reservation_id")).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	if reservation.Status.IsTerminal() {
		utils.RespondError(c, http.StatusUnprocessableEntity,
			fmt.Errorf("reservation is %s and can no longer be edited", reservation.Status))
		return
	}
	if body.Version != nil && *body.Version != reservation.Version {
		utils.RespondError(c, http.StatusConflict, ErrVersionConflict)
		return
	}

	if body.Date != nil {
		if _, err := time.Parse("2006-01-02", *body.Date); err != nil {
			utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid date %q, want YYYY-MM-DD", *body.Date))
			return
		}
		reservation.Date = *body.Date
	}
	if body.Time != nil {
		if _, err := time.Parse("15:04", *body.Time); err != nil {
			utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid time %q, want HH:MM", *body.Time))
			return
		}
		reservation.Time = *body.Time
	}
	if body.DurationMinutes != nil {
		reservation.DurationMinutes = *body.DurationMinutes
	}
	if body.GuestCount != nil {
		if *body.GuestCount <= 0 {
			utils.RespondError(c, http.StatusBadRequest, errors.New("guest count must be positive"))
			return
		}
		reservation.GuestCount = *body.GuestCount
	}
	if body.SpecialRequests != nil {
		reservation.SpecialRequests = *body.SpecialRequests
	}

	slotChanged := body.Date != nil || body.Time != nil || body.DurationMinutes != nil || body.GuestCount != nil
	if slotChanged {
		avReq := services.AvailabilityRequest{
			RestaurantID:         reservation.RestaurantID,
			Date:                 reservation.Date,
			Time:                 reservation.Time,
			GuestCount:           reservation.GuestCount,
			DurationMinutes:      reservation.DurationMinutes,
			Type:                 reservation.Type,
			ExcludeReservationID: reservation.ID,
		}
		if reservation.TableID != nil {
			var table models.Table
			if err := rc.DB.First(&table, *reservation.TableID).Error; err == nil {
				free, reason, err := rc.Availability.TableFreeFor(table, avReq)
				if err != nil {
					utils.RespondError(c, http.StatusInternalServerError, err)
					return
				}
				if !free {
					// The new slot no longer fits the assigned table; drop
					// the assignment rather than double-book.
					utils.InfoLogger.Printf("Reservation %s unassigned from table %d: %s",
						reservation.ReservationNumber, table.ID, reason)
					reservation.TableID = nil
				}
			}
		} else {
			ok, reason, err := rc.Availability.Check(avReq)
			if err != nil {
				utils.RespondError(c, http.StatusInternalServerError, err)
				return
			}
			if !ok {
				utils.RespondError(c, http.StatusUnprocessableEntity, errors.New(reason))
				return
			}
		}
	}

	reservation.Version++
	result := rc.DB.Model(&models.Reservation{}).
		Where("id = ? AND version = ?", reservation.ID, reservation.Version-1).
		Updates(map[string]interface{}{
			"date":             reservation.Date,
			"time":             reservation.Time,
			"duration_minutes": reservation.DurationMinutes,
			"guest_count":      reservation.GuestCount,
			"special_requests": reservation.SpecialRequests,
			"table_id":         reservation.TableID,
			"version":          reservation.Version,
		})
	if result.Error != nil {
		utils.RespondError(c, http.StatusInternalServerError, result.Error)
		return
	}
	if result.RowsAffected == 0 {
		utils.RespondError(c, http.StatusConflict, ErrVersionConflict)
		return
	}

	rc.DB.Preload("Customer").Preload("Table").First(&reservation, reservation.ID)
	realtime.BroadcastReservationUpdate(reservation)
	utils.RespondJSON(c, http.StatusOK, "Reservation updated", reservation)
}

// UpdateReservationStatus applies one lifecycle transition.
func (rc *ReservationController) UpdateReservationStatus(c *gin.Context) {
	var body struct {
		Status  string `json:"status" binding:"required"`
		Notes   string `json:"notes"`
		Version *uint  `json:"version"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	next, err := models.ParseReservationStatus(body.Status)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	idNum := c.Param("reservation_id")
	var reservation models.Reservation
	if err := rc.DB.First(&reservation, idNum).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	updated, err := rc.Flow.Transition(reservation.ID, services.TransitionInput{
		Next:        next,
		Notes:       body.Notes,
		PerformedBy: performedBy(c),
		Version:     body.Version,
	})
	if err != nil {
		respondFlowError(c, err)
		return
	}

	utils.InfoLogger.Printf("Reservation %s status changed to %s", updated.ReservationNumber, updated.Status)
	utils.RespondJSON(c, http.StatusOK, "Reservation status updated", updated)
}

// CancelReservation is the dedicated cancel endpoint with a reason.
func (rc *ReservationController) CancelReservation(c *gin.Context) {
	var body struct {
		PerformedBy string `json:"performed_by"`
		Reason      string `json:"reason"`
		Version     *uint  `json:"version"`
	}
	// Body is optional on cancel.
	_ = c.ShouldBindJSON(&body)

	who := body.PerformedBy
	if who == "" {
		who = performedBy(c)
	}

	var reservation models.Reservation
	if err := rc.DB.First(&reservation, c.Param("reservation_id")).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	updated, err := rc.Flow.Transition(reservation.ID, services.TransitionInput{
		Next:        models.ReservationCancelled,
		Reason:      body.Reason,
		Notes:       body.Reason,
		PerformedBy: who,
		Version:     body.Version,
	})
	if err != nil {
		respondFlowError(c, err)
		return
	}

	utils.InfoLogger.Printf("Reservation %s cancelled by %s", updated.ReservationNumber, who)
	utils.RespondJSON(c, http.StatusOK, "Reservation cancelled", updated)
}

// CheckInReservation seats the party: table goes OCCUPIED, arrival is
// timestamped, status stays CONFIRMED until completion.
func (rc *ReservationController) CheckInReservation(c *gin.Context) {
	var reservation models.Reservation
	if err := rc.DB.First(&reservation, c.Param("reservation_id")).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	updated, err := rc.Flow.CheckIn(reservation.ID, performedBy(c))
	if err != nil {
		respondFlowError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Guest checked in", updated)
}

// AssignTable links a table to a reservation after validating capacity and
// overlap in the same transaction, so assignment can never silently
// double-book.
func (rc *ReservationController) AssignTable(c *gin.Context) {
	var body struct {
		TableID uint  `json:"table_id" binding:"required"`
		Version *uint `json:"version"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var reservation models.Reservation
	err := rc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&reservation, c.Param("reservation_id")).Error; err != nil {
			return err
		}
		if reservation.Status.IsTerminal() {
			return unprocessable(fmt.Sprintf("reservation is %s, cannot assign a table", reservation.Status))
		}
		if body.Version != nil && *body.Version != reservation.Version {
			return services.ErrStaleVersion
		}

		var table models.Table
		if err := tx.First(&table, body.TableID).Error; err != nil {
			return fmt.Errorf("table not found: %w", err)
		}
		if table.RestaurantID != reservation.RestaurantID {
			return unprocessable("table belongs to a different restaurant")
		}

		av := services.NewAvailabilityService(tx)
		free, reason, err := av.TableFreeFor(table, services.AvailabilityRequest{
			RestaurantID:         reservation.RestaurantID,
			Date:                 reservation.Date,
			Time:                 reservation.Time,
			GuestCount:           reservation.GuestCount,
			DurationMinutes:      reservation.DurationMinutes,
			Type:                 reservation.Type,
			ExcludeReservationID: reservation.ID,
		})
		if err != nil {
			return err
		}
		if !free {
			return unprocessable(reason)
		}

		result := tx.Model(&models.Reservation{}).
			Where("id = ? AND version = ?", reservation.ID, reservation.Version).
			Updates(map[string]interface{}{
				"table_id": table.ID,
				"version":  reservation.Version + 1,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return services.ErrStaleVersion
		}

		// A confirmed booking holds its table immediately.
		if reservation.Status == models.ReservationConfirmed && table.Status == models.TableAvailable {
			hold := tx.Model(&models.Table{}).
				Where("id = ? AND version = ?", table.ID, table.Version).
				Updates(map[string]interface{}{
					"status":  models.TableReserved,
					"version": table.Version + 1,
				})
			if hold.Error != nil {
				return hold.Error
			}
			if hold.RowsAffected == 0 {
				return services.ErrStaleTableVersion
			}
		}

		return tx.Preload("Customer").Preload("Table").First(&reservation, reservation.ID).Error
	})
	if err != nil {
		respondFlowError(c, err)
		return
	}

	realtime.BroadcastReservationUpdate(reservation)
	if reservation.Table != nil {
		realtime.BroadcastTableUpdate(*reservation.Table)
	}
	utils.RespondJSON(c, http.StatusOK, "Table assigned", reservation)
}

// respondFlowError maps flow errors onto HTTP statuses.
func respondFlowError(c *gin.Context, err error) {
	var invalid *services.InvalidTransitionError
	var unproc *unprocessableError
	switch {
	case errors.As(err, &invalid), errors.As(err, &unproc):
		utils.RespondError(c, http.StatusUnprocessableEntity, err)
	case errors.Is(err, services.ErrStaleVersion), errors.Is(err, services.ErrStaleTableVersion):
		utils.RespondError(c, http.StatusConflict, err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		utils.RespondError(c, http.StatusNotFound, err)
	default:
		utils.RespondError(c, http.StatusInternalServerError, err)
	}
}

// performedBy resolves the acting identity from the request context for the
// audit trail.
func performedBy(c *gin.Context) string {
	if role, ok := middlewares.RoleFromContext(c); ok {
		if id, ok := middlewares.UserIDFromContext(c); ok {
			return fmt.Sprintf("%s:%d", role, id)
		}
		return string(role)
	}
	return "anonymous"
}
