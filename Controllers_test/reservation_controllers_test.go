package Controllers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tablebook/tablebook/controllers"
	"github.com/tablebook/tablebook/models"
	"github.com/tablebook/tablebook/utils"
)

func setupTestDBForReservations(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Restaurant{}, &models.Table{},
		&models.Customer{}, &models.Reservation{}, &models.ReservationStatusLog{},
		&models.ServiceLog{}); err != nil {
		t.Fatal(err)
	}
	return db
}

func setupReservationRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.Default()
	resCtrl := controllers.NewReservationController(db)
	avCtrl := controllers.NewAvailabilityController(db)
	router.POST("/reservations", resCtrl.CreateReservation)
	router.GET("/reservations", resCtrl.GetAllReservations)
	router.GET("/reservations/:reservation_id", resCtrl.GetReservationByID)
	router.PATCH("/reservations/:reservation_id", resCtrl.UpdateReservation)
	router.PATCH("/reservations/:reservation_id/status", resCtrl.UpdateReservationStatus)
	router.POST("/reservations/:reservation_id/cancel", resCtrl.CancelReservation)
	router.POST("/reservations/:reservation_id/check-in", resCtrl.CheckInReservation)
	router.POST("/reservations/:reservation_id/assign-table", resCtrl.AssignTable)
	router.GET("/reservations/restaurant/:restaurant_id/daily", resCtrl.GetDailyReservations)
	router.POST("/reservations/check-availability", avCtrl.CheckAvailability)
	router.POST("/reservations/available-tables", avCtrl.FindAvailableTables)
	return router
}

func seedVenue(t *testing.T, db *gorm.DB, capacities ...int) (models.Restaurant, []models.Table) {
	restaurant := models.Restaurant{
		OwnerID:  1,
		Name:     "Warung Tepi Laut",
		OpensAt:  "10:00",
		ClosesAt: "22:00",
		Timezone: "UTC",
	}
	if err := db.Create(&restaurant).Error; err != nil {
		t.Fatal(err)
	}

	tables := make([]models.Table, 0, len(capacities))
	for i, capacity := range capacities {
		table := models.Table{
			RestaurantID: restaurant.ID,
			TableNumber:  fmt.Sprintf("T%d", i+1),
			Capacity:     capacity,
			Status:       models.TableAvailable,
		}
		if err := db.Create(&table).Error; err != nil {
			t.Fatal(err)
		}
		tables = append(tables, table)
	}
	return restaurant, tables
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func TestCreateReservation(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForReservations(t)
	restaurant, _ := seedVenue(t, db, 2, 4)
	router := setupReservationRouter(db)

	w := postJSON(t, router, "/reservations", map[string]interface{}{
		"restaurant_id":  restaurant.ID,
		"customer_name":  "Sari",
		"customer_phone": "+62-812-0000",
		"date":           "2030-05-20",
		"time":           "18:00",
		"guest_count":    3,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	response := decodeBody(t, w)
	data := response["data"].(map[string]interface{})
	reservation := data["reservation"].(map[string]interface{})
	assert.Equal(t, "PENDING", reservation["status"], "new bookings start pending")
	assert.Contains(t, reservation["reservation_number"], "RSV-20300520-")
	assert.Nil(t, data["deposit_required"])

	// The audit trail starts at creation.
	var logs int64
	db.Model(&models.ReservationStatusLog{}).Count(&logs)
	assert.EqualValues(t, 1, logs)
}

func TestCreateReservationRejectsImpossibleSlots(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForReservations(t)
	restaurant, _ := seedVenue(t, db, 2, 4)
	router := setupReservationRouter(db)

	// No table seats ten.
	w := postJSON(t, router, "/reservations", map[string]interface{}{
		"restaurant_id": restaurant.ID,
		"customer_name": "Sari",
		"date":          "2030-05-20",
		"time":          "18:00",
		"guest_count":   10,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// Before opening.
	w = postJSON(t, router, "/reservations", map[string]interface{}{
		"restaurant_id": restaurant.ID,
		"customer_name": "Sari",
		"date":          "2030-05-20",
		"time":          "08:00",
		"guest_count":   2,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// Malformed date.
	w = postJSON(t, router, "/reservations", map[string]interface{}{
		"restaurant_id": restaurant.ID,
		"customer_name": "Sari",
		"date":          "20-05-2030",
		"time":          "18:00",
		"guest_count":   2,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateReservationDoubleBooking(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForReservations(t)
	restaurant, tables := seedVenue(t, db, 4)
	router := setupReservationRouter(db)

	w := postJSON(t, router, "/reservations", map[string]interface{}{
		"restaurant_id": restaurant.ID,
		"customer_name": "First",
		"date":          "2030-05-20",
		"time":          "18:00",
		"guest_count":   4,
		"table_id":      tables[0].ID,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	// The only table is held for the overlapping window.
	w = postJSON(t, router, "/reservations", map[string]interface{}{
		"restaurant_id": restaurant.ID,
		"customer_name": "Second",
		"date":          "2030-05-20",
		"time":          "19:00",
		"guest_count":   4,
		"table_id":      tables[0].ID,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// Back-to-back is fine: the first booking ends at 20:00.
	w = postJSON(t, router, "/reservations", map[string]interface{}{
		"restaurant_id": restaurant.ID,
		"customer_name": "Third",
		"date":          "2030-05-20",
		"time":          "20:00",
		"guest_count":   4,
		"table_id":      tables[0].ID,
	})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestWholeVenueBookingRequiresDeposit(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForReservations(t)
	restaurant, _ := seedVenue(t, db, 4, 6)
	router := setupReservationRouter(db)

	w := postJSON(t, router, "/reservations", map[string]interface{}{
		"restaurant_id": restaurant.ID,
		"customer_name": "Event Co",
		"type":          "FULL_RESTAURANT",
		"date":          "2030-05-20",
		"time":          "18:00",
		"guest_count":   30,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	response := decodeBody(t, w)
	data := response["data"].(map[string]interface{})
	assert.Equal(t, true, data["deposit_required"])
	assert.EqualValues(t, 750, data["deposit_amount"], "25 per guest for 30 guests")
}

func TestReservationLifecycleOverHTTP(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForReservations(t)
	restaurant, tables := seedVenue(t, db, 4)
	router := setupReservationRouter(db)

	w := postJSON(t, router, "/reservations", map[string]interface{}{
		"restaurant_id": restaurant.ID,
		"customer_name": "Sari",
		"date":          "2030-05-20",
		"time":          "18:00",
		"guest_count":   4,
		"table_id":      tables[0].ID,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var res models.Reservation
	assert.NoError(t, db.First(&res).Error)
	base := fmt.Sprintf("/reservations/%d", res.ID)

	// Confirm: table becomes RESERVED.
	w = patchJSON(t, router, base+"/status", map[string]string{"status": "CONFIRMED"})
	assert.Equal(t, http.StatusOK, w.Code)

	var table models.Table
	assert.NoError(t, db.First(&table, tables[0].ID).Error)
	assert.Equal(t, models.TableReserved, table.Status)

	// Check-in: guest arrives, table becomes OCCUPIED, status stays CONFIRMED.
	w = postJSON(t, router, base+"/check-in", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeBody(t, w)
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "CONFIRMED", data["status"])
	assert.NotNil(t, data["checked_in_at"])

	assert.NoError(t, db.First(&table, tables[0].ID).Error)
	assert.Equal(t, models.TableOccupied, table.Status)

	// Complete: table goes to cleaning.
	w = patchJSON(t, router, base+"/status", map[string]string{"status": "COMPLETED"})
	assert.Equal(t, http.StatusOK, w.Code)

	assert.NoError(t, db.First(&table, tables[0].ID).Error)
	assert.Equal(t, models.TableOutOfService, table.Status)

	// Terminal: any further transition is rejected.
	w = patchJSON(t, router, base+"/status", map[string]string{"status": "CONFIRMED"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// Detail endpoint shows the whole history.
	req, _ := http.NewRequest("GET", base, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	response = decodeBody(t, rec)
	data = response["data"].(map[string]interface{})
	assert.Empty(t, data["allowed_transitions"])
	history := data["status_history"].([]interface{})
	assert.GreaterOrEqual(t, len(history), 3)
}

func TestReservationStatusVersionConflict(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForReservations(t)
	restaurant, _ := seedVenue(t, db, 4)
	router := setupReservationRouter(db)

	w := postJSON(t, router, "/reservations", map[string]interface{}{
		"restaurant_id": restaurant.ID,
		"customer_name": "Sari",
		"date":          "2030-05-20",
		"time":          "18:00",
		"guest_count":   2,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var res models.Reservation
	assert.NoError(t, db.First(&res).Error)

	w = patchJSON(t, router, fmt.Sprintf("/reservations/%d/status", res.ID), map[string]interface{}{
		"status":  "CONFIRMED",
		"version": 42,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = patchJSON(t, router, fmt.Sprintf("/reservations/%d/status", res.ID), map[string]interface{}{
		"status":  "CONFIRMED",
		"version": res.Version,
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCancelReservation(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForReservations(t)
	restaurant, _ := seedVenue(t, db, 4)
	router := setupReservationRouter(db)

	w := postJSON(t, router, "/reservations", map[string]interface{}{
		"restaurant_id": restaurant.ID,
		"customer_name": "Sari",
		"date":          "2030-05-20",
		"time":          "18:00",
		"guest_count":   2,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var res models.Reservation
	assert.NoError(t, db.First(&res).Error)

	w = postJSON(t, router, fmt.Sprintf("/reservations/%d/cancel", res.ID), map[string]string{
		"reason": "change of plans",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeBody(t, w)
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "CANCELLED", data["status"])
	assert.Equal(t, "change of plans", data["cancellation_reason"])

	// Cancelling twice fails: CANCELLED is terminal.
	w = postJSON(t, router, fmt.Sprintf("/reservations/%d/cancel", res.ID), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestAssignTable(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForReservations(t)
	restaurant, tables := seedVenue(t, db, 2, 6)
	router := setupReservationRouter(db)

	w := postJSON(t, router, "/reservations", map[string]interface{}{
		"restaurant_id": restaurant.ID,
		"customer_name": "Sari",
		"date":          "2030-05-20",
		"time":          "18:00",
		"guest_count":   4,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var res models.Reservation
	assert.NoError(t, db.First(&res).Error)
	url := fmt.Sprintf("/reservations/%d/assign-table", res.ID)

	// Too small.
	w = postJSON(t, router, url, map[string]interface{}{"table_id": tables[0].ID})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// Fits.
	w = postJSON(t, router, url, map[string]interface{}{"table_id": tables[1].ID})
	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeBody(t, w)
	data := response["data"].(map[string]interface{})
	assert.EqualValues(t, tables[1].ID, data["table_id"])
}

func TestCompleteWithoutCheckInOverHTTP(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForReservations(t)
	restaurant, tables := seedVenue(t, db, 4)
	router := setupReservationRouter(db)

	w := postJSON(t, router, "/reservations", map[string]interface{}{
		"restaurant_id": restaurant.ID,
		"customer_name": "Sari",
		"date":          "2030-05-20",
		"time":          "18:00",
		"guest_count":   4,
		"table_id":      tables[0].ID,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var res models.Reservation
	assert.NoError(t, db.First(&res).Error)
	base := fmt.Sprintf("/reservations/%d", res.ID)

	w = patchJSON(t, router, base+"/status", map[string]string{"status": "CONFIRMED"})
	assert.Equal(t, http.StatusOK, w.Code)

	var table models.Table
	assert.NoError(t, db.First(&table, tables[0].ID).Error)
	assert.Equal(t, models.TableReserved, table.Status)

	// Closing out a booking whose party never arrived at the podium is a
	// legal CONFIRMED -> COMPLETED move; the held table just goes back to
	// the floor.
	w = patchJSON(t, router, base+"/status", map[string]string{"status": "COMPLETED"})
	assert.Equal(t, http.StatusOK, w.Code)

	assert.NoError(t, db.First(&table, tables[0].ID).Error)
	assert.Equal(t, models.TableAvailable, table.Status)
}

func TestUpdateReservationRejectsMalformedSlot(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForReservations(t)
	restaurant, _ := seedVenue(t, db, 4)
	router := setupReservationRouter(db)

	w := postJSON(t, router, "/reservations", map[string]interface{}{
		"restaurant_id": restaurant.ID,
		"customer_name": "Sari",
		"date":          "2030-05-20",
		"time":          "18:00",
		"guest_count":   2,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var res models.Reservation
	assert.NoError(t, db.First(&res).Error)
	base := fmt.Sprintf("/reservations/%d", res.ID)

	w = patchJSON(t, router, base, map[string]string{"date": "20-05-2030"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = patchJSON(t, router, base, map[string]string{"time": "6pm"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// The record is untouched after the rejections.
	var got models.Reservation
	assert.NoError(t, db.First(&got, res.ID).Error)
	assert.Equal(t, "2030-05-20", got.Date)
	assert.Equal(t, "18:00", got.Time)

	// A well-formed slot change still goes through.
	w = patchJSON(t, router, base, map[string]string{"time": "19:00"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAssignTableHoldsTableForConfirmedBooking(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForReservations(t)
	restaurant, tables := seedVenue(t, db, 6)
	router := setupReservationRouter(db)

	w := postJSON(t, router, "/reservations", map[string]interface{}{
		"restaurant_id": restaurant.ID,
		"customer_name": "Sari",
		"date":          "2030-05-20",
		"time":          "18:00",
		"guest_count":   4,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var res models.Reservation
	assert.NoError(t, db.First(&res).Error)

	w = patchJSON(t, router, fmt.Sprintf("/reservations/%d/status", res.ID),
		map[string]string{"status": "CONFIRMED"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = postJSON(t, router, fmt.Sprintf("/reservations/%d/assign-table", res.ID),
		map[string]interface{}{"table_id": tables[0].ID})
	assert.Equal(t, http.StatusOK, w.Code)

	// The hold is placed in the same transaction, with its version bump.
	var table models.Table
	assert.NoError(t, db.First(&table, tables[0].ID).Error)
	assert.Equal(t, models.TableReserved, table.Status)
	assert.EqualValues(t, 1, table.Version)
}

func TestDailyReservations(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForReservations(t)
	restaurant, _ := seedVenue(t, db, 4, 4, 4)
	router := setupReservationRouter(db)

	for _, slot := range []string{"12:00", "18:00"} {
		w := postJSON(t, router, "/reservations", map[string]interface{}{
			"restaurant_id": restaurant.ID,
			"customer_name": "Guest " + slot,
			"date":          "2030-05-20",
			"time":          slot,
			"guest_count":   2,
		})
		assert.Equal(t, http.StatusCreated, w.Code)
	}
	// A booking on another day stays out of the sheet.
	w := postJSON(t, router, "/reservations", map[string]interface{}{
		"restaurant_id": restaurant.ID,
		"customer_name": "Other Day",
		"date":          "2030-05-21",
		"time":          "12:00",
		"guest_count":   2,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	url := fmt.Sprintf("/reservations/restaurant/%d/daily?date=2030-05-20", restaurant.ID)
	req, _ := http.NewRequest("GET", url, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	response := decodeBody(t, rec)
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "2030-05-20", data["date"])
	reservations := data["reservations"].([]interface{})
	assert.Len(t, reservations, 2)
	first := reservations[0].(map[string]interface{})
	assert.Equal(t, "12:00", first["time"], "day sheet is ordered by time")
	counts := data["status_counts"].(map[string]interface{})
	assert.EqualValues(t, 2, counts["PENDING"])
}

func TestCheckAvailabilityEndpoint(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForReservations(t)
	restaurant, _ := seedVenue(t, db, 4)
	router := setupReservationRouter(db)

	w := postJSON(t, router, "/reservations/check-availability", map[string]interface{}{
		"restaurant_id": restaurant.ID,
		"date":          "2030-05-20",
		"time":          "18:00",
		"guest_count":   2,
	})
	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeBody(t, w)
	data := response["data"].(map[string]interface{})
	assert.Equal(t, true, data["available"])

	w = postJSON(t, router, "/reservations/check-availability", map[string]interface{}{
		"restaurant_id": restaurant.ID,
		"date":          "2030-05-20",
		"time":          "23:30",
		"guest_count":   2,
	})
	assert.Equal(t, http.StatusOK, w.Code)
	response = decodeBody(t, w)
	data = response["data"].(map[string]interface{})
	assert.Equal(t, false, data["available"])
	assert.Contains(t, data["reason"], "opening hours")
}

func TestAvailableTablesEndpoint(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForReservations(t)
	restaurant, _ := seedVenue(t, db, 6, 2, 4)
	router := setupReservationRouter(db)

	w := postJSON(t, router, "/reservations/available-tables", map[string]interface{}{
		"restaurant_id": restaurant.ID,
		"date":          "2030-05-20",
		"time":          "18:00",
		"guest_count":   3,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	response := decodeBody(t, w)
	tables := response["data"].([]interface{})
	assert.Len(t, tables, 2)
	best := tables[0].(map[string]interface{})
	assert.EqualValues(t, 4, best["capacity"], "best fit comes first")
}
