package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tablebook/tablebook/models"
)

func seedBookedTable(t *testing.T, db *gorm.DB, status models.ReservationStatus) (models.Reservation, models.Table) {
	restaurant := seedRestaurant(t, db)
	table := seedTable(t, db, restaurant.ID, "T4", 4)
	res := seedReservation(t, db, models.Reservation{
		RestaurantID: restaurant.ID,
		TableID:      &table.ID,
		Date:         "2030-05-20",
		Time:         "12:00",
		GuestCount:   4,
		Status:       status,
	})
	return res, table
}

func TestTransitionConfirmReservesTable(t *testing.T) {
	db := setupAvailabilityDB(t)
	res, table := seedBookedTable(t, db, models.ReservationPending)

	flow := NewReservationFlow(db)
	updated, err := flow.Transition(res.ID, TransitionInput{
		Next:        models.ReservationConfirmed,
		Notes:       "phone confirmation",
		PerformedBy: "staff:1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReservationConfirmed, updated.Status)
	assert.Equal(t, res.Version+1, updated.Version)

	var got models.Table
	require.NoError(t, db.First(&got, table.ID).Error)
	assert.Equal(t, models.TableReserved, got.Status)

	var log models.ReservationStatusLog
	require.NoError(t, db.Where("reservation_id = ?", res.ID).Last(&log).Error)
	assert.Equal(t, models.ReservationPending, log.FromStatus)
	assert.Equal(t, models.ReservationConfirmed, log.ToStatus)
	assert.Equal(t, "staff:1", log.PerformedBy)
}

func TestTransitionRejectsIllegalMove(t *testing.T) {
	db := setupAvailabilityDB(t)
	res, _ := seedBookedTable(t, db, models.ReservationPending)

	flow := NewReservationFlow(db)
	_, err := flow.Transition(res.ID, TransitionInput{Next: models.ReservationCompleted})

	var invalid *InvalidTransitionError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "PENDING", invalid.From)
	assert.Equal(t, "COMPLETED", invalid.To)

	// Nothing changed.
	var got models.Reservation
	require.NoError(t, db.First(&got, res.ID).Error)
	assert.Equal(t, models.ReservationPending, got.Status)
	assert.Equal(t, res.Version, got.Version)
}

func TestTransitionStaleVersion(t *testing.T) {
	db := setupAvailabilityDB(t)
	res, _ := seedBookedTable(t, db, models.ReservationPending)

	stale := res.Version + 7
	flow := NewReservationFlow(db)
	_, err := flow.Transition(res.ID, TransitionInput{
		Next:    models.ReservationConfirmed,
		Version: &stale,
	})
	assert.ErrorIs(t, err, ErrStaleVersion)

	// The matching version goes through.
	current := res.Version
	updated, err := flow.Transition(res.ID, TransitionInput{
		Next:    models.ReservationConfirmed,
		Version: &current,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReservationConfirmed, updated.Status)
}

func TestCheckInOccupiesTable(t *testing.T) {
	db := setupAvailabilityDB(t)
	res, table := seedBookedTable(t, db, models.ReservationConfirmed)
	require.NoError(t, db.Model(&models.Table{}).Where("id = ?", table.ID).
		Update("status", models.TableReserved).Error)

	flow := NewReservationFlow(db)
	updated, err := flow.CheckIn(res.ID, "staff:2")
	require.NoError(t, err)
	assert.Equal(t, models.ReservationConfirmed, updated.Status, "status stays CONFIRMED while the party dines")
	require.NotNil(t, updated.CheckedInAt)

	var got models.Table
	require.NoError(t, db.First(&got, table.ID).Error)
	assert.Equal(t, models.TableOccupied, got.Status)

	_, err = flow.CheckIn(res.ID, "staff:2")
	assert.Error(t, err, "a second check-in is rejected")
}

func TestCheckInNeedsConfirmedReservation(t *testing.T) {
	db := setupAvailabilityDB(t)
	res, _ := seedBookedTable(t, db, models.ReservationPending)

	flow := NewReservationFlow(db)
	_, err := flow.CheckIn(res.ID, "staff:1")

	var invalid *InvalidTransitionError
	assert.True(t, errors.As(err, &invalid))
}

func TestCompleteSendsTableToService(t *testing.T) {
	db := setupAvailabilityDB(t)
	res, table := seedBookedTable(t, db, models.ReservationConfirmed)
	require.NoError(t, db.Model(&models.Table{}).Where("id = ?", table.ID).
		Update("status", models.TableOccupied).Error)

	flow := NewReservationFlow(db)
	updated, err := flow.Transition(res.ID, TransitionInput{
		Next:        models.ReservationCompleted,
		PerformedBy: "staff:1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReservationCompleted, updated.Status)
	assert.NotNil(t, updated.CompletedAt)

	var got models.Table
	require.NoError(t, db.First(&got, table.ID).Error)
	assert.Equal(t, models.TableOutOfService, got.Status, "table needs bussing before the next party")

	var openLogs int64
	db.Model(&models.ServiceLog{}).
		Where("table_id = ? AND finished_at IS NULL", table.ID).
		Count(&openLogs)
	assert.EqualValues(t, 1, openLogs)
}

func TestCompleteWithoutCheckInFreesTable(t *testing.T) {
	db := setupAvailabilityDB(t)
	res, table := seedBookedTable(t, db, models.ReservationConfirmed)
	require.NoError(t, db.Model(&models.Table{}).Where("id = ?", table.ID).
		Update("status", models.TableReserved).Error)

	// The party never checked in, so the table is still RESERVED when the
	// booking is closed out. Completion must not be rejected for it.
	flow := NewReservationFlow(db)
	updated, err := flow.Transition(res.ID, TransitionInput{
		Next:        models.ReservationCompleted,
		PerformedBy: "staff:1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReservationCompleted, updated.Status)

	var got models.Table
	require.NoError(t, db.First(&got, table.ID).Error)
	assert.Equal(t, models.TableAvailable, got.Status, "an unused table needs no bussing")

	var openLogs int64
	db.Model(&models.ServiceLog{}).
		Where("table_id = ? AND finished_at IS NULL", table.ID).
		Count(&openLogs)
	assert.EqualValues(t, 0, openLogs)
}

func TestCancelFreesReservedTable(t *testing.T) {
	db := setupAvailabilityDB(t)
	res, table := seedBookedTable(t, db, models.ReservationConfirmed)
	require.NoError(t, db.Model(&models.Table{}).Where("id = ?", table.ID).
		Update("status", models.TableReserved).Error)

	flow := NewReservationFlow(db)
	updated, err := flow.Transition(res.ID, TransitionInput{
		Next:        models.ReservationCancelled,
		Reason:      "guest called to cancel",
		PerformedBy: "staff:1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReservationCancelled, updated.Status)
	assert.Equal(t, "guest called to cancel", updated.CancellationReason)

	var got models.Table
	require.NoError(t, db.First(&got, table.ID).Error)
	assert.Equal(t, models.TableAvailable, got.Status)
}
