package services

import (
	"crypto/sha512"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tablebook/tablebook/models"
	"github.com/tablebook/tablebook/utils"
)

func newTestDepositService(db *gorm.DB) *DepositService {
	return &DepositService{
		DB:        db,
		Flow:      NewReservationFlow(db),
		serverKey: "test-server-key",
	}
}

func setupDepositDB(t *testing.T) *gorm.DB {
	db := setupAvailabilityDB(t)
	require.NoError(t, db.AutoMigrate(&models.Deposit{}))
	return db
}

func TestRequiresDeposit(t *testing.T) {
	assert.False(t, RequiresDeposit(models.ReservationTypeTable))
	assert.True(t, RequiresDeposit(models.ReservationTypeFullRestaurant))
	assert.True(t, RequiresDeposit(models.ReservationTypePrivateEvent))
}

func TestDepositAmount(t *testing.T) {
	assert.Equal(t, 750.0, DepositAmount(&models.Reservation{GuestCount: 30}))
	// Small parties still pay the floor.
	assert.Equal(t, 200.0, DepositAmount(&models.Reservation{GuestCount: 4}))
}

func TestValidateSignature(t *testing.T) {
	svc := newTestDepositService(nil)

	payload := "DEP-RSV-1" + "200" + "750.00" + "test-server-key"
	sum := sha512.Sum512([]byte(payload))
	good := hex.EncodeToString(sum[:])

	assert.True(t, svc.ValidateSignature("DEP-RSV-1", "200", "750.00", good))
	assert.False(t, svc.ValidateSignature("DEP-RSV-1", "200", "750.00", "tampered"))
	assert.False(t, svc.ValidateSignature("DEP-RSV-2", "200", "750.00", good))
}

func TestHandleCallbackSettlementConfirmsReservation(t *testing.T) {
	utils.InitLogger()
	db := setupDepositDB(t)
	restaurant := seedRestaurant(t, db)
	res := seedReservation(t, db, models.Reservation{
		RestaurantID: restaurant.ID,
		Type:         models.ReservationTypeFullRestaurant,
		Date:         "2030-05-20",
		Time:         "18:00",
		GuestCount:   30,
		Status:       models.ReservationPending,
	})
	deposit := models.Deposit{
		ReservationID:  res.ID,
		Amount:         750,
		GatewayOrderID: "DEP-TEST-1",
		Status:         models.DepositPending,
	}
	require.NoError(t, db.Create(&deposit).Error)

	svc := newTestDepositService(db)
	updated, err := svc.HandleCallback("DEP-TEST-1", "settlement")
	require.NoError(t, err)
	assert.Equal(t, models.DepositSettled, updated.Status)

	var gotRes models.Reservation
	require.NoError(t, db.First(&gotRes, res.ID).Error)
	assert.Equal(t, models.ReservationConfirmed, gotRes.Status)

	var gotDep models.Deposit
	require.NoError(t, db.First(&gotDep, deposit.ID).Error)
	assert.NotNil(t, gotDep.SettledAt)

	// Gateways retry; a repeat callback is a no-op, not an error.
	again, err := svc.HandleCallback("DEP-TEST-1", "settlement")
	require.NoError(t, err)
	assert.Equal(t, models.DepositSettled, again.Status)
}

func TestHandleCallbackExpiryCancelsReservation(t *testing.T) {
	utils.InitLogger()
	db := setupDepositDB(t)
	restaurant := seedRestaurant(t, db)
	res := seedReservation(t, db, models.Reservation{
		RestaurantID: restaurant.ID,
		Type:         models.ReservationTypePrivateEvent,
		Date:         "2030-05-20",
		Time:         "18:00",
		GuestCount:   20,
		Status:       models.ReservationPending,
	})
	deposit := models.Deposit{
		ReservationID:  res.ID,
		Amount:         500,
		GatewayOrderID: "DEP-TEST-2",
		Status:         models.DepositPending,
	}
	require.NoError(t, db.Create(&deposit).Error)

	svc := newTestDepositService(db)
	updated, err := svc.HandleCallback("DEP-TEST-2", "expire")
	require.NoError(t, err)
	assert.Equal(t, models.DepositExpired, updated.Status)

	var gotRes models.Reservation
	require.NoError(t, db.First(&gotRes, res.ID).Error)
	assert.Equal(t, models.ReservationCancelled, gotRes.Status)
}

func TestHandleCallbackUnknownStatus(t *testing.T) {
	utils.InitLogger()
	db := setupDepositDB(t)
	restaurant := seedRestaurant(t, db)
	res := seedReservation(t, db, models.Reservation{
		RestaurantID: restaurant.ID,
		Type:         models.ReservationTypePrivateEvent,
		Date:         "2030-05-20",
		Time:         "18:00",
		GuestCount:   20,
		Status:       models.ReservationPending,
	})
	deposit := models.Deposit{
		ReservationID:  res.ID,
		Amount:         500,
		GatewayOrderID: "DEP-TEST-3",
		Status:         models.DepositPending,
	}
	require.NoError(t, db.Create(&deposit).Error)

	svc := newTestDepositService(db)
	_, err := svc.HandleCallback("DEP-TEST-3", "refunded-by-carrier-pigeon")
	assert.Error(t, err)

	// "pending" leaves everything untouched.
	updated, err := svc.HandleCallback("DEP-TEST-3", "pending")
	require.NoError(t, err)
	assert.Equal(t, models.DepositPending, updated.Status)
}
