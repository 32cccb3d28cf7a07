package services

import (
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
	"gorm.io/gorm"

	"github.com/tablebook/tablebook/models"
	"github.com/tablebook/tablebook/realtime"
	"github.com/tablebook/tablebook/utils"
)

// DepositService creates and settles the up-front deposits required for
// whole-venue bookings, through the Midtrans Snap gateway.
type DepositService struct {
	DB         *gorm.DB
	Flow       *ReservationFlow
	snapClient snap.Client
	serverKey  string
}

var (
	depositService *DepositService
	depositOnce    sync.Once
)

// GetDepositService returns the singleton, initialized from MIDTRANS_*
// environment variables.
func GetDepositService(db *gorm.DB) *DepositService {
	depositOnce.Do(func() {
		serverKey := os.Getenv("MIDTRANS_SERVER_KEY")
		env := midtrans.Sandbox
		if os.Getenv("MIDTRANS_ENV") == "production" {
			env = midtrans.Production
		}

		var client snap.Client
		client.New(serverKey, env)

		depositService = &DepositService{
			DB:         db,
			Flow:       NewReservationFlow(db),
			snapClient: client,
			serverKey:  serverKey,
		}
	})
	return depositService
}

// DepositRate is the fraction of the estimated booking value charged up
// front. Whole-venue bookings are charged per guest.
const (
	depositPerGuest = 25.0
	depositMinimum  = 200.0
)

// RequiresDeposit reports whether a reservation type needs a settled deposit
// before confirmation.
func RequiresDeposit(t models.ReservationType) bool {
	return t == models.ReservationTypeFullRestaurant || t == models.ReservationTypePrivateEvent
}

// DepositAmount computes the charge for a reservation.
func DepositAmount(res *models.Reservation) float64 {
	amount := float64(res.GuestCount) * depositPerGuest
	if amount < depositMinimum {
		amount = depositMinimum
	}
	return amount
}

// CreateDeposit opens a PENDING deposit and a Snap transaction for it. The
// returned deposit carries the token the client pays with.
func (ds *DepositService) CreateDeposit(reservationID uint) (*models.Deposit, error) {
	var res models.Reservation
	if err := ds.DB.Preload("Customer").First(&res, reservationID).Error; err != nil {
		return nil, err
	}
	if !RequiresDeposit(res.Type) {
		return nil, fmt.Errorf("reservation type %s does not take a deposit", res.Type)
	}
	if res.Status != models.ReservationPending {
		return nil, fmt.Errorf("deposit can only be created for a pending reservation")
	}

	var existing models.Deposit
	if err := ds.DB.Where("reservation_id = ?", res.ID).First(&existing).Error; err == nil {
		if existing.Status == models.DepositPending || existing.Status == models.DepositSettled {
			return &existing, nil
		}
	}

	amount := DepositAmount(&res)
	gatewayOrderID := fmt.Sprintf("DEP-%s-%d", res.ReservationNumber, time.Now().Unix())

	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  gatewayOrderID,
			GrossAmt: int64(amount),
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: res.Customer.Name,
			Email: res.Customer.Email,
			Phone: res.Customer.Phone,
		},
		Expiry: &snap.ExpiryDetails{
			Unit:     "hour",
			Duration: 24,
		},
	}

	snapResp, snapErr := ds.snapClient.CreateTransaction(req)
	if snapErr != nil {
		return nil, fmt.Errorf("creating snap transaction: %w", snapErr)
	}

	deposit := models.Deposit{
		ReservationID:  res.ID,
		Amount:         amount,
		GatewayOrderID: gatewayOrderID,
		SnapToken:      snapResp.Token,
		RedirectURL:    snapResp.RedirectURL,
		Status:         models.DepositPending,
	}
	if err := ds.DB.Create(&deposit).Error; err != nil {
		return nil, err
	}

	utils.InfoLogger.Printf("Deposit %s created for reservation %s (%.2f)",
		gatewayOrderID, res.ReservationNumber, amount)
	realtime.BroadcastDepositUpdate(deposit)
	return &deposit, nil
}

// ValidateSignature checks the sha512 notification signature Midtrans sends
// with every callback.
func (ds *DepositService) ValidateSignature(orderID, statusCode, grossAmount, signature string) bool {
	payload := orderID + statusCode + grossAmount + ds.serverKey
	hash := sha512.Sum512([]byte(payload))
	return hex.EncodeToString(hash[:]) == signature
}

// HandleCallback settles or voids a deposit from a verified gateway
// notification. Settlement confirms the reservation in the same flow.
func (ds *DepositService) HandleCallback(gatewayOrderID, transactionStatus string) (*models.Deposit, error) {
	var deposit models.Deposit
	if err := ds.DB.Where("gateway_order_id = ?", gatewayOrderID).First(&deposit).Error; err != nil {
		return nil, err
	}
	if deposit.Status != models.DepositPending {
		// Gateways retry callbacks; a repeat for a finished deposit is fine.
		return &deposit, nil
	}

	var next models.DepositStatus
	switch transactionStatus {
	case "capture", "settlement":
		next = models.DepositSettled
	case "expire":
		next = models.DepositExpired
	case "cancel", "deny":
		next = models.DepositCancelled
	case "pending", "authorize":
		return &deposit, nil
	default:
		return nil, fmt.Errorf("unknown transaction status %q", transactionStatus)
	}

	updates := map[string]interface{}{"status": next}
	if next == models.DepositSettled {
		now := time.Now()
		updates["settled_at"] = now
	}
	if err := ds.DB.Model(&deposit).Updates(updates).Error; err != nil {
		return nil, err
	}

	switch next {
	case models.DepositSettled:
		if _, err := ds.Flow.Transition(deposit.ReservationID, TransitionInput{
			Next:        models.ReservationConfirmed,
			Notes:       "deposit settled via gateway",
			PerformedBy: "payment-gateway",
		}); err != nil {
			var invalid *InvalidTransitionError
			if !errors.As(err, &invalid) {
				return nil, err
			}
			// Reservation already left PENDING (e.g. staff cancelled while
			// payment was in flight); keep the settled deposit for refund
			// handling but do not fail the callback.
			utils.ErrorLogger.Printf("deposit %s settled but reservation not confirmable: %v",
				deposit.GatewayOrderID, err)
		}
	case models.DepositExpired, models.DepositCancelled:
		if _, err := ds.Flow.Transition(deposit.ReservationID, TransitionInput{
			Next:        models.ReservationCancelled,
			Reason:      "deposit " + string(next),
			PerformedBy: "payment-gateway",
		}); err != nil {
			var invalid *InvalidTransitionError
			if !errors.As(err, &invalid) {
				return nil, err
			}
		}
	}

	utils.InfoLogger.Printf("Deposit %s -> %s", deposit.GatewayOrderID, next)
	realtime.BroadcastDepositUpdate(deposit)
	return &deposit, nil
}

// ParseGrossAmount is a helper for callback validation, where Midtrans sends
// amounts as "200000.00" strings.
func ParseGrossAmount(raw string) (float64, error) {
	return strconv.ParseFloat(raw, 64)
}
