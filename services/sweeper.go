package services

import (
	"time"

	"gorm.io/gorm"

	"github.com/tablebook/tablebook/models"
	"github.com/tablebook/tablebook/utils"
)

// ReservationSweeper periodically marks overdue CONFIRMED reservations as
// NO_SHOW and frees their tables. PENDING reservations left unconfirmed past
// their start time are cancelled.
type ReservationSweeper struct {
	DB       *gorm.DB
	Flow     *ReservationFlow
	Interval time.Duration
	// Grace is how long past the booked time a confirmed party may still
	// arrive before being marked NO_SHOW.
	Grace    time.Duration
	stopChan chan struct{}
}

func NewReservationSweeper(db *gorm.DB) *ReservationSweeper {
	return &ReservationSweeper{
		DB:       db,
		Flow:     NewReservationFlow(db),
		Interval: 1 * time.Minute,
		Grace:    30 * time.Minute,
		stopChan: make(chan struct{}),
	}
}

func (rs *ReservationSweeper) Start() {
	go func() {
		ticker := time.NewTicker(rs.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rs.Sweep()
			case <-rs.stopChan:
				return
			}
		}
	}()
}

func (rs *ReservationSweeper) Stop() {
	close(rs.stopChan)
}

// Sweep runs one pass. Exported so tests and an admin endpoint can trigger
// it directly.
func (rs *ReservationSweeper) Sweep() {
	rs.sweepStatus(models.ReservationConfirmed, models.ReservationNoShow, rs.Grace,
		"auto-marked no-show after grace period")
	rs.sweepStatus(models.ReservationPending, models.ReservationCancelled, 0,
		"auto-cancelled: still unconfirmed at reservation time")
}

func (rs *ReservationSweeper) sweepStatus(from, to models.ReservationStatus, grace time.Duration, note string) {
	var candidates []models.Reservation
	if err := rs.DB.Preload("Restaurant").
		Where("status = ? AND checked_in_at IS NULL", from).
		Find(&candidates).Error; err != nil {
		utils.ErrorLogger.Printf("sweeper: fetching %s reservations: %v", from, err)
		return
	}

	now := time.Now()
	for _, res := range candidates {
		loc, err := time.LoadLocation(res.Restaurant.Timezone)
		if err != nil {
			loc = time.UTC
		}
		start, err := res.StartsAt(loc)
		if err != nil {
			utils.ErrorLogger.Printf("sweeper: reservation %s has bad date/time: %v", res.ReservationNumber, err)
			continue
		}
		if now.Before(start.Add(grace)) {
			continue
		}

		input := TransitionInput{
			Next:        to,
			Notes:       note,
			PerformedBy: "sweeper",
		}
		if to == models.ReservationCancelled {
			input.Reason = note
		}
		if _, err := rs.Flow.Transition(res.ID, input); err != nil {
			utils.ErrorLogger.Printf("sweeper: transitioning %s to %s: %v", res.ReservationNumber, to, err)
			continue
		}
		utils.InfoLogger.Printf("sweeper: reservation %s -> %s", res.ReservationNumber, to)
	}
}
