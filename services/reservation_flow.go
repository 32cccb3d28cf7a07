package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tablebook/tablebook/models"
	"github.com/tablebook/tablebook/realtime"
)

var (
	// ErrStaleVersion means the caller's optimistic version lost the race.
	ErrStaleVersion = errors.New("reservation was modified concurrently, refresh and retry")
	// ErrStaleTableVersion is the table-side equivalent.
	ErrStaleTableVersion = errors.New("table was modified concurrently, refresh and retry")
)

// InvalidTransitionError reports a status change the lifecycle forbids.
type InvalidTransitionError struct {
	From, To string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition from %s to %s", e.From, e.To)
}

// ReservationFlow owns every reservation status change: lifecycle
// validation, optimistic locking, the table side effects, the audit log and
// the dashboard broadcast. Handlers and the sweeper both go through here so
// the rules cannot diverge.
type ReservationFlow struct {
	DB *gorm.DB
}

func NewReservationFlow(db *gorm.DB) *ReservationFlow {
	return &ReservationFlow{DB: db}
}

// TransitionInput carries one requested status change. Version nil means the
// caller opted out of optimistic checking (last write wins).
type TransitionInput struct {
	Next        models.ReservationStatus
	Notes       string
	Reason      string
	PerformedBy string
	Version     *uint
}

// Transition applies a status change atomically and returns the updated
// reservation.
func (f *ReservationFlow) Transition(reservationID uint, in TransitionInput) (*models.Reservation, error) {
	var updated models.Reservation

	err := f.DB.Transaction(func(tx *gorm.DB) error {
		var res models.Reservation
		if err := tx.Preload("Customer").Preload("Table").First(&res, reservationID).Error; err != nil {
			return err
		}

		if !models.CanTransitionReservation(res.Status, in.Next) {
			return &InvalidTransitionError{From: string(res.Status), To: string(in.Next)}
		}
		if in.Version != nil && *in.Version != res.Version {
			return ErrStaleVersion
		}

		from := res.Status
		now := time.Now()

		updates := map[string]interface{}{
			"status":  in.Next,
			"version": res.Version + 1,
		}
		switch in.Next {
		case models.ReservationCompleted:
			updates["completed_at"] = now
		case models.ReservationCancelled:
			if in.Reason != "" {
				updates["cancellation_reason"] = in.Reason
			}
		}

		result := tx.Model(&models.Reservation{}).
			Where("id = ? AND version = ?", res.ID, res.Version).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStaleVersion
		}

		if err := f.applyTableSideEffects(tx, &res, in.Next); err != nil {
			return err
		}

		log := models.ReservationStatusLog{
			ReservationID: res.ID,
			FromStatus:    from,
			ToStatus:      in.Next,
			Notes:         in.Notes,
			PerformedBy:   in.PerformedBy,
		}
		if err := tx.Create(&log).Error; err != nil {
			return err
		}

		return tx.Preload("Customer").Preload("Table").First(&updated, res.ID).Error
	})
	if err != nil {
		return nil, err
	}

	realtime.BroadcastReservationUpdate(updated)
	if updated.Table != nil {
		realtime.BroadcastTableUpdate(*updated.Table)
	}
	return &updated, nil
}

// CheckIn records the party's arrival: the reservation stays CONFIRMED while
// they dine, the table goes OCCUPIED.
func (f *ReservationFlow) CheckIn(reservationID uint, performedBy string) (*models.Reservation, error) {
	var updated models.Reservation

	err := f.DB.Transaction(func(tx *gorm.DB) error {
		var res models.Reservation
		if err := tx.Preload("Customer").Preload("Table").First(&res, reservationID).Error; err != nil {
			return err
		}

		if res.Status != models.ReservationConfirmed {
			return &InvalidTransitionError{From: string(res.Status), To: "checked-in"}
		}
		if res.CheckedInAt != nil {
			return errors.New("reservation already checked in")
		}

		now := time.Now()
		result := tx.Model(&models.Reservation{}).
			Where("id = ? AND version = ?", res.ID, res.Version).
			Updates(map[string]interface{}{
				"checked_in_at": now,
				"version":       res.Version + 1,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStaleVersion
		}

		if res.TableID != nil {
			if err := moveTable(tx, *res.TableID, models.TableOccupied); err != nil {
				return err
			}
		}

		log := models.ReservationStatusLog{
			ReservationID: res.ID,
			FromStatus:    res.Status,
			ToStatus:      res.Status,
			Notes:         "guest checked in",
			PerformedBy:   performedBy,
		}
		if err := tx.Create(&log).Error; err != nil {
			return err
		}

		return tx.Preload("Customer").Preload("Table").First(&updated, res.ID).Error
	})
	if err != nil {
		return nil, err
	}

	realtime.BroadcastReservationUpdate(updated)
	if updated.Table != nil {
		realtime.BroadcastTableUpdate(*updated.Table)
	}
	return &updated, nil
}

// applyTableSideEffects keeps the assigned table's status in step with the
// reservation lifecycle.
func (f *ReservationFlow) applyTableSideEffects(tx *gorm.DB, res *models.Reservation, next models.ReservationStatus) error {
	if res.TableID == nil {
		return nil
	}

	var table models.Table
	if err := tx.First(&table, *res.TableID).Error; err != nil {
		return err
	}

	switch next {
	case models.ReservationConfirmed:
		if table.Status == models.TableAvailable {
			return moveTable(tx, table.ID, models.TableReserved)
		}
	case models.ReservationCompleted:
		switch table.Status {
		case models.TableOccupied:
			// The table needs bussing before the next party.
			if err := moveTable(tx, table.ID, models.TableOutOfService); err != nil {
				return err
			}
			svc := models.ServiceLog{
				TableID:   table.ID,
				Reason:    "bussing after reservation " + res.ReservationNumber,
				StartedAt: time.Now(),
			}
			return tx.Create(&svc).Error
		case models.TableReserved:
			// The party never checked in, so the table was never used and
			// needs no bussing.
			return moveTable(tx, table.ID, models.TableAvailable)
		}
	case models.ReservationCancelled, models.ReservationNoShow:
		if table.Status == models.TableReserved {
			return moveTable(tx, table.ID, models.TableAvailable)
		}
	}
	return nil
}

// moveTable validates and applies a table transition with its own version
// bump.
func moveTable(tx *gorm.DB, tableID uint, next models.TableStatus) error {
	var table models.Table
	if err := tx.First(&table, tableID).Error; err != nil {
		return err
	}
	if table.Status == next {
		return nil
	}
	if !models.CanTransitionTable(table.Status, next) {
		return &InvalidTransitionError{From: string(table.Status), To: string(next)}
	}

	result := tx.Model(&models.Table{}).
		Where("id = ? AND version = ?", table.ID, table.Version).
		Updates(map[string]interface{}{
			"status":  next,
			"version": table.Version + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleTableVersion
	}
	return nil
}
