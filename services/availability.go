package services

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/tablebook/tablebook/models"
)

// AvailabilityService answers "can this party be seated" questions by
// interval-overlap checks against held reservations.
type AvailabilityService struct {
	DB *gorm.DB
}

func NewAvailabilityService(db *gorm.DB) *AvailabilityService {
	return &AvailabilityService{DB: db}
}

// AvailabilityRequest describes one requested slot. Duration falls back to
// the reservation default when zero.
type AvailabilityRequest struct {
	RestaurantID    uint                   `json:"restaurant_id" binding:"required"`
	Date            string                 `json:"date" binding:"required"` // YYYY-MM-DD
	Time            string                 `json:"time" binding:"required"` // HH:MM
	GuestCount      int                    `json:"guest_count" binding:"required,gt=0"`
	DurationMinutes int                    `json:"duration_minutes"`
	Type            models.ReservationType `json:"type"`
	// ExcludeReservationID ignores one reservation's own hold, so that
	// editing or re-assigning a booking does not collide with itself.
	ExcludeReservationID uint `json:"-"`
}

func (r *AvailabilityRequest) interval(loc *time.Location) (start, end time.Time, err error) {
	start, err = time.ParseInLocation("2006-01-02 15:04", r.Date+" "+r.Time, loc)
	if err != nil {
		return
	}
	d := time.Duration(r.DurationMinutes) * time.Minute
	if d <= 0 {
		d = models.DefaultReservationDuration
	}
	end = start.Add(d)
	return
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// AvailableTables returns the candidate tables for the requested slot in
// best-fit order: smallest sufficient capacity first.
func (s *AvailabilityService) AvailableTables(req AvailabilityRequest) ([]models.Table, error) {
	var restaurant models.Restaurant
	if err := s.DB.First(&restaurant, req.RestaurantID).Error; err != nil {
		return nil, fmt.Errorf("restaurant not found: %w", err)
	}

	loc, err := time.LoadLocation(restaurant.Timezone)
	if err != nil {
		loc = time.UTC
	}

	start, end, err := req.interval(loc)
	if err != nil {
		return nil, fmt.Errorf("invalid date/time: %w", err)
	}

	if err := s.checkOpeningHours(restaurant, req, loc); err != nil {
		return nil, err
	}

	holds, err := s.holdsOn(req.RestaurantID, req.Date, req.ExcludeReservationID)
	if err != nil {
		return nil, err
	}

	// A full-restaurant or private-event hold overlapping the slot blocks
	// every table. Likewise a whole-venue request needs the slot entirely
	// clear.
	blockedTables := make(map[uint]bool)
	for _, hold := range holds {
		hStart, hEnd, err := hold.Interval(loc)
		if err != nil || !overlaps(start, end, hStart, hEnd) {
			continue
		}
		if hold.BlocksWholeRestaurant() {
			return nil, nil
		}
		if req.Type == models.ReservationTypeFullRestaurant || req.Type == models.ReservationTypePrivateEvent {
			return nil, nil
		}
		if hold.TableID != nil {
			blockedTables[*hold.TableID] = true
		}
	}

	var tables []models.Table
	q := s.DB.Where("restaurant_id = ? AND status <> ?", req.RestaurantID, models.TableOutOfService)
	if req.Type == "" || req.Type == models.ReservationTypeTable {
		q = q.Where("capacity >= ?", req.GuestCount)
	}
	if err := q.Find(&tables).Error; err != nil {
		return nil, err
	}

	candidates := tables[:0]
	for _, t := range tables {
		if !blockedTables[t.ID] {
			candidates = append(candidates, t)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Capacity != candidates[j].Capacity {
			return candidates[i].Capacity < candidates[j].Capacity
		}
		return candidates[i].TableNumber < candidates[j].TableNumber
	})

	return candidates, nil
}

// Check reports whether the slot can be booked at all, with a human-readable
// reason when it cannot.
func (s *AvailabilityService) Check(req AvailabilityRequest) (bool, string, error) {
	tables, err := s.AvailableTables(req)
	if err != nil {
		var hoursErr *OutsideOpeningHoursError
		if errors.As(err, &hoursErr) {
			return false, hoursErr.Error(), nil
		}
		return false, "", err
	}
	if len(tables) == 0 {
		return false, "no tables available for the requested time and party size", nil
	}
	return true, "", nil
}

// TableFreeFor reports whether one specific table is free for the slot.
// Used by table assignment to validate before linking.
func (s *AvailabilityService) TableFreeFor(table models.Table, req AvailabilityRequest) (bool, string, error) {
	if table.Status == models.TableOutOfService {
		return false, "table is out of service", nil
	}
	if table.Capacity < req.GuestCount {
		return false, fmt.Sprintf("table seats %d, party is %d", table.Capacity, req.GuestCount), nil
	}

	candidates, err := s.AvailableTables(req)
	if err != nil {
		return false, "", err
	}
	for _, t := range candidates {
		if t.ID == table.ID {
			return true, "", nil
		}
	}
	return false, "table is already held for an overlapping reservation", nil
}

// holdsOn loads the reservations that hold capacity on a date: PENDING and
// CONFIRMED ones. Terminal statuses hold nothing.
func (s *AvailabilityService) holdsOn(restaurantID uint, date string, exclude uint) ([]models.Reservation, error) {
	var holds []models.Reservation
	q := s.DB.Where("restaurant_id = ? AND date = ? AND status IN ?",
		restaurantID, date,
		[]models.ReservationStatus{models.ReservationPending, models.ReservationConfirmed})
	if exclude != 0 {
		q = q.Where("id <> ?", exclude)
	}
	if err := q.Find(&holds).Error; err != nil {
		return nil, err
	}
	return holds, nil
}

// OutsideOpeningHoursError distinguishes a policy rejection from an
// infrastructure failure.
type OutsideOpeningHoursError struct {
	OpensAt  string
	ClosesAt string
}

func (e *OutsideOpeningHoursError) Error() string {
	return fmt.Sprintf("requested time is outside opening hours (%s-%s)", e.OpensAt, e.ClosesAt)
}

func (s *AvailabilityService) checkOpeningHours(restaurant models.Restaurant, req AvailabilityRequest, loc *time.Location) error {
	opens, err1 := time.ParseInLocation("2006-01-02 15:04", req.Date+" "+restaurant.OpensAt, loc)
	closes, err2 := time.ParseInLocation("2006-01-02 15:04", req.Date+" "+restaurant.ClosesAt, loc)
	if err1 != nil || err2 != nil {
		return nil // malformed hours on the restaurant never block booking
	}
	// Overnight closing (e.g. 18:00-02:00) rolls to the next day.
	if !closes.After(opens) {
		closes = closes.Add(24 * time.Hour)
	}

	start, end, err := req.interval(loc)
	if err != nil {
		return err
	}
	if start.Before(opens) || end.After(closes) {
		return &OutsideOpeningHoursError{OpensAt: restaurant.OpensAt, ClosesAt: restaurant.ClosesAt}
	}
	return nil
}
