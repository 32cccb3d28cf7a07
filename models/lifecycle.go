package models

import "fmt"

// TableStatus is the occupancy state of a physical table.
type TableStatus string

const (
	TableAvailable    TableStatus = "AVAILABLE"
	TableReserved     TableStatus = "RESERVED"
	TableOccupied     TableStatus = "OCCUPIED"
	TableOutOfService TableStatus = "OUT_OF_SERVICE"
)

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "PENDING"
	ReservationConfirmed ReservationStatus = "CONFIRMED"
	ReservationCompleted ReservationStatus = "COMPLETED"
	ReservationCancelled ReservationStatus = "CANCELLED"
	ReservationNoShow    ReservationStatus = "NO_SHOW"
)

// tableTransitions is the single source of truth for which table status
// changes staff may perform. Every handler consults this map instead of
// encoding its own rules.
var tableTransitions = map[TableStatus][]TableStatus{
	TableAvailable:    {TableOccupied, TableReserved},
	TableOccupied:     {TableOutOfService, TableAvailable},
	TableReserved:     {TableOccupied, TableAvailable},
	TableOutOfService: {TableAvailable},
}

// reservationTransitions: COMPLETED, CANCELLED and NO_SHOW are terminal.
var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationPending:   {ReservationConfirmed, ReservationCancelled},
	ReservationConfirmed: {ReservationCompleted, ReservationCancelled, ReservationNoShow},
	ReservationCompleted: {},
	ReservationCancelled: {},
	ReservationNoShow:    {},
}

// AllowedTableTransitions returns the statuses a table may move to from cur.
func AllowedTableTransitions(cur TableStatus) []TableStatus {
	next, ok := tableTransitions[cur]
	if !ok {
		return nil
	}
	out := make([]TableStatus, len(next))
	copy(out, next)
	return out
}

// AllowedReservationTransitions returns the statuses a reservation may move
// to from cur. Empty for terminal statuses.
func AllowedReservationTransitions(cur ReservationStatus) []ReservationStatus {
	next, ok := reservationTransitions[cur]
	if !ok {
		return nil
	}
	out := make([]ReservationStatus, len(next))
	copy(out, next)
	return out
}

// CanTransitionTable reports whether cur -> next is a legal table move.
func CanTransitionTable(cur, next TableStatus) bool {
	for _, s := range tableTransitions[cur] {
		if s == next {
			return true
		}
	}
	return false
}

// CanTransitionReservation reports whether cur -> next is a legal
// reservation move.
func CanTransitionReservation(cur, next ReservationStatus) bool {
	for _, s := range reservationTransitions[cur] {
		if s == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a reservation status accepts no further
// transitions.
func (s ReservationStatus) IsTerminal() bool {
	return len(reservationTransitions[s]) == 0 && s != ReservationPending && s != ReservationConfirmed
}

// ParseTableStatus validates a wire value.
func ParseTableStatus(raw string) (TableStatus, error) {
	s := TableStatus(raw)
	if _, ok := tableTransitions[s]; !ok {
		return "", fmt.Errorf("unknown table status %q", raw)
	}
	return s, nil
}

// ParseReservationStatus validates a wire value.
func ParseReservationStatus(raw string) (ReservationStatus, error) {
	s := ReservationStatus(raw)
	if _, ok := reservationTransitions[s]; !ok {
		return "", fmt.Errorf("unknown reservation status %q", raw)
	}
	return s, nil
}
