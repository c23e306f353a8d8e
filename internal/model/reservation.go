package model

import "time"

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
    ReservationPending    ReservationStatus = "pending"
    ReservationReserved   ReservationStatus = "reserved"
    ReservationProcessing ReservationStatus = "processing"
    ReservationPurchased  ReservationStatus = "purchased"
    ReservationCancelled  ReservationStatus = "cancelled"
    ReservationRejected   ReservationStatus = "rejected"
)

// Terminal reports whether no further transition is permitted.
func (s ReservationStatus) Terminal() bool {
    switch s {
    case ReservationPurchased, ReservationCancelled, ReservationRejected:
        return true
    }
    return false
}

// Active reports whether a reservation in this state may still change.
func (s ReservationStatus) Active() bool {
    switch s {
    case ReservationPending, ReservationReserved, ReservationProcessing:
        return true
    }
    return false
}

// HoldsSeats reports whether a reservation in this state keeps its seats
// unavailable.  A purchase keeps them for good; rejected and cancelled
// reservations have handed them back.
func (s ReservationStatus) HoldsSeats() bool {
    return s.Active() || s == ReservationPurchased
}

// ReservationMode selects the initial state of a new reservation.
type ReservationMode string

const (
    // ModePurchase starts the reservation as pending.
    ModePurchase ReservationMode = "purchase"
    // ModeReserve starts the reservation as reserved.
    ModeReserve ReservationMode = "reserve"
)

// StatusChange is one entry of a reservation's append-only history.
type StatusChange struct {
    Status ReservationStatus `json:"status"` // reservation_status_history.status
    At     time.Time         `json:"at"`     // reservation_status_history.changed_at
}

// Reservation records a user's claim on a set of seats of one showing.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – user who made the reservation.
//  ShowingID – showing the seats belong to.
//  Seats     – non-empty set of seat names.
//  Status    – current state; always equal to the last History entry.
//  History   – status changes in order of occurrence, never rewritten.
//  Version   – optimistic concurrency counter bumped on every change.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Reservation struct {
    ID        uint64            `json:"id"`         // reservations.id
    UserID    uint64            `json:"user_id"`    // reservations.user_id
    ShowingID uint64            `json:"showing_id"` // reservations.showing_id
    Seats     []string          `json:"seats"`      // reservation_seats.seat_name
    Status    ReservationStatus `json:"status"`     // reservations.status
    History   []StatusChange    `json:"status_history"`
    Version   uint32            `json:"-"`          // reservations.version
    CreatedAt time.Time         `json:"created_at"` // reservations.created_at
    UpdatedAt time.Time         `json:"updated_at"` // reservations.updated_at
}
