package model

import "time"

type PickupStatus string

const (
	StatusPending   PickupStatus = "pending"
	StatusAssigned  PickupStatus = "assigned"
	StatusCompleted PickupStatus = "completed"
	StatusCancelled PickupStatus = "cancelled"
)

// ParsePickupStatus returns the status named by s, or false when s is not
// one of the four known values.
func ParsePickupStatus(s string) (PickupStatus, bool) {
	switch st := PickupStatus(s); st {
	case StatusPending, StatusAssigned, StatusCompleted, StatusCancelled:
		return st, true
	}
	return "", false
}

// Pickup is a scheduled collection of surplus food posted by an
// organization and, once assigned, carried out by one volunteer.
//
// After creation only Status and VolunteerID change. VolunteerID is nil
// while the pickup is pending and set once it is assigned.
type Pickup struct {
	ID              int64        `json:"id"`
	NGOID           int64        `json:"ngoId"`
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	Address         string       `json:"address"`
	City            string       `json:"city"`
	State           string       `json:"state"`
	ZipCode         string       `json:"zipCode"`
	FoodItems       string       `json:"foodItems"`
	Quantity        string       `json:"quantity"`
	PickupTime      time.Time    `json:"pickupTime"`
	PickupEndTime   time.Time    `json:"pickupEndTime"`
	Destination     string       `json:"destination"`
	AdditionalNotes *string      `json:"additionalNotes"`
	Status          PickupStatus `json:"status"`
	VolunteerID     *int64       `json:"volunteerId"`
	Distance        *string      `json:"distance"` // opaque, never computed
	CreatedAt       time.Time    `json:"createdAt"`
}
