package model

// MealsPerCompletedPickup is the fixed estimate used for the public
// "meals saved" counter.
const MealsPerCompletedPickup = 25

// Stats is the public impact summary shown on the landing page.
type Stats struct {
	TotalMealsSaved  int64 `json:"totalMealsSaved"`
	ActiveVolunteers int64 `json:"activeVolunteers"`
	PartnerNGOs      int64 `json:"partnerNGOs"`
}
