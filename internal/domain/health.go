package domain

import "time"

// HealthSnapshot is the dispatch health view produced by the sweeper.
type HealthSnapshot struct {
	TakenAt        time.Time
	DriversOnline  int
	DriversBusy    int
	Utilization    float64
	PendingOffers  int
	OffersAccepted int64
	OffersDeclined int64
	OffersExpired  int64
	AcceptRate     float64
}
