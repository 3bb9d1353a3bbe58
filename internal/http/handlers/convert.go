package handlers

import "delivery-dispatch/internal/domain"

func driverStateToDTO(s *domain.DriverState) driverStateDTO {
	return driverStateDTO{
		DriverID:          s.DriverID,
		Online:            s.IsOnline,
		ActiveAssignments: s.ActiveAssignments,
		MaxConcurrent:     s.MaxConcurrent,
		ZoneID:            s.ZoneID,
		LastHeartbeatAt:   s.LastHeartbeatAt,
		OnlineSince:       s.OnlineSince,
		Lat:               s.Lat,
		Lng:               s.Lng,
	}
}

func assignmentToDTO(a domain.Assignment) assignmentDTO {
	return assignmentDTO{
		ID:          a.ID,
		OrderID:     a.OrderID,
		DriverID:    a.DriverID,
		Status:      string(a.Status),
		Wave:        a.Wave,
		OfferedAt:   a.OfferedAt,
		ExpiresAt:   a.ExpiresAt,
		RespondedAt: a.RespondedAt,
		AcceptedAt:  a.AcceptedAt,
	}
}

func healthToDTO(h domain.HealthSnapshot) healthDTO {
	return healthDTO{
		TakenAt:        h.TakenAt,
		DriversOnline:  h.DriversOnline,
		DriversBusy:    h.DriversBusy,
		Utilization:    h.Utilization,
		PendingOffers:  h.PendingOffers,
		OffersAccepted: h.OffersAccepted,
		OffersDeclined: h.OffersDeclined,
		OffersExpired:  h.OffersExpired,
		AcceptRate:     h.AcceptRate,
	}
}
