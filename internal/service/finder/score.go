package finder

import (
	"sort"

	"delivery-dispatch/internal/domain"
)

// Score computes a candidate's dispatch score for the given wave. Pure
// function of the snapshot and wave; no storage access.
//
// Distance-based weighting is deliberately absent: candidate selection is
// distance-naive beyond the wave's nominal radius label.
func Score(c domain.CandidateSnapshot, wave int) float64 {
	score := c.Rating * 10

	experience := float64(c.TotalDeliveries) / 100
	if experience > 1 {
		experience = 1
	}
	score += experience * 30

	score += c.CompletionRate * 0.2

	if c.ActiveAssignments == 0 {
		score += 10
	}

	// mild urgency boost in later waves
	return score * (1 + 0.1*float64(wave-1))
}

// Rank sorts candidates by descending score; ties broken by higher rating,
// then more deliveries.
func Rank(cands []domain.CandidateSnapshot, wave int) []domain.CandidateSnapshot {
	out := make([]domain.CandidateSnapshot, len(cands))
	copy(out, cands)

	sort.SliceStable(out, func(i, j int) bool {
		si, sj := Score(out[i], wave), Score(out[j], wave)
		if si != sj {
			return si > sj
		}
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].TotalDeliveries > out[j].TotalDeliveries
	})
	return out
}
