package proposer

import "service-courier-match/internal/domain"

// Scorer rates a request/flight pair. ok is false when the pair cannot be
// matched at all; a higher score is a better fit.
type Scorer interface {
	Score(req, flight domain.CatalogEntry) (score float64, ok bool)
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(req, flight domain.CatalogEntry) (float64, bool)

// Score implements Scorer.
func (f ScorerFunc) Score(req, flight domain.CatalogEntry) (float64, bool) {
	return f(req, flight)
}

// RouteWindowScorer accepts a flight on the request's route that departs
// inside the request window with enough spare capacity. Less unused capacity
// scores higher.
func RouteWindowScorer() Scorer {
	return ScorerFunc(routeWindow)
}

func routeWindow(req, flight domain.CatalogEntry) (float64, bool) {
	if req.Kind != domain.KindRequest || flight.Kind != domain.KindFlight {
		return 0, false
	}
	if !req.SameRoute(flight) {
		return 0, false
	}
	dep := flight.WindowStart
	if !req.WindowStart.IsZero() && dep.Before(req.WindowStart) {
		return 0, false
	}
	if !req.WindowEnd.IsZero() && dep.After(req.WindowEnd) {
		return 0, false
	}
	slack := flight.WeightKg - req.WeightKg
	if req.WeightKg <= 0 || slack < 0 {
		return 0, false
	}
	return 1 / (1 + slack), true
}
