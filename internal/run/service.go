package run

import (
	"context"
	"errors"
	"log"

	"github.com/PriyaanshPandey/KadamClashBackend/internal/conquest"
	"github.com/PriyaanshPandey/KadamClashBackend/internal/shared/geom"
	"github.com/PriyaanshPandey/KadamClashBackend/internal/stream"
	"github.com/PriyaanshPandey/KadamClashBackend/internal/territory"
)

var ErrInvalidAttempt = errors.New("duration, laps and avg_speed must be positive")

// captureRetries bounds how many times a submission is re-evaluated after a
// concurrent capture invalidates its rival snapshot.
const captureRetries = 3

// mapTopic is the stream topic map clients subscribe to for territory
// mutations.
const mapTopic = "map"

type Service struct {
	territories *territory.Service
	hub         *stream.Hub
}

func NewService(territories *territory.Service, hub *stream.Hub) *Service {
	return &Service{territories: territories, hub: hub}
}

// Submit evaluates one finished run end to end: normalize the path, fetch
// intersecting rivals, battle each of them, and commit the resulting
// mutation plan. On ErrTerritoryChanged the rival set is stale and the whole
// evaluation is retried from the read step.
func (s *Service) Submit(ctx context.Context, userID string, req SubmitRequest) (SubmitResponse, error) {
	if req.DurationSeconds <= 0 || req.Laps < 1 || req.AvgSpeed <= 0 {
		return SubmitResponse{}, ErrInvalidAttempt
	}

	run, err := geom.Normalize(req.RawCoordinates)
	if err != nil {
		return SubmitResponse{}, err
	}
	attempt := conquest.Attempt{
		DurationSeconds: req.DurationSeconds,
		Laps:            req.Laps,
		AvgSpeed:        req.AvgSpeed,
	}

	var lastErr error
	for i := 0; i < captureRetries; i++ {
		rivals, err := s.territories.IntersectingRivals(ctx, run.Polygon)
		if err != nil {
			return SubmitResponse{}, err
		}

		outcome, err := conquest.EvaluateAll(run, attempt, rivals)
		if err != nil {
			if errors.Is(err, conquest.ErrInconsistentPrefilter) {
				log.Printf("pre-filter inconsistency for user %s: %v", userID, err)
			}
			return SubmitResponse{}, err
		}

		if outcome.Tag == conquest.Defended {
			return SubmitResponse{
				Defended:     true,
				DefenderName: outcome.Defender.OwnerName,
				Reason:       outcome.Reason,
			}, nil
		}

		plan := conquest.PlanMutation(run, attempt, outcome, userID)
		for _, id := range plan.SkippedUnions {
			log.Printf("union with conquered territory %s failed, its land is dropped from the merge", id)
		}

		terr, err := s.territories.ExecutePlan(ctx, plan, outcome.Conquered, attempt, userID, outcome.Tag.String())
		if errors.Is(err, territory.ErrTerritoryChanged) {
			lastErr = err
			continue
		}
		if err != nil {
			return SubmitResponse{}, err
		}

		resp := SubmitResponse{
			TerritoryID: terr.ID,
			NewOwner:    userID,
			AreaM2:      terr.AreaM2,
		}
		event := stream.TerritoryEvent{
			Type:        outcome.Tag.String(),
			TerritoryID: terr.ID,
			OwnerID:     userID,
			DeletedIDs:  plan.Delete,
			AreaM2:      terr.AreaM2,
		}
		if outcome.Tag == conquest.Captured {
			resp.Captured = true
			// rivals arrive largest first, so [0] is the dominant holding
			resp.PreviousOwner = outcome.Conquered[0].OwnerID
			event.PreviousOwner = resp.PreviousOwner
		} else {
			resp.Created = true
		}

		if s.hub != nil {
			s.hub.BroadcastEvent(mapTopic, event)
		}
		return resp, nil
	}
	return SubmitResponse{}, lastErr
}
