package application

import (
	"context"

	"github.com/barazo-forum/barazo-trust/internal/domain"
)

// RecordReply records a reply from actor to target as graph weight.
func (s *Service) RecordReply(ctx context.Context, actorDid, targetDid, communityDid string) error {
	return s.recordInteraction(ctx, actorDid, targetDid, domain.InteractionReply)
}

// RecordReaction records a reaction (vote/like) from actor to target.
func (s *Service) RecordReaction(ctx context.Context, actorDid, targetDid, communityDid string) error {
	return s.recordInteraction(ctx, actorDid, targetDid, domain.InteractionReaction)
}

// RecordCoParticipation records pairwise co-participation weight between
// every pair of accounts active in the same topic. The content path passes
// the participant set it already has in hand.
func (s *Service) RecordCoParticipation(ctx context.Context, topicURI, communityDid string, participants []string) error {
	seen := make(map[string]bool, len(participants))
	var unique []string
	for _, did := range participants {
		if did == "" || seen[did] {
			continue
		}
		if err := domain.ValidateDid(did); err != nil {
			return err
		}
		seen[did] = true
		unique = append(unique, did)
	}
	now := s.nowFn()
	weight := domain.InteractionWeight(domain.InteractionCoParticipation)
	for i := 0; i < len(unique); i++ {
		for j := i + 1; j < len(unique); j++ {
			src, dst, err := domain.NormalizeEdge(unique[i], unique[j])
			if err != nil {
				continue
			}
			if err := s.edges.Accumulate(ctx, src, dst, weight, now); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Service) recordInteraction(ctx context.Context, a, b, kind string) error {
	if err := domain.ValidateDid(a); err != nil {
		return err
	}
	if err := domain.ValidateDid(b); err != nil {
		return err
	}
	src, dst, err := domain.NormalizeEdge(a, b)
	if err != nil {
		return err
	}
	return s.edges.Accumulate(ctx, src, dst, domain.InteractionWeight(kind), s.nowFn())
}
