package application

import (
	"time"

	"github.com/barazo-forum/barazo-trust/internal/domain"
	"github.com/barazo-forum/barazo-trust/internal/ports"
)

// Config carries the immutable per-service settings threaded through
// engine calls. Loaded once at bootstrap, never re-read ad hoc.
type Config struct {
	Trust    domain.TrustSettings
	AntiSpam domain.AntiSpamSettings
}

type Service struct {
	cfg         Config
	edges       ports.EdgeRepository
	accounts    ports.AccountRepository
	seeds       ports.TrustSeedRepository
	pdsFactors  ports.PdsTrustRepository
	scores      ports.TrustScoreRepository
	clusters    ports.ClusterRepository
	flags       ports.FlagRepository
	queue       ports.ModerationQueueRepository
	communities ports.CommunityRepository
	outbox      ports.OutboxRepository
	counters    ports.CounterStore
	gate        ports.RecomputeGate
	labels      ports.SpamLabelClient
	nowFn       func() time.Time
}

type Dependencies struct {
	Config      Config
	Edges       ports.EdgeRepository
	Accounts    ports.AccountRepository
	Seeds       ports.TrustSeedRepository
	PdsFactors  ports.PdsTrustRepository
	Scores      ports.TrustScoreRepository
	Clusters    ports.ClusterRepository
	Flags       ports.FlagRepository
	Queue       ports.ModerationQueueRepository
	Communities ports.CommunityRepository
	Outbox      ports.OutboxRepository
	Counters    ports.CounterStore
	Gate        ports.RecomputeGate
	Labels      ports.SpamLabelClient
}

func NewService(deps Dependencies) *Service {
	return &Service{
		cfg:         deps.Config,
		edges:       deps.Edges,
		accounts:    deps.Accounts,
		seeds:       deps.Seeds,
		pdsFactors:  deps.PdsFactors,
		scores:      deps.Scores,
		clusters:    deps.Clusters,
		flags:       deps.Flags,
		queue:       deps.Queue,
		communities: deps.Communities,
		outbox:      deps.Outbox,
		counters:    deps.Counters,
		gate:        deps.Gate,
		labels:      deps.Labels,
		nowFn:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock. Test-only seam, mirrors nowFn use
// throughout the engine.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.nowFn = now
	return s
}
