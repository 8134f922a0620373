package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/barazo-forum/barazo-trust/internal/domain"
	"github.com/barazo-forum/barazo-trust/internal/ports"
)

// Repositories is a mutex-guarded in-memory implementation of every
// storage port. It backs unit and contract tests; behavior mirrors the
// postgres adapter including sentinel errors and keyset pagination.
type Repositories struct {
	Edges       *EdgeRepository
	Accounts    *AccountRepository
	Seeds       *SeedRepository
	PdsFactors  *PdsFactorRepository
	Scores      *ScoreRepository
	Clusters    *ClusterRepository
	Flags       *FlagRepository
	Queue       *QueueRepository
	Communities *CommunityRepository
	Outbox      *OutboxRepository
}

func NewRepositories() *Repositories {
	return &Repositories{
		Edges:       &EdgeRepository{edges: map[edgeKey]domain.InteractionEdge{}},
		Accounts:    &AccountRepository{accounts: map[string]domain.Account{}, posts: map[string][]time.Time{}},
		Seeds:       &SeedRepository{seeds: map[string]domain.TrustSeed{}},
		PdsFactors:  &PdsFactorRepository{factors: map[string]domain.PdsTrustFactor{}},
		Scores:      &ScoreRepository{scores: map[string]domain.TrustScore{}},
		Clusters:    &ClusterRepository{clusters: map[uuid.UUID]domain.SybilCluster{}, members: map[uuid.UUID][]domain.SybilClusterMember{}},
		Flags:       &FlagRepository{flags: map[uuid.UUID]domain.BehavioralFlag{}},
		Queue:       &QueueRepository{entries: map[uuid.UUID]domain.ModerationQueueEntry{}},
		Communities: &CommunityRepository{words: map[string][]string{}},
		Outbox:      &OutboxRepository{records: map[uuid.UUID]ports.OutboxRecord{}},
	}
}

type edgeKey struct {
	source, target string
}

type EdgeRepository struct {
	mu    sync.RWMutex
	edges map[edgeKey]domain.InteractionEdge
}

func (r *EdgeRepository) Accumulate(_ context.Context, source, target string, weight float64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := edgeKey{source, target}
	edge, ok := r.edges[key]
	if !ok {
		edge = domain.InteractionEdge{SourceDid: source, TargetDid: target}
	}
	edge.Weight += weight
	edge.LastInteractionAt = at
	r.edges[key] = edge
	return nil
}

func (r *EdgeRepository) ListAll(_ context.Context) ([]domain.InteractionEdge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.InteractionEdge, 0, len(r.edges))
	for _, edge := range r.edges {
		out = append(out, edge)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SourceDid != out[j].SourceDid {
			return out[i].SourceDid < out[j].SourceDid
		}
		return out[i].TargetDid < out[j].TargetDid
	})
	return out, nil
}

func (r *EdgeRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.edges)), nil
}

func (r *EdgeRepository) NeighborsAbove(_ context.Context, did string, minWeight float64) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for key, edge := range r.edges {
		if edge.Weight < minWeight {
			continue
		}
		switch did {
		case key.source:
			out = append(out, key.target)
		case key.target:
			out = append(out, key.source)
		}
	}
	sort.Strings(out)
	return out, nil
}

type AccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]domain.Account
	posts    map[string][]time.Time
	outbox   *OutboxRepository

	// MonitorErr fails MonitorAll wholesale, standing in for a rolled-back
	// transaction.
	MonitorErr error
}

// WithOutbox wires transactional event capture for tests.
func (r *AccountRepository) WithOutbox(outbox *OutboxRepository) *AccountRepository {
	r.outbox = outbox
	return r
}

// Put seeds an account row for tests.
func (r *AccountRepository) Put(acct domain.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[acct.Did] = acct
}

// AddPosts seeds post timestamps for classification lookups.
func (r *AccountRepository) AddPosts(did string, at ...time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts[did] = append(r.posts[did], at...)
}

func (r *AccountRepository) Get(_ context.Context, did string) (domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acct, ok := r.accounts[did]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	return acct, nil
}

func (r *AccountRepository) ListByRoles(_ context.Context, roles []string) ([]domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	roleSet := make(map[string]bool, len(roles))
	for _, role := range roles {
		roleSet[role] = true
	}
	var out []domain.Account
	for _, acct := range r.accounts {
		if roleSet[acct.Role] {
			out = append(out, acct)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Did < out[j].Did })
	return out, nil
}

func (r *AccountRepository) GetMany(_ context.Context, dids []string) (map[string]domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]domain.Account, len(dids))
	for _, did := range dids {
		if acct, ok := r.accounts[did]; ok {
			out[did] = acct
		}
	}
	return out, nil
}

func (r *AccountRepository) PostCount(_ context.Context, did string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.posts[did]), nil
}

func (r *AccountRepository) RecentPostCount(_ context.Context, did string, window time.Duration, now time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cutoff := now.Add(-window)
	count := 0
	for _, at := range r.posts[did] {
		if at.After(cutoff) {
			count++
		}
	}
	return count, nil
}

func (r *AccountRepository) SetStanding(_ context.Context, did, standing string, banned bool, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, ok := r.accounts[did]
	if !ok {
		return domain.ErrNotFound
	}
	acct.Standing = standing
	acct.IsBanned = banned
	if banned {
		acct.BannedAt = &at
	}
	r.accounts[did] = acct
	return nil
}

func (r *AccountRepository) MonitorAll(ctx context.Context, dids []string, at time.Time, event ports.OutboxEvent) error {
	if r.MonitorErr != nil {
		return r.MonitorErr
	}
	if len(dids) == 0 {
		return nil
	}
	r.mu.Lock()
	for _, did := range dids {
		acct, ok := r.accounts[did]
		if !ok || acct.IsBanned {
			continue
		}
		acct.Standing = domain.StandingMonitored
		r.accounts[did] = acct
	}
	r.mu.Unlock()
	if r.outbox != nil {
		return r.outbox.Enqueue(ctx, event)
	}
	return nil
}

type SeedRepository struct {
	mu    sync.RWMutex
	seeds map[string]domain.TrustSeed
}

func (r *SeedRepository) List(_ context.Context) ([]domain.TrustSeed, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.TrustSeed, 0, len(r.seeds))
	for _, seed := range r.seeds {
		out = append(out, seed)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *SeedRepository) Add(_ context.Context, seed domain.TrustSeed) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seeds[seed.Did]; ok {
		return domain.ErrConflict
	}
	r.seeds[seed.Did] = seed
	return nil
}

func (r *SeedRepository) Remove(_ context.Context, did string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seeds[did]; !ok {
		return domain.ErrNotFound
	}
	delete(r.seeds, did)
	return nil
}

type PdsFactorRepository struct {
	mu      sync.RWMutex
	factors map[string]domain.PdsTrustFactor
}

func (r *PdsFactorRepository) List(_ context.Context) ([]domain.PdsTrustFactor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.PdsTrustFactor, 0, len(r.factors))
	for _, f := range r.factors {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PdsHost < out[j].PdsHost })
	return out, nil
}

func (r *PdsFactorRepository) Upsert(_ context.Context, factor domain.PdsTrustFactor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if factor.IsDefault {
		for host, f := range r.factors {
			if f.IsDefault && host != factor.PdsHost {
				f.IsDefault = false
				r.factors[host] = f
			}
		}
	}
	r.factors[factor.PdsHost] = factor
	return nil
}

func (r *PdsFactorRepository) Default(_ context.Context) (domain.PdsTrustFactor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, f := range r.factors {
		if f.IsDefault {
			return f, nil
		}
	}
	return domain.PdsTrustFactor{}, domain.ErrNotFound
}

type ScoreRepository struct {
	mu      sync.RWMutex
	scores  map[string]domain.TrustScore
	lastRun *ports.TrustRunStats
	outbox  *OutboxRepository
}

// WithOutbox wires transactional event capture for tests.
func (r *ScoreRepository) WithOutbox(outbox *OutboxRepository) *ScoreRepository {
	r.outbox = outbox
	return r
}

// Put seeds a score row for tests.
func (r *ScoreRepository) Put(score domain.TrustScore) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scores[score.Did] = score
}

func (r *ScoreRepository) ReplaceAll(ctx context.Context, scores []domain.TrustScore, stats ports.TrustRunStats, event ports.OutboxEvent) error {
	r.mu.Lock()
	r.scores = make(map[string]domain.TrustScore, len(scores))
	for _, s := range scores {
		r.scores[s.Did] = s
	}
	statsCopy := stats
	r.lastRun = &statsCopy
	r.mu.Unlock()
	if r.outbox != nil {
		return r.outbox.Enqueue(ctx, event)
	}
	return nil
}

func (r *ScoreRepository) Get(_ context.Context, did string) (domain.TrustScore, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	score, ok := r.scores[did]
	if !ok {
		return domain.TrustScore{}, domain.ErrNotFound
	}
	return score, nil
}

func (r *ScoreRepository) GetMany(_ context.Context, dids []string) (map[string]float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]float64, len(dids))
	for _, did := range dids {
		if score, ok := r.scores[did]; ok {
			out[did] = score.Score
		}
	}
	return out, nil
}

func (r *ScoreRepository) LastRun(_ context.Context) (ports.TrustRunStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.lastRun == nil {
		return ports.TrustRunStats{}, domain.ErrNotFound
	}
	return *r.lastRun, nil
}

type ClusterRepository struct {
	mu       sync.RWMutex
	clusters map[uuid.UUID]domain.SybilCluster
	members  map[uuid.UUID][]domain.SybilClusterMember
	accounts *AccountRepository
	outbox   *OutboxRepository
}

// WithAccounts wires the account store so ApplyBanPlan can mutate account
// state the way the postgres transaction does.
func (r *ClusterRepository) WithAccounts(accounts *AccountRepository) *ClusterRepository {
	r.accounts = accounts
	return r
}

func (r *ClusterRepository) WithOutbox(outbox *OutboxRepository) *ClusterRepository {
	r.outbox = outbox
	return r
}

func (r *ClusterRepository) ReconcileDetected(_ context.Context, detected []domain.DetectedCluster, at time.Time) ([]domain.SybilCluster, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.SybilCluster
	for _, d := range detected {
		var existing *domain.SybilCluster
		for id, c := range r.clusters {
			if c.ClusterHash == d.ClusterHash && c.Status != domain.ClusterDismissed {
				c := c
				c.ID = id
				existing = &c
				break
			}
		}
		if existing != nil {
			existing.InternalEdgeCount = d.InternalEdgeCount
			existing.ExternalEdgeCount = d.ExternalEdgeCount
			existing.MemberCount = len(d.Members)
			existing.UpdatedAt = at
			r.clusters[existing.ID] = *existing
			r.members[existing.ID] = detectedMembers(existing.ID, d.Members, at)
			out = append(out, *existing)
			continue
		}
		cluster := domain.SybilCluster{
			ID:                uuid.New(),
			ClusterHash:       d.ClusterHash,
			InternalEdgeCount: d.InternalEdgeCount,
			ExternalEdgeCount: d.ExternalEdgeCount,
			MemberCount:       len(d.Members),
			Status:            domain.ClusterFlagged,
			DetectedAt:        at,
			UpdatedAt:         at,
		}
		r.clusters[cluster.ID] = cluster
		r.members[cluster.ID] = detectedMembers(cluster.ID, d.Members, at)
		out = append(out, cluster)
	}
	return out, nil
}

func detectedMembers(clusterID uuid.UUID, members []domain.DetectedMember, at time.Time) []domain.SybilClusterMember {
	out := make([]domain.SybilClusterMember, 0, len(members))
	for _, m := range members {
		out = append(out, domain.SybilClusterMember{
			ClusterID:     clusterID,
			Did:           m.Did,
			RoleInCluster: m.Role,
			JoinedAt:      at,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Did < out[j].Did })
	return out
}

func (r *ClusterRepository) List(_ context.Context, status string, afterKey time.Time, afterID uuid.UUID, limit int) (ports.ClusterPage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var all []domain.SybilCluster
	for _, c := range r.clusters {
		if status != "" && c.Status != status {
			continue
		}
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].DetectedAt.Equal(all[j].DetectedAt) {
			return all[i].DetectedAt.After(all[j].DetectedAt)
		}
		return all[i].ID.String() > all[j].ID.String()
	})
	if !afterKey.IsZero() {
		idx := 0
		for i, c := range all {
			if c.DetectedAt.Before(afterKey) || (c.DetectedAt.Equal(afterKey) && c.ID.String() < afterID.String()) {
				idx = i
				break
			}
			idx = len(all)
		}
		all = all[idx:]
	}
	page := ports.ClusterPage{HasMore: len(all) > limit}
	if page.HasMore {
		all = all[:limit]
	}
	page.Clusters = all
	return page, nil
}

func (r *ClusterRepository) Get(_ context.Context, id uuid.UUID) (domain.SybilCluster, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clusters[id]
	if !ok {
		return domain.SybilCluster{}, domain.ErrNotFound
	}
	return c, nil
}

func (r *ClusterRepository) Members(_ context.Context, id uuid.UUID) ([]domain.SybilClusterMember, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.SybilClusterMember(nil), r.members[id]...), nil
}

func (r *ClusterRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status, reviewedBy string, at time.Time, event ports.OutboxEvent) error {
	r.mu.Lock()
	c, ok := r.clusters[id]
	if !ok {
		r.mu.Unlock()
		return domain.ErrNotFound
	}
	c.Status = status
	c.ReviewedBy = reviewedBy
	c.ReviewedAt = &at
	c.UpdatedAt = at
	r.clusters[id] = c
	r.mu.Unlock()
	if r.outbox != nil {
		return r.outbox.Enqueue(ctx, event)
	}
	return nil
}

func (r *ClusterRepository) ActiveClusterFor(_ context.Context, did string) (domain.SybilCluster, []domain.SybilClusterMember, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, members := range r.members {
		cluster := r.clusters[id]
		if cluster.Status == domain.ClusterDismissed {
			continue
		}
		for _, m := range members {
			if m.Did == did {
				return cluster, append([]domain.SybilClusterMember(nil), members...), nil
			}
		}
	}
	return domain.SybilCluster{}, nil, domain.ErrNotFound
}

func (r *ClusterRepository) ApplyBanPlan(ctx context.Context, plan ports.ClusterBanPlan, event ports.OutboxEvent) error {
	r.mu.Lock()
	c, ok := r.clusters[plan.ClusterID]
	if !ok {
		r.mu.Unlock()
		return domain.ErrNotFound
	}
	c.Status = domain.ClusterBanned
	c.ReviewedBy = plan.ReviewedBy
	c.ReviewedAt = &plan.At
	c.UpdatedAt = plan.At
	r.clusters[plan.ClusterID] = c
	r.mu.Unlock()

	if r.accounts != nil {
		for _, did := range plan.BanDids {
			_ = r.accounts.SetStanding(ctx, did, domain.StandingBanned, true, plan.At)
		}
		for _, did := range plan.MonitorDids {
			if acct, err := r.accounts.Get(ctx, did); err == nil && !acct.IsBanned {
				_ = r.accounts.SetStanding(ctx, did, domain.StandingMonitored, false, plan.At)
			}
		}
	}
	if r.outbox != nil {
		return r.outbox.Enqueue(ctx, event)
	}
	return nil
}

type FlagRepository struct {
	mu    sync.RWMutex
	flags map[uuid.UUID]domain.BehavioralFlag
}

func (r *FlagRepository) Create(_ context.Context, flag domain.BehavioralFlag) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.flags[flag.ID]; ok {
		return domain.ErrConflict
	}
	r.flags[flag.ID] = flag
	return nil
}

func (r *FlagRepository) List(_ context.Context, status string, afterKey time.Time, afterID uuid.UUID, limit int) (ports.FlagPage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var all []domain.BehavioralFlag
	for _, f := range r.flags {
		if status != "" && f.Status != status {
			continue
		}
		all = append(all, f)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].DetectedAt.Equal(all[j].DetectedAt) {
			return all[i].DetectedAt.After(all[j].DetectedAt)
		}
		return all[i].ID.String() > all[j].ID.String()
	})
	if !afterKey.IsZero() {
		idx := len(all)
		for i, f := range all {
			if f.DetectedAt.Before(afterKey) || (f.DetectedAt.Equal(afterKey) && f.ID.String() < afterID.String()) {
				idx = i
				break
			}
		}
		all = all[idx:]
	}
	page := ports.FlagPage{HasMore: len(all) > limit}
	if page.HasMore {
		all = all[:limit]
	}
	page.Flags = all
	return page, nil
}

func (r *FlagRepository) Get(_ context.Context, id uuid.UUID) (domain.BehavioralFlag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.flags[id]
	if !ok {
		return domain.BehavioralFlag{}, domain.ErrNotFound
	}
	return f, nil
}

func (r *FlagRepository) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.flags[id]
	if !ok {
		return domain.ErrNotFound
	}
	f.Status = status
	r.flags[id] = f
	return nil
}

type QueueRepository struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]domain.ModerationQueueEntry
}

func (r *QueueRepository) Enqueue(_ context.Context, entry domain.ModerationQueueEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.ID] = entry
	return nil
}

func (r *QueueRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.entries, id)
	return nil
}

func (r *QueueRepository) ListForCommunity(_ context.Context, communityDid string, limit int) ([]domain.ModerationQueueEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.ModerationQueueEntry
	for _, e := range r.entries {
		if communityDid != "" && e.CommunityDid != communityDid {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type CommunityRepository struct {
	mu    sync.RWMutex
	words map[string][]string
}

// SetFilterWords seeds community filter words for tests.
func (r *CommunityRepository) SetFilterWords(communityDid string, words []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.words[communityDid] = words
}

func (r *CommunityRepository) FilterWords(_ context.Context, communityDid string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.words[communityDid]...), nil
}

type OutboxRepository struct {
	mu      sync.RWMutex
	records map[uuid.UUID]ports.OutboxRecord
}

func (r *OutboxRepository) Enqueue(_ context.Context, event ports.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[event.EventID] = ports.OutboxRecord{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      event.Payload,
		CreatedAt:    event.OccurredAt,
	}
	return nil
}

func (r *OutboxRepository) ClaimUnpublished(_ context.Context, limit int, claimToken string, claimUntil time.Time) ([]ports.OutboxRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	var out []ports.OutboxRecord
	for id, rec := range r.records {
		if rec.PublishedAt != nil || rec.DeadLetteredAt != nil {
			continue
		}
		if rec.ClaimUntil != nil && rec.ClaimUntil.After(now) {
			continue
		}
		token := claimToken
		until := claimUntil
		rec.ClaimToken = &token
		rec.ClaimUntil = &until
		r.records[id] = rec
		out = append(out, rec)
		if len(out) >= limit {
			break
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *OutboxRepository) MarkPublished(_ context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[outboxID]
	if !ok || rec.ClaimToken == nil || *rec.ClaimToken != claimToken {
		return nil
	}
	rec.PublishedAt = &at
	rec.ClaimToken = nil
	rec.ClaimUntil = nil
	r.records[outboxID] = rec
	return nil
}

func (r *OutboxRepository) MarkFailed(_ context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[outboxID]
	if !ok || rec.ClaimToken == nil || *rec.ClaimToken != claimToken {
		return nil
	}
	rec.RetryCount++
	rec.LastError = &errMsg
	rec.LastErrorAt = &at
	rec.ClaimToken = nil
	rec.ClaimUntil = nil
	r.records[outboxID] = rec
	return nil
}

func (r *OutboxRepository) MarkDeadLettered(_ context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[outboxID]
	if !ok || rec.ClaimToken == nil || *rec.ClaimToken != claimToken {
		return nil
	}
	rec.RetryCount++
	rec.LastError = &errMsg
	rec.LastErrorAt = &at
	rec.DeadLetteredAt = &at
	rec.ClaimToken = nil
	rec.ClaimUntil = nil
	r.records[outboxID] = rec
	return nil
}

// EventTypes returns the enqueued event types in insertion-time order.
// Test helper.
func (r *OutboxRepository) EventTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	recs := make([]ports.OutboxRecord, 0, len(r.records))
	for _, rec := range r.records {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].CreatedAt.Before(recs[j].CreatedAt) })
	out := make([]string, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.EventType)
	}
	return out
}
