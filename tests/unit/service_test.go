package unit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/barazo-forum/barazo-trust/internal/adapters/memory"
	"github.com/barazo-forum/barazo-trust/internal/application"
	"github.com/barazo-forum/barazo-trust/internal/domain"
)

type fixture struct {
	service  *application.Service
	repos    *memory.Repositories
	counters *memory.CounterStore
	gate     *memory.RecomputeGate
	labels   *memory.SpamLabelClient
	now      time.Time
}

func newFixture() *fixture {
	repos := memory.NewRepositories()
	repos.Scores.WithOutbox(repos.Outbox)
	repos.Accounts.WithOutbox(repos.Outbox)
	repos.Clusters.WithAccounts(repos.Accounts).WithOutbox(repos.Outbox)

	f := &fixture{
		repos:    repos,
		counters: memory.NewCounterStore(),
		gate:     memory.NewRecomputeGate(),
		labels:   memory.NewSpamLabelClient(),
		now:      time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC),
	}
	f.service = application.NewService(application.Dependencies{
		Config: application.Config{
			Trust: domain.TrustSettings{
				Epsilon:                 1e-4,
				MaxIterations:           50,
				Damping:                 0.85,
				LowTrustCutoff:          0.2,
				MinClusterSize:          5,
				SuspicionThreshold:      0.7,
				RecomputeCooldown:       time.Hour,
				HighWeightEdge:          5,
				BanPropagationThreshold: 2,
			},
			AntiSpam: domain.AntiSpamSettings{
				NewAccountAge:              72 * time.Hour,
				NewWritesPerMinute:         2,
				EstablishedWritesPerMinute: 5,
				TrustedPostThreshold:       10,
				FirstPostsQueueCount:       3,
				HoldLinksFromNew:           true,
				LinkEstablishedAge:         7 * 24 * time.Hour,
				BurstWindow:                10 * time.Minute,
				BurstMaxPosts:              3,
			},
		},
		Edges:       repos.Edges,
		Accounts:    repos.Accounts,
		Seeds:       repos.Seeds,
		PdsFactors:  repos.PdsFactors,
		Scores:      repos.Scores,
		Clusters:    repos.Clusters,
		Flags:       repos.Flags,
		Queue:       repos.Queue,
		Communities: repos.Communities,
		Outbox:      repos.Outbox,
		Counters:    f.counters,
		Gate:        f.gate,
		Labels:      f.labels,
	}).WithClock(func() time.Time { return f.now })
	return f
}

func (f *fixture) putAccount(did, role string, age time.Duration) {
	f.repos.Accounts.Put(domain.Account{
		Did:         did,
		Role:        role,
		Standing:    domain.StandingActive,
		PdsHost:     "pds.example.com",
		FirstSeenAt: f.now.Add(-age),
	})
}

func (f *fixture) admin() application.Actor {
	return application.Actor{Did: "did:plc:admin", Role: domain.RoleAdmin}
}

func TestRecordInteractionsAccumulateWeight(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	if err := f.service.RecordReply(ctx, "did:plc:alice", "did:plc:bob", "did:plc:community"); err != nil {
		t.Fatalf("record reply failed: %v", err)
	}
	if err := f.service.RecordReply(ctx, "did:plc:bob", "did:plc:alice", "did:plc:community"); err != nil {
		t.Fatalf("record reverse reply failed: %v", err)
	}
	if err := f.service.RecordReaction(ctx, "did:plc:alice", "did:plc:bob", "did:plc:community"); err != nil {
		t.Fatalf("record reaction failed: %v", err)
	}

	edges, err := f.repos.Edges.ListAll(ctx)
	if err != nil {
		t.Fatalf("list edges failed: %v", err)
	}
	if len(edges) != 1 {
		t.Fatalf("expected one canonical edge, got %d", len(edges))
	}
	e := edges[0]
	if e.SourceDid != "did:plc:alice" || e.TargetDid != "did:plc:bob" {
		t.Fatalf("edge not canonical: %s -> %s", e.SourceDid, e.TargetDid)
	}
	if e.Weight != 2.5 {
		t.Fatalf("expected accumulated weight 2.5, got %v", e.Weight)
	}

	if err := f.service.RecordReply(ctx, "did:plc:alice", "did:plc:alice", ""); !errors.Is(err, domain.ErrSelfInteraction) {
		t.Fatalf("expected self-interaction rejection, got %v", err)
	}
	if err := f.service.RecordReply(ctx, "not-a-did", "did:plc:bob", ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected malformed did rejection, got %v", err)
	}
}

func TestCoParticipationRecordsAllPairs(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	participants := []string{"did:plc:a", "did:plc:b", "did:plc:c", "did:plc:b"}
	if err := f.service.RecordCoParticipation(ctx, "at://topic/1", "did:plc:community", participants); err != nil {
		t.Fatalf("record co-participation failed: %v", err)
	}

	edges, err := f.repos.Edges.ListAll(ctx)
	if err != nil {
		t.Fatalf("list edges failed: %v", err)
	}
	if len(edges) != 3 {
		t.Fatalf("expected 3 pairwise edges for 3 unique participants, got %d", len(edges))
	}
	for _, e := range edges {
		if e.Weight != 0.25 {
			t.Fatalf("expected co-participation weight 0.25, got %v", e.Weight)
		}
	}
}

func TestWriteRateLimitBudgets(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	f.putAccount("did:plc:newbie", domain.RoleUser, time.Hour)

	for i := 1; i <= 2; i++ {
		res, err := f.service.CheckWriteRateLimit(ctx, "did:plc:newbie", "did:plc:community")
		if err != nil {
			t.Fatalf("rate limit check %d failed: %v", i, err)
		}
		if res.RateLimited {
			t.Fatalf("write %d inside budget should be allowed", i)
		}
		if res.Class != domain.AccountClassNew {
			t.Fatalf("hour-old account should classify new, got %q", res.Class)
		}
	}
	res, err := f.service.CheckWriteRateLimit(ctx, "did:plc:newbie", "did:plc:community")
	if err != nil {
		t.Fatalf("rate limit check failed: %v", err)
	}
	if !res.RateLimited {
		t.Fatalf("write past the new-account budget should be limited")
	}
	if res.Budget != 2 {
		t.Fatalf("expected budget 2, got %d", res.Budget)
	}
}

func TestWriteRateLimitEstablishedBudget(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	f.putAccount("did:plc:veteran", domain.RoleUser, 100*time.Hour)

	var res application.RateLimitResult
	var err error
	for i := 0; i < 6; i++ {
		res, err = f.service.CheckWriteRateLimit(ctx, "did:plc:veteran", "did:plc:community")
		if err != nil {
			t.Fatalf("rate limit check failed: %v", err)
		}
	}
	if !res.RateLimited {
		t.Fatalf("sixth write should exceed the established budget of 5")
	}
	if res.Class != domain.AccountClassEstablished {
		t.Fatalf("expected established class, got %q", res.Class)
	}
}

func TestWriteRateLimitTrustedBypass(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	f.putAccount("did:plc:regular", domain.RoleUser, 500*time.Hour)
	for i := 0; i < 10; i++ {
		f.repos.Accounts.AddPosts("did:plc:regular", f.now.Add(-time.Duration(i+1)*24*time.Hour))
	}

	for i := 0; i < 20; i++ {
		res, err := f.service.CheckWriteRateLimit(ctx, "did:plc:regular", "did:plc:community")
		if err != nil {
			t.Fatalf("rate limit check failed: %v", err)
		}
		if res.RateLimited {
			t.Fatalf("trusted account must never be rate limited")
		}
		if res.Class != domain.AccountClassTrusted {
			t.Fatalf("expected trusted class, got %q", res.Class)
		}
	}
}

func TestWriteRateLimitTrustedScoreNeverLimited(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	f.putAccount("did:plc:pillar", domain.RoleUser, 500*time.Hour)
	for i := 0; i < 10; i++ {
		f.repos.Accounts.AddPosts("did:plc:pillar", f.now.Add(-time.Duration(i+1)*24*time.Hour))
	}
	f.repos.Scores.Put(domain.TrustScore{Did: "did:plc:pillar", Score: 0.9, ComputedAt: f.now.Add(-time.Hour)})

	for i := 0; i < 20; i++ {
		res, err := f.service.CheckWriteRateLimit(ctx, "did:plc:pillar", "did:plc:community")
		if err != nil {
			t.Fatalf("rate limit check failed: %v", err)
		}
		if res.RateLimited {
			t.Fatalf("account with trust score above the cutoff must never be limited")
		}
		if res.Class != domain.AccountClassTrusted {
			t.Fatalf("expected trusted class, got %q", res.Class)
		}
	}
}

func TestWriteRateLimitLowTrustScoreOverridesPostCount(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	f.putAccount("did:plc:suspect", domain.RoleUser, 500*time.Hour)
	for i := 0; i < 10; i++ {
		f.repos.Accounts.AddPosts("did:plc:suspect", f.now.Add(-time.Duration(i+1)*24*time.Hour))
	}
	f.repos.Scores.Put(domain.TrustScore{Did: "did:plc:suspect", Score: 0.05, ComputedAt: f.now.Add(-time.Hour)})

	var res application.RateLimitResult
	var err error
	for i := 0; i < 6; i++ {
		res, err = f.service.CheckWriteRateLimit(ctx, "did:plc:suspect", "did:plc:community")
		if err != nil {
			t.Fatalf("rate limit check failed: %v", err)
		}
		if res.Class != domain.AccountClassEstablished {
			t.Fatalf("low trust score must demote the post-count promotion, got %q", res.Class)
		}
	}
	if !res.RateLimited {
		t.Fatalf("demoted account should be limited past the established budget")
	}
}

func TestWriteRateLimitPdsFactorDiscountsScore(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	f.putAccount("did:plc:hosted", domain.RoleUser, 500*time.Hour)
	for i := 0; i < 10; i++ {
		f.repos.Accounts.AddPosts("did:plc:hosted", f.now.Add(-time.Duration(i+1)*24*time.Hour))
	}
	f.repos.Scores.Put(domain.TrustScore{Did: "did:plc:hosted", Score: 0.5, ComputedAt: f.now.Add(-time.Hour)})
	if err := f.repos.PdsFactors.Upsert(ctx, domain.PdsTrustFactor{
		PdsHost:     "pds.example.com",
		TrustFactor: 0.1,
		UpdatedAt:   f.now,
	}); err != nil {
		t.Fatalf("seed pds factor failed: %v", err)
	}

	res, err := f.service.CheckWriteRateLimit(ctx, "did:plc:hosted", "did:plc:community")
	if err != nil {
		t.Fatalf("rate limit check failed: %v", err)
	}
	if res.Class != domain.AccountClassEstablished {
		t.Fatalf("discounted host factor must drop the effective score below the cutoff, got %q", res.Class)
	}
}

func TestWriteRateLimitSpamLabelForcesNewClass(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	f.putAccount("did:plc:labeled", domain.RoleUser, 500*time.Hour)
	for i := 0; i < 10; i++ {
		f.repos.Accounts.AddPosts("did:plc:labeled", f.now.Add(-time.Duration(i+1)*24*time.Hour))
	}
	f.labels.SetLabel("did:plc:labeled", true)

	res, err := f.service.CheckWriteRateLimit(ctx, "did:plc:labeled", "did:plc:community")
	if err != nil {
		t.Fatalf("rate limit check failed: %v", err)
	}
	if res.Class != domain.AccountClassNew {
		t.Fatalf("spam label must force new-account treatment, got %q", res.Class)
	}
}

func TestWriteRateLimitFailsOpenOnCounterOutage(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	f.putAccount("did:plc:someone", domain.RoleUser, 100*time.Hour)
	f.counters.Err = errors.New("connection refused")

	res, err := f.service.CheckWriteRateLimit(ctx, "did:plc:someone", "did:plc:community")
	if err != nil {
		t.Fatalf("counter outage must not fail the check: %v", err)
	}
	if res.RateLimited {
		t.Fatalf("counter outage must fail open, not closed")
	}
}

func TestComputeTrustGraphPropagatesFromSeeds(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	f.putAccount("did:plc:admin", domain.RoleAdmin, 1000*time.Hour)
	f.putAccount("did:plc:a", domain.RoleUser, 200*time.Hour)
	f.putAccount("did:plc:b", domain.RoleUser, 200*time.Hour)

	mustRecordReply(t, f, "did:plc:admin", "did:plc:a")
	mustRecordReply(t, f, "did:plc:a", "did:plc:b")

	if _, err := f.service.ComputeTrustGraph(ctx, application.Actor{Did: "did:plc:mod", Role: domain.RoleModerator}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("non-admin recompute should be forbidden, got %v", err)
	}

	stats, err := f.service.ComputeTrustGraph(ctx, f.admin())
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}
	if !stats.Converged {
		t.Fatalf("small graph should converge within the iteration cap")
	}
	if stats.TotalNodes != 3 || stats.TotalEdges != 2 {
		t.Fatalf("unexpected graph size: %d nodes %d edges", stats.TotalNodes, stats.TotalEdges)
	}

	adminScore, err := f.service.GetTrustScore(ctx, "did:plc:admin")
	if err != nil {
		t.Fatalf("get admin score failed: %v", err)
	}
	if adminScore.Score != 1.0 {
		t.Fatalf("implicit admin seed should hold score 1.0, got %v", adminScore.Score)
	}
	aScore, _ := f.service.GetTrustScore(ctx, "did:plc:a")
	bScore, _ := f.service.GetTrustScore(ctx, "did:plc:b")
	if aScore.Score <= bScore.Score {
		t.Fatalf("one hop from seed should outrank two hops: a=%v b=%v", aScore.Score, bScore.Score)
	}
	if bScore.Score <= 0 {
		t.Fatalf("connected node should receive nonzero trust, got %v", bScore.Score)
	}

	unknown, err := f.service.GetTrustScore(ctx, "did:plc:stranger")
	if err != nil {
		t.Fatalf("unknown account score lookup failed: %v", err)
	}
	if unknown.Score != 0 {
		t.Fatalf("accounts absent from the run score zero, got %v", unknown.Score)
	}

	if _, err := f.service.ComputeTrustGraph(ctx, f.admin()); !errors.Is(err, domain.ErrRecomputeCooldown) {
		t.Fatalf("immediate recompute should hit the cooldown, got %v", err)
	}

	status, err := f.service.TrustGraphStatus(ctx, f.admin())
	if err != nil {
		t.Fatalf("graph status failed: %v", err)
	}
	if status.LastRun == nil || status.NodeCount != 3 {
		t.Fatalf("status should report the completed run, got %+v", status)
	}
}

func TestComputeFlagsSybilClusterOnce(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	f.putAccount("did:plc:admin", domain.RoleAdmin, 1000*time.Hour)

	// Isolated hub-and-spokes component: no seed reaches it, every edge is
	// internal, so it matches the sybil signature.
	sybils := []string{"did:plc:hub", "did:plc:s1", "did:plc:s2", "did:plc:s3", "did:plc:s4"}
	for _, did := range sybils {
		f.putAccount(did, domain.RoleUser, time.Hour)
	}
	for _, spoke := range sybils[1:] {
		mustRecordReply(t, f, "did:plc:hub", spoke)
	}
	mustRecordReply(t, f, "did:plc:s1", "did:plc:s2")

	stats, err := f.service.ComputeTrustGraph(ctx, f.admin())
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}
	if stats.ClustersFlagged != 1 {
		t.Fatalf("expected one flagged cluster, got %d", stats.ClustersFlagged)
	}

	page, err := f.service.ListClusters(ctx, f.admin(), "", nil, 10)
	if err != nil {
		t.Fatalf("list clusters failed: %v", err)
	}
	if len(page.Clusters) != 1 {
		t.Fatalf("expected one stored cluster, got %d", len(page.Clusters))
	}
	c := page.Clusters[0]
	if c.Status != domain.ClusterFlagged || c.MemberCount != 5 {
		t.Fatalf("unexpected cluster %+v", c.SybilCluster)
	}
	if c.SuspicionRatio != 1.0 {
		t.Fatalf("isolated component should score suspicion 1.0, got %v", c.SuspicionRatio)
	}

	// Rerun with the gate released: the same member set must reconcile into
	// the existing row, never a duplicate.
	f.gate.Release("trust:recompute")
	f.now = f.now.Add(2 * time.Hour)
	if _, err := f.service.ComputeTrustGraph(ctx, f.admin()); err != nil {
		t.Fatalf("second compute failed: %v", err)
	}
	page, err = f.service.ListClusters(ctx, f.admin(), "", nil, 10)
	if err != nil {
		t.Fatalf("list clusters failed: %v", err)
	}
	if len(page.Clusters) != 1 {
		t.Fatalf("rerun duplicated the cluster: got %d rows", len(page.Clusters))
	}
	if page.Clusters[0].ID != c.ID {
		t.Fatalf("rerun should keep the original cluster row")
	}
}

func TestClusterBanCascade(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	f.putAccount("did:plc:admin", domain.RoleAdmin, 1000*time.Hour)

	sybils := []string{"did:plc:hub", "did:plc:s1", "did:plc:s2", "did:plc:s3", "did:plc:s4"}
	for _, did := range sybils {
		f.putAccount(did, domain.RoleUser, time.Hour)
	}
	for _, spoke := range sybils[1:] {
		mustRecordReply(t, f, "did:plc:hub", spoke)
	}
	mustRecordReply(t, f, "did:plc:s1", "did:plc:s2")

	if _, err := f.service.ComputeTrustGraph(ctx, f.admin()); err != nil {
		t.Fatalf("compute failed: %v", err)
	}
	page, err := f.service.ListClusters(ctx, f.admin(), domain.ClusterFlagged, nil, 10)
	if err != nil || len(page.Clusters) != 1 {
		t.Fatalf("expected one flagged cluster, got %d (err %v)", len(page.Clusters), err)
	}
	clusterID := page.Clusters[0].ID

	updated, err := f.service.TransitionCluster(ctx, f.admin(), clusterID, domain.ClusterBanned)
	if err != nil {
		t.Fatalf("ban transition failed: %v", err)
	}
	if updated.Status != domain.ClusterBanned {
		t.Fatalf("expected banned status, got %q", updated.Status)
	}

	hub, err := f.repos.Accounts.Get(ctx, "did:plc:hub")
	if err != nil {
		t.Fatalf("hub lookup failed: %v", err)
	}
	if !hub.IsBanned || hub.Standing != domain.StandingBanned {
		t.Fatalf("core member should be banned, got %+v", hub)
	}
	for _, did := range sybils[1:] {
		acct, err := f.repos.Accounts.Get(ctx, did)
		if err != nil {
			t.Fatalf("member lookup failed: %v", err)
		}
		if acct.IsBanned {
			t.Fatalf("peripheral member %s must not be auto-banned", did)
		}
		if acct.Standing != domain.StandingMonitored {
			t.Fatalf("peripheral member %s should be monitored, got %q", did, acct.Standing)
		}
	}

	// Re-banning a banned cluster is an accepted no-op.
	if _, err := f.service.TransitionCluster(ctx, f.admin(), clusterID, domain.ClusterBanned); err != nil {
		t.Fatalf("repeat ban should be idempotent, got %v", err)
	}

	detail, err := f.service.GetCluster(ctx, f.admin(), clusterID)
	if err != nil {
		t.Fatalf("get cluster failed: %v", err)
	}
	if len(detail.Members) != 5 {
		t.Fatalf("expected 5 member rows, got %d", len(detail.Members))
	}

	found := false
	for _, eventType := range f.repos.Outbox.EventTypes() {
		if eventType == domain.EventClusterBanned {
			found = true
		}
	}
	if !found {
		t.Fatalf("cluster ban should enqueue its audit event")
	}
}

func TestClusterTransitionLifecycle(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	dids := []string{"did:plc:x1", "did:plc:x2", "did:plc:x3"}
	members := make([]domain.DetectedMember, len(dids))
	for i, did := range dids {
		members[i] = domain.DetectedMember{Did: did, Role: domain.ClusterRolePeripheral}
	}
	stored, err := f.repos.Clusters.ReconcileDetected(ctx, []domain.DetectedCluster{{
		ClusterHash:       domain.ClusterHash(dids),
		InternalEdgeCount: 3,
		Members:           members,
	}}, f.now)
	if err != nil || len(stored) != 1 {
		t.Fatalf("seed cluster failed: %v", err)
	}
	id := stored[0].ID

	if _, err := f.service.TransitionCluster(ctx, application.Actor{Did: "did:plc:user", Role: domain.RoleUser}, id, domain.ClusterMonitoring); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("plain user must not transition clusters, got %v", err)
	}
	if _, err := f.service.TransitionCluster(ctx, f.admin(), id, "archived"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("unknown status should be rejected, got %v", err)
	}

	if _, err := f.service.TransitionCluster(ctx, f.admin(), id, domain.ClusterMonitoring); err != nil {
		t.Fatalf("flagged -> monitoring failed: %v", err)
	}
	if _, err := f.service.TransitionCluster(ctx, f.admin(), id, domain.ClusterDismissed); err != nil {
		t.Fatalf("monitoring -> dismissed failed: %v", err)
	}
	if _, err := f.service.TransitionCluster(ctx, f.admin(), id, domain.ClusterBanned); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("dismissed is terminal, got %v", err)
	}
}

func TestCheckBanPropagation(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	f.putAccount("did:plc:target", domain.RoleUser, 50*time.Hour)
	f.putAccount("did:plc:n1", domain.RoleUser, 50*time.Hour)
	f.putAccount("did:plc:n2", domain.RoleUser, 50*time.Hour)
	f.putAccount("did:plc:n3", domain.RoleUser, 50*time.Hour)
	for _, did := range []string{"did:plc:n1", "did:plc:n2", "did:plc:n3"} {
		// Six replies lift each pair over the high-weight threshold of 5.
		for i := 0; i < 6; i++ {
			mustRecordReply(t, f, "did:plc:target", did)
		}
	}

	mod := application.Actor{Did: "did:plc:mod", Role: domain.RoleModerator}

	// Below threshold: one banned neighbor changes nothing.
	if err := f.repos.Accounts.SetStanding(ctx, "did:plc:n1", domain.StandingBanned, true, f.now); err != nil {
		t.Fatalf("ban n1 failed: %v", err)
	}
	res, err := f.service.CheckBanPropagation(ctx, mod, "did:plc:target")
	if err != nil {
		t.Fatalf("propagation check failed: %v", err)
	}
	if res.Propagated || res.BanCount != 1 {
		t.Fatalf("one banned neighbor must not propagate, got %+v", res)
	}

	if err := f.repos.Accounts.SetStanding(ctx, "did:plc:n2", domain.StandingBanned, true, f.now); err != nil {
		t.Fatalf("ban n2 failed: %v", err)
	}
	res, err = f.service.CheckBanPropagation(ctx, mod, "did:plc:target")
	if err != nil {
		t.Fatalf("propagation check failed: %v", err)
	}
	if !res.Propagated || res.BanCount != 2 {
		t.Fatalf("two banned neighbors should trigger monitoring, got %+v", res)
	}

	n3, err := f.repos.Accounts.Get(ctx, "did:plc:n3")
	if err != nil {
		t.Fatalf("n3 lookup failed: %v", err)
	}
	if n3.IsBanned {
		t.Fatalf("propagation must monitor, never auto-ban")
	}
	if n3.Standing != domain.StandingMonitored {
		t.Fatalf("remaining neighbor should be monitored, got %q", n3.Standing)
	}

	found := false
	for _, eventType := range f.repos.Outbox.EventTypes() {
		if eventType == domain.EventBanPropagated {
			found = true
		}
	}
	if !found {
		t.Fatalf("propagation should enqueue its audit event with the demotions")
	}

	if _, err := f.service.CheckBanPropagation(ctx, application.Actor{Did: "did:plc:user", Role: domain.RoleUser}, "did:plc:target"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("plain user must not run propagation checks, got %v", err)
	}
}

func TestCheckBanPropagationFailureRollsBackWhole(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	f.putAccount("did:plc:target", domain.RoleUser, 50*time.Hour)
	f.putAccount("did:plc:n1", domain.RoleUser, 50*time.Hour)
	f.putAccount("did:plc:n2", domain.RoleUser, 50*time.Hour)
	f.putAccount("did:plc:n3", domain.RoleUser, 50*time.Hour)
	for _, did := range []string{"did:plc:n1", "did:plc:n2", "did:plc:n3"} {
		for i := 0; i < 6; i++ {
			mustRecordReply(t, f, "did:plc:target", did)
		}
	}
	for _, did := range []string{"did:plc:n1", "did:plc:n2"} {
		if err := f.repos.Accounts.SetStanding(ctx, did, domain.StandingBanned, true, f.now); err != nil {
			t.Fatalf("ban %s failed: %v", did, err)
		}
	}
	f.repos.Accounts.MonitorErr = errors.New("deadlock detected")

	mod := application.Actor{Did: "did:plc:mod", Role: domain.RoleModerator}
	res, err := f.service.CheckBanPropagation(ctx, mod, "did:plc:target")
	if err == nil {
		t.Fatalf("failed demotion transaction must surface an error")
	}
	if res.Propagated {
		t.Fatalf("rolled-back cascade must not report propagation")
	}
	n3, err := f.repos.Accounts.Get(ctx, "did:plc:n3")
	if err != nil {
		t.Fatalf("n3 lookup failed: %v", err)
	}
	if n3.Standing != domain.StandingActive {
		t.Fatalf("rolled-back cascade must leave standing untouched, got %q", n3.Standing)
	}
	for _, eventType := range f.repos.Outbox.EventTypes() {
		if eventType == domain.EventBanPropagated {
			t.Fatalf("rolled-back cascade must not enqueue its audit event")
		}
	}
}

func TestRunAntiSpamChecksHoldsContent(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	f.putAccount("did:plc:fresh", domain.RoleUser, time.Hour)
	f.repos.Communities.SetFilterWords("did:plc:community", []string{"crypto"})

	res, err := f.service.RunAntiSpamChecks(ctx, application.ContentCheckRequest{
		ContentURI:   "at://did:plc:fresh/post/1",
		ContentType:  "post",
		AuthorDid:    "did:plc:fresh",
		CommunityDid: "did:plc:community",
		Text:         "free crypto, see https://spam.example.com",
	})
	if err != nil {
		t.Fatalf("anti-spam check failed: %v", err)
	}
	if !res.Held {
		t.Fatalf("content matching filters should be held")
	}
	got := make(map[string]bool, len(res.Reasons))
	for _, r := range res.Reasons {
		got[r.Reason] = true
	}
	for _, want := range []string{domain.HoldReasonWordFilter, domain.HoldReasonFirstPosts, domain.HoldReasonLinkPolicy} {
		if !got[want] {
			t.Fatalf("expected hold reason %q, got %v", want, res.Reasons)
		}
	}

	entries, err := f.service.ListModerationQueue(ctx, f.admin(), "did:plc:community", 10)
	if err != nil {
		t.Fatalf("list queue failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one held entry, got %d", len(entries))
	}
	if entries[0].QueueReason != domain.HoldReasonWordFilter {
		t.Fatalf("queue reason should be the first match, got %q", entries[0].QueueReason)
	}

	if err := f.service.ReleaseModerationEntry(ctx, f.admin(), entries[0].ID); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	entries, _ = f.service.ListModerationQueue(ctx, f.admin(), "did:plc:community", 10)
	if len(entries) != 0 {
		t.Fatalf("released entry should leave the queue")
	}
}

func TestRunAntiSpamChecksFlagsBursts(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	f.putAccount("did:plc:bursty", domain.RoleUser, 200*time.Hour)
	f.repos.Accounts.AddPosts("did:plc:bursty",
		f.now.Add(-1*time.Minute),
		f.now.Add(-2*time.Minute),
		f.now.Add(-3*time.Minute),
	)
	// Mark enough history that first-posts queueing stays out of the way.
	f.repos.Accounts.AddPosts("did:plc:bursty",
		f.now.Add(-48*time.Hour), f.now.Add(-49*time.Hour), f.now.Add(-50*time.Hour),
	)

	res, err := f.service.RunAntiSpamChecks(ctx, application.ContentCheckRequest{
		ContentURI:  "at://did:plc:bursty/post/9",
		ContentType: "post",
		AuthorDid:   "did:plc:bursty",
		Text:        "yet another post",
	})
	if err != nil {
		t.Fatalf("anti-spam check failed: %v", err)
	}
	if !res.Held || len(res.Reasons) != 1 || res.Reasons[0].Reason != domain.HoldReasonBurstPosts {
		t.Fatalf("expected a burst hold, got %+v", res)
	}

	flags, err := f.service.ListFlags(ctx, f.admin(), domain.FlagPending, nil, 10)
	if err != nil {
		t.Fatalf("list flags failed: %v", err)
	}
	if len(flags.Flags) != 1 || flags.Flags[0].FlagType != domain.FlagBurstVoting {
		t.Fatalf("burst hold should raise a behavioral flag, got %+v", flags.Flags)
	}

	resolved, err := f.service.ResolveFlag(ctx, f.admin(), flags.Flags[0].ID, domain.FlagDismissed)
	if err != nil {
		t.Fatalf("resolve flag failed: %v", err)
	}
	if resolved.Status != domain.FlagDismissed {
		t.Fatalf("expected dismissed flag, got %q", resolved.Status)
	}
	if _, err := f.service.ResolveFlag(ctx, f.admin(), flags.Flags[0].ID, domain.FlagActionTaken); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("re-resolving a flag should conflict, got %v", err)
	}
}

func TestSeedManagement(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	f.putAccount("did:plc:good", domain.RoleUser, 400*time.Hour)
	f.putAccount("did:plc:bad", domain.RoleUser, 400*time.Hour)
	if err := f.repos.Accounts.SetStanding(ctx, "did:plc:bad", domain.StandingBanned, true, f.now); err != nil {
		t.Fatalf("ban setup failed: %v", err)
	}

	if _, err := f.service.AddSeed(ctx, application.Actor{Did: "did:plc:mod", Role: domain.RoleModerator}, "did:plc:good", "helpful"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("seed management is admin-only, got %v", err)
	}
	if _, err := f.service.AddSeed(ctx, f.admin(), "did:plc:bad", "oops"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("banned accounts must not become seeds, got %v", err)
	}
	if _, err := f.service.AddSeed(ctx, f.admin(), "did:plc:ghost", "unknown"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown accounts must not become seeds, got %v", err)
	}

	seed, err := f.service.AddSeed(ctx, f.admin(), "did:plc:good", "longtime contributor")
	if err != nil {
		t.Fatalf("add seed failed: %v", err)
	}
	if seed.AddedBy != "did:plc:admin" {
		t.Fatalf("seed should record the adding admin, got %q", seed.AddedBy)
	}
	if _, err := f.service.AddSeed(ctx, f.admin(), "did:plc:good", "again"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("duplicate seed should conflict, got %v", err)
	}

	seeds, err := f.service.ListSeeds(ctx, f.admin())
	if err != nil || len(seeds) != 1 {
		t.Fatalf("expected one seed, got %d (err %v)", len(seeds), err)
	}
	if err := f.service.RemoveSeed(ctx, f.admin(), "did:plc:good"); err != nil {
		t.Fatalf("remove seed failed: %v", err)
	}
	if err := f.service.RemoveSeed(ctx, f.admin(), "did:plc:good"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("removing a missing seed should report not found, got %v", err)
	}
}

func TestPdsFactorManagement(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	if _, err := f.service.UpsertPdsFactor(ctx, f.admin(), "pds.example.com", 1.5, false); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("out-of-range factor should be rejected, got %v", err)
	}
	if _, err := f.service.UpsertPdsFactor(ctx, f.admin(), "bad host", 0.5, false); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("malformed host should be rejected, got %v", err)
	}

	row, err := f.service.UpsertPdsFactor(ctx, f.admin(), "  Sketchy.PDS.example  ", 0.3, false)
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if row.PdsHost != "sketchy.pds.example" {
		t.Fatalf("host should be normalized, got %q", row.PdsHost)
	}

	if _, err := f.service.UpsertPdsFactor(ctx, f.admin(), "*", 1.0, true); err != nil {
		t.Fatalf("default upsert failed: %v", err)
	}
	if _, err := f.service.UpsertPdsFactor(ctx, f.admin(), "other.example", 0.9, true); err != nil {
		t.Fatalf("default move failed: %v", err)
	}
	rows, err := f.service.ListPdsFactors(ctx, f.admin())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	defaults := 0
	for _, r := range rows {
		if r.IsDefault {
			defaults++
		}
	}
	if defaults != 1 {
		t.Fatalf("exactly one default row must exist, got %d", defaults)
	}
}

func mustRecordReply(t *testing.T, f *fixture, a, b string) {
	t.Helper()
	if err := f.service.RecordReply(context.Background(), a, b, "did:plc:community"); err != nil {
		t.Fatalf("record reply %s -> %s failed: %v", a, b, err)
	}
}
