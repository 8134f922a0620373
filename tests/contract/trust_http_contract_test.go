package contract

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	httpadapter "github.com/barazo-forum/barazo-trust/internal/adapters/http"
	"github.com/barazo-forum/barazo-trust/internal/adapters/memory"
	"github.com/barazo-forum/barazo-trust/internal/adapters/security"
	"github.com/barazo-forum/barazo-trust/internal/application"
	"github.com/barazo-forum/barazo-trust/internal/domain"
)

const contractSecret = "contract-test-secret"

type contractFixture struct {
	router  http.Handler
	service *application.Service
	repos   *memory.Repositories
	now     time.Time
}

func newContractFixture(t *testing.T) *contractFixture {
	t.Helper()

	repos := memory.NewRepositories()
	repos.Scores.WithOutbox(repos.Outbox)
	repos.Accounts.WithOutbox(repos.Outbox)
	repos.Clusters.WithAccounts(repos.Accounts).WithOutbox(repos.Outbox)

	f := &contractFixture{
		repos: repos,
		now:   time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC),
	}
	svc := application.NewService(application.Dependencies{
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
		Counters:    memory.NewCounterStore(),
		Gate:        memory.NewRecomputeGate(),
		Labels:      memory.NewSpamLabelClient(),
	}).WithClock(func() time.Time { return f.now })

	f.service = svc
	verifier, err := security.NewTokenVerifier(contractSecret)
	if err != nil {
		t.Fatalf("init verifier: %v", err)
	}
	f.router = httpadapter.NewRouter(httpadapter.NewHandler(svc, verifier))
	return f
}

func mintToken(t *testing.T, did, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"did":  did,
		"role": role,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(contractSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	var decoded map[string]any
	if res.Body.Len() > 0 {
		if err := json.Unmarshal(res.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode response %q: %v", res.Body.String(), err)
		}
	}
	return res, decoded
}

func TestAuthRequiredOnTrustRoutes(t *testing.T) {
	t.Parallel()

	f := newContractFixture(t)

	res, body := doJSON(t, f.router, http.MethodGet, "/trust/v1/scores/did:plc:any", "", nil)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", res.Code)
	}
	if body["status"] != "error" || body["code"] != "UNAUTHORIZED" {
		t.Fatalf("unexpected error envelope: %v", body)
	}

	res, _ = doJSON(t, f.router, http.MethodGet, "/trust/v1/scores/did:plc:any", "not-a-jwt", nil)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with garbage token, got %d", res.Code)
	}

	res, _ = doJSON(t, f.router, http.MethodGet, "/healthz", "", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("health endpoint must stay open, got %d", res.Code)
	}
}

func TestRecordReplyHTTPContract(t *testing.T) {
	t.Parallel()

	f := newContractFixture(t)
	token := mintToken(t, "did:plc:service", domain.RoleUser)

	res, body := doJSON(t, f.router, http.MethodPost, "/trust/v1/interactions/reply", token, map[string]any{
		"actor_did":     "did:plc:alice",
		"target_did":    "did:plc:bob",
		"community_did": "did:plc:community",
	})
	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d (%v)", res.Code, body)
	}
	if body["status"] != "success" || body["message"] != "recorded" {
		t.Fatalf("unexpected envelope: %v", body)
	}

	res, body = doJSON(t, f.router, http.MethodPost, "/trust/v1/interactions/reply", token, map[string]any{
		"actor_did":  "did:plc:alice",
		"target_did": "did:plc:alice",
	})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("self-interaction should map to 400, got %d", res.Code)
	}
	if body["code"] != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR, got %v", body)
	}

	res, _ = doJSON(t, f.router, http.MethodPost, "/trust/v1/interactions/reply", token, map[string]any{
		"actor_did":  "did:plc:alice",
		"target_did": "did:plc:bob",
		"surprise":   true,
	})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("unknown body fields should be rejected, got %d", res.Code)
	}
}

func TestRateLimitCheckHTTPContract(t *testing.T) {
	t.Parallel()

	f := newContractFixture(t)
	f.repos.Accounts.Put(domain.Account{
		Did:         "did:plc:newbie",
		Role:        domain.RoleUser,
		Standing:    domain.StandingActive,
		FirstSeenAt: f.now.Add(-time.Hour),
	})
	token := mintToken(t, "did:plc:service", domain.RoleUser)

	var body map[string]any
	var res *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		res, body = doJSON(t, f.router, http.MethodPost, "/trust/v1/rate-limit/check", token, map[string]any{
			"did":           "did:plc:newbie",
			"community_did": "did:plc:community",
		})
		if res.Code != http.StatusOK {
			t.Fatalf("rate-limit check returned %d: %v", res.Code, body)
		}
	}
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data envelope, got %v", body)
	}
	if data["rate_limited"] != true {
		t.Fatalf("third write for a new account should be limited: %v", data)
	}
	if data["class"] != domain.AccountClassNew {
		t.Fatalf("expected new class, got %v", data["class"])
	}
}

func TestGraphComputeHTTPContract(t *testing.T) {
	t.Parallel()

	f := newContractFixture(t)
	f.repos.Accounts.Put(domain.Account{
		Did:         "did:plc:admin",
		Role:        domain.RoleAdmin,
		Standing:    domain.StandingActive,
		FirstSeenAt: f.now.Add(-1000 * time.Hour),
	})
	adminToken := mintToken(t, "did:plc:admin", domain.RoleAdmin)
	userToken := mintToken(t, "did:plc:user", domain.RoleUser)

	res, body := doJSON(t, f.router, http.MethodPost, "/trust/v1/graph/compute", userToken, nil)
	if res.Code != http.StatusForbidden || body["code"] != "FORBIDDEN" {
		t.Fatalf("non-admin compute should map to 403 FORBIDDEN, got %d %v", res.Code, body)
	}

	res, body = doJSON(t, f.router, http.MethodPost, "/trust/v1/graph/compute", adminToken, nil)
	if res.Code != http.StatusAccepted {
		t.Fatalf("accepted compute should return 202, got %d: %v", res.Code, body)
	}
	data := body["data"].(map[string]any)
	if data["converged"] != true {
		t.Fatalf("empty graph compute should converge: %v", data)
	}

	res, body = doJSON(t, f.router, http.MethodPost, "/trust/v1/graph/compute", adminToken, nil)
	if res.Code != http.StatusTooManyRequests || body["code"] != "RECOMPUTE_COOLDOWN" {
		t.Fatalf("cooldown should map to 429 RECOMPUTE_COOLDOWN, got %d %v", res.Code, body)
	}

	res, body = doJSON(t, f.router, http.MethodGet, "/trust/v1/graph/status", adminToken, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("graph status returned %d: %v", res.Code, body)
	}

	res, body = doJSON(t, f.router, http.MethodGet, "/trust/v1/scores/did:plc:whoever", adminToken, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("score lookup returned %d: %v", res.Code, body)
	}
	score := body["data"].(map[string]any)
	if score["score"] != float64(0) {
		t.Fatalf("unseen account should score zero, got %v", score)
	}
}

func TestClusterListCursorPagination(t *testing.T) {
	t.Parallel()

	f := newContractFixture(t)
	modToken := mintToken(t, "did:plc:mod", domain.RoleModerator)

	// Five clusters detected a minute apart, so the page order is stable.
	for i := 0; i < 5; i++ {
		dids := []string{
			didAt("m", i, 0), didAt("m", i, 1), didAt("m", i, 2),
		}
		members := make([]domain.DetectedMember, len(dids))
		for j, did := range dids {
			members[j] = domain.DetectedMember{Did: did, Role: domain.ClusterRolePeripheral}
		}
		_, err := f.repos.Clusters.ReconcileDetected(context.Background(), []domain.DetectedCluster{{
			ClusterHash:       domain.ClusterHash(dids),
			InternalEdgeCount: 3,
			Members:           members,
		}}, f.now.Add(time.Duration(i)*time.Minute))
		if err != nil {
			t.Fatalf("seed cluster %d: %v", i, err)
		}
	}

	seen := map[string]bool{}
	res, body := doJSON(t, f.router, http.MethodGet, "/trust/v1/clusters?limit=2", modToken, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("list clusters returned %d: %v", res.Code, body)
	}
	data := body["data"].(map[string]any)
	first := data["clusters"].([]any)
	if len(first) != 2 {
		t.Fatalf("expected page of 2, got %d", len(first))
	}
	for _, c := range first {
		seen[c.(map[string]any)["id"].(string)] = true
	}
	cursor, _ := data["next_cursor"].(string)
	if cursor == "" {
		t.Fatalf("expected a next cursor on the first page")
	}

	for cursor != "" {
		res, body = doJSON(t, f.router, http.MethodGet, "/trust/v1/clusters?limit=2&cursor="+cursor, modToken, nil)
		if res.Code != http.StatusOK {
			t.Fatalf("cursor page returned %d: %v", res.Code, body)
		}
		data = body["data"].(map[string]any)
		for _, c := range data["clusters"].([]any) {
			id := c.(map[string]any)["id"].(string)
			if seen[id] {
				t.Fatalf("cursor pagination repeated cluster %s", id)
			}
			seen[id] = true
		}
		cursor, _ = data["next_cursor"].(string)
	}
	if len(seen) != 5 {
		t.Fatalf("pagination should cover all 5 clusters, saw %d", len(seen))
	}

	res, body = doJSON(t, f.router, http.MethodGet, "/trust/v1/clusters?cursor=@@@not-base64@@@", modToken, nil)
	if res.Code != http.StatusBadRequest || body["code"] != "VALIDATION_ERROR" {
		t.Fatalf("malformed cursor should map to 400 VALIDATION_ERROR, got %d %v", res.Code, body)
	}

	userToken := mintToken(t, "did:plc:user", domain.RoleUser)
	res, body = doJSON(t, f.router, http.MethodGet, "/trust/v1/clusters", userToken, nil)
	if res.Code != http.StatusForbidden {
		t.Fatalf("plain users must not list clusters, got %d %v", res.Code, body)
	}
}

func TestClusterTransitionHTTPContract(t *testing.T) {
	t.Parallel()

	f := newContractFixture(t)
	modToken := mintToken(t, "did:plc:mod", domain.RoleModerator)

	dids := []string{"did:plc:c1", "did:plc:c2", "did:plc:c3"}
	members := make([]domain.DetectedMember, len(dids))
	for i, did := range dids {
		members[i] = domain.DetectedMember{Did: did, Role: domain.ClusterRolePeripheral}
	}
	stored, err := f.repos.Clusters.ReconcileDetected(context.Background(), []domain.DetectedCluster{{
		ClusterHash:       domain.ClusterHash(dids),
		InternalEdgeCount: 3,
		Members:           members,
	}}, f.now)
	if err != nil || len(stored) != 1 {
		t.Fatalf("seed cluster: %v", err)
	}
	id := stored[0].ID.String()

	res, body := doJSON(t, f.router, http.MethodPost, "/trust/v1/clusters/"+id+"/status", modToken, map[string]any{
		"status": domain.ClusterDismissed,
	})
	if res.Code != http.StatusOK {
		t.Fatalf("dismiss returned %d: %v", res.Code, body)
	}

	res, body = doJSON(t, f.router, http.MethodPost, "/trust/v1/clusters/"+id+"/status", modToken, map[string]any{
		"status": domain.ClusterBanned,
	})
	if res.Code != http.StatusConflict || body["code"] != "INVALID_TRANSITION" {
		t.Fatalf("dismissed -> banned should map to 409 INVALID_TRANSITION, got %d %v", res.Code, body)
	}

	res, body = doJSON(t, f.router, http.MethodGet, "/trust/v1/clusters/"+stored[0].ID.String(), modToken, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("get cluster returned %d: %v", res.Code, body)
	}
	detail := body["data"].(map[string]any)
	if len(detail["members"].([]any)) != 3 {
		t.Fatalf("expected 3 member rows, got %v", detail["members"])
	}
}

func TestSeedManagementHTTPContract(t *testing.T) {
	t.Parallel()

	f := newContractFixture(t)
	f.repos.Accounts.Put(domain.Account{
		Did:         "did:plc:good",
		Role:        domain.RoleUser,
		Standing:    domain.StandingActive,
		FirstSeenAt: f.now.Add(-500 * time.Hour),
	})
	adminToken := mintToken(t, "did:plc:admin", domain.RoleAdmin)
	modToken := mintToken(t, "did:plc:mod", domain.RoleModerator)

	res, body := doJSON(t, f.router, http.MethodPost, "/trust/v1/seeds", modToken, map[string]any{
		"did": "did:plc:good", "reason": "helpful",
	})
	if res.Code != http.StatusForbidden {
		t.Fatalf("seed management is admin-only, got %d %v", res.Code, body)
	}

	res, body = doJSON(t, f.router, http.MethodPost, "/trust/v1/seeds", adminToken, map[string]any{
		"did": "did:plc:good", "reason": "helpful",
	})
	if res.Code != http.StatusCreated {
		t.Fatalf("add seed returned %d: %v", res.Code, body)
	}

	res, body = doJSON(t, f.router, http.MethodPost, "/trust/v1/seeds", adminToken, map[string]any{
		"did": "did:plc:good", "reason": "again",
	})
	if res.Code != http.StatusConflict || body["code"] != "CONFLICT" {
		t.Fatalf("duplicate seed should map to 409 CONFLICT, got %d %v", res.Code, body)
	}

	res, body = doJSON(t, f.router, http.MethodPost, "/trust/v1/seeds", adminToken, map[string]any{
		"did": "did:plc:ghost", "reason": "unknown",
	})
	if res.Code != http.StatusNotFound || body["code"] != "NOT_FOUND" {
		t.Fatalf("unknown account should map to 404 NOT_FOUND, got %d %v", res.Code, body)
	}

	res, body = doJSON(t, f.router, http.MethodGet, "/trust/v1/seeds", adminToken, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("list seeds returned %d: %v", res.Code, body)
	}
	if len(body["data"].(map[string]any)["seeds"].([]any)) != 1 {
		t.Fatalf("expected one seed, got %v", body)
	}

	res, _ = doJSON(t, f.router, http.MethodDelete, "/trust/v1/seeds/did:plc:good", adminToken, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("remove seed returned %d", res.Code)
	}
}

func didAt(prefix string, cluster, member int) string {
	return "did:plc:" + prefix + string(rune('a'+cluster)) + string(rune('0'+member))
}
