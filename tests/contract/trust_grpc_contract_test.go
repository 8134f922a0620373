package contract

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	grpcadapter "github.com/barazo-forum/barazo-trust/internal/adapters/grpc"
	"github.com/barazo-forum/barazo-trust/internal/application"
	"github.com/barazo-forum/barazo-trust/internal/domain"
)

func structReq(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	req, err := structpb.NewStruct(fields)
	if err != nil {
		t.Fatalf("build request struct: %v", err)
	}
	return req
}

func TestGetTrustScoreGRPCContract(t *testing.T) {
	t.Parallel()

	f := newContractFixture(t)
	server := grpcadapter.NewTrustQueryServer(f.service)
	ctx := context.Background()

	_, err := server.GetTrustScore(ctx, structReq(t, map[string]any{}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected invalid argument, got %s", status.Code(err))
	}

	resp, err := server.GetTrustScore(ctx, structReq(t, map[string]any{"did": "did:plc:unseen"}))
	if err != nil {
		t.Fatalf("score lookup for unseen did: %v", err)
	}
	if got := resp.GetFields()["score"].GetNumberValue(); got != 0 {
		t.Fatalf("unseen did should score zero, got %v", got)
	}
	if _, ok := resp.GetFields()["computed_at"]; ok {
		t.Fatalf("unseen did should carry no computed_at, got %v", resp)
	}
}

func TestGetTrustScoreAfterComputeGRPCContract(t *testing.T) {
	t.Parallel()

	f := newContractFixture(t)
	server := grpcadapter.NewTrustQueryServer(f.service)
	ctx := context.Background()

	f.repos.Accounts.Put(domain.Account{
		Did:         "did:plc:anchor",
		Role:        domain.RoleAdmin,
		Standing:    domain.StandingActive,
		FirstSeenAt: f.now.Add(-1000 * time.Hour),
	})
	f.repos.Accounts.Put(domain.Account{
		Did:         "did:plc:friend",
		Role:        domain.RoleUser,
		Standing:    domain.StandingActive,
		FirstSeenAt: f.now.Add(-500 * time.Hour),
	})
	admin := application.Actor{Did: "did:plc:anchor", Role: domain.RoleAdmin}
	if _, err := f.service.AddSeed(ctx, admin, "did:plc:anchor", "founder"); err != nil {
		t.Fatalf("add seed: %v", err)
	}
	if err := f.service.RecordReply(ctx, "did:plc:anchor", "did:plc:friend", "did:plc:community"); err != nil {
		t.Fatalf("record reply: %v", err)
	}
	if _, err := f.service.ComputeTrustGraph(ctx, admin); err != nil {
		t.Fatalf("compute trust graph: %v", err)
	}

	resp, err := server.GetTrustScore(ctx, structReq(t, map[string]any{"did": "did:plc:anchor"}))
	if err != nil {
		t.Fatalf("score lookup after compute: %v", err)
	}
	if got := resp.GetFields()["score"].GetNumberValue(); got != 1.0 {
		t.Fatalf("seed should hold score 1.0, got %v", got)
	}
	if got := resp.GetFields()["computed_at"].GetNumberValue(); int64(got) != f.now.Unix() {
		t.Fatalf("expected computed_at %d, got %v", f.now.Unix(), got)
	}

	resp, err = server.GetTrustScore(ctx, structReq(t, map[string]any{"did": "did:plc:friend"}))
	if err != nil {
		t.Fatalf("score lookup after compute: %v", err)
	}
	got := resp.GetFields()["score"].GetNumberValue()
	if got <= 0 || got >= 1 {
		t.Fatalf("neighbor of the seed should score between 0 and 1, got %v", got)
	}
}

func TestCheckWriteAllowedGRPCContract(t *testing.T) {
	t.Parallel()

	f := newContractFixture(t)
	server := grpcadapter.NewTrustQueryServer(f.service)
	ctx := context.Background()

	_, err := server.CheckWriteAllowed(ctx, structReq(t, map[string]any{"community_did": "did:plc:community"}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected invalid argument, got %s", status.Code(err))
	}

	f.repos.Accounts.Put(domain.Account{
		Did:         "did:plc:fresh",
		Role:        domain.RoleUser,
		Standing:    domain.StandingActive,
		FirstSeenAt: f.now.Add(-time.Hour),
	})
	req := structReq(t, map[string]any{
		"did":           "did:plc:fresh",
		"community_did": "did:plc:community",
	})

	var resp *structpb.Struct
	for i := 0; i < 2; i++ {
		resp, err = server.CheckWriteAllowed(ctx, req)
		if err != nil {
			t.Fatalf("write check %d: %v", i+1, err)
		}
		if !resp.GetFields()["allowed"].GetBoolValue() {
			t.Fatalf("write %d should fit the new-account budget", i+1)
		}
	}
	if got := resp.GetFields()["class"].GetStringValue(); got != domain.AccountClassNew {
		t.Fatalf("expected new class, got %q", got)
	}
	if got := resp.GetFields()["budget"].GetNumberValue(); got != 2 {
		t.Fatalf("expected budget 2, got %v", got)
	}

	resp, err = server.CheckWriteAllowed(ctx, req)
	if err != nil {
		t.Fatalf("write check over budget: %v", err)
	}
	if resp.GetFields()["allowed"].GetBoolValue() {
		t.Fatalf("third write should exhaust the new-account budget: %v", resp)
	}
}
