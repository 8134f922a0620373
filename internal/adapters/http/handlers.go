package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/barazo-forum/barazo-trust/internal/application"
	"github.com/barazo-forum/barazo-trust/internal/contracts"
)

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

func (h *Handler) readyz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ready")
}

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := bearerTokenFromHeader(r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
			return
		}
		identity, err := h.verifier.Verify(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token")
			return
		}
		actor := application.Actor{
			Did:       identity.Did,
			Role:      identity.Role,
			RequestID: requestIDFromContext(r.Context()),
		}
		ctx := contextWithActor(r.Context(), actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func contextWithActor(ctx context.Context, actor application.Actor) context.Context {
	return context.WithValue(ctx, ctxKeyActor, actor)
}

func (h *Handler) recordReply(w http.ResponseWriter, r *http.Request) {
	var req contracts.RecordReplyRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "record_reply", err)
		return
	}
	if err := h.service.RecordReply(r.Context(), req.ActorDid, req.TargetDid, req.CommunityDid); err != nil {
		writeMappedError(r.Context(), w, "record_reply", err)
		return
	}
	writeMessage(w, http.StatusAccepted, "recorded")
}

func (h *Handler) recordReaction(w http.ResponseWriter, r *http.Request) {
	var req contracts.RecordReactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "record_reaction", err)
		return
	}
	if err := h.service.RecordReaction(r.Context(), req.ActorDid, req.TargetDid, req.CommunityDid); err != nil {
		writeMappedError(r.Context(), w, "record_reaction", err)
		return
	}
	writeMessage(w, http.StatusAccepted, "recorded")
}

func (h *Handler) recordCoParticipation(w http.ResponseWriter, r *http.Request) {
	var req contracts.RecordCoParticipationRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "record_co_participation", err)
		return
	}
	if err := h.service.RecordCoParticipation(r.Context(), req.TopicURI, req.CommunityDid, req.Participants); err != nil {
		writeMappedError(r.Context(), w, "record_co_participation", err)
		return
	}
	writeMessage(w, http.StatusAccepted, "recorded")
}

func (h *Handler) checkRateLimit(w http.ResponseWriter, r *http.Request) {
	var req contracts.RateLimitCheckRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "check_rate_limit", err)
		return
	}
	res, err := h.service.CheckWriteRateLimit(r.Context(), req.Did, req.CommunityDid)
	if err != nil {
		writeMappedError(r.Context(), w, "check_rate_limit", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) checkContent(w http.ResponseWriter, r *http.Request) {
	var req contracts.ContentCheckRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "check_content", err)
		return
	}
	res, err := h.service.RunAntiSpamChecks(r.Context(), application.ContentCheckRequest{
		ContentURI:   req.ContentURI,
		ContentType:  req.ContentType,
		AuthorDid:    req.AuthorDid,
		CommunityDid: req.CommunityDid,
		Text:         req.Text,
	})
	if err != nil {
		writeMappedError(r.Context(), w, "check_content", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) getScore(w http.ResponseWriter, r *http.Request) {
	did := chi.URLParam(r, "did")
	score, err := h.service.GetTrustScore(r.Context(), did)
	if err != nil {
		writeMappedError(r.Context(), w, "get_score", err)
		return
	}
	writeSuccess(w, http.StatusOK, score)
}

func (h *Handler) computeGraph(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	stats, err := h.service.ComputeTrustGraph(r.Context(), actor)
	if err != nil {
		writeMappedError(r.Context(), w, "compute_graph", err)
		return
	}
	writeSuccess(w, http.StatusAccepted, stats)
}

func (h *Handler) graphStatus(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	status, err := h.service.TrustGraphStatus(r.Context(), actor)
	if err != nil {
		writeMappedError(r.Context(), w, "graph_status", err)
		return
	}
	writeSuccess(w, http.StatusOK, status)
}

func (h *Handler) listSeeds(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	seeds, err := h.service.ListSeeds(r.Context(), actor)
	if err != nil {
		writeMappedError(r.Context(), w, "list_seeds", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"seeds": seeds})
}

func (h *Handler) addSeed(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	var req contracts.AddSeedRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "add_seed", err)
		return
	}
	seed, err := h.service.AddSeed(r.Context(), actor, req.Did, req.Reason)
	if err != nil {
		writeMappedError(r.Context(), w, "add_seed", err)
		return
	}
	writeSuccess(w, http.StatusCreated, seed)
}

func (h *Handler) removeSeed(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	if err := h.service.RemoveSeed(r.Context(), actor, chi.URLParam(r, "did")); err != nil {
		writeMappedError(r.Context(), w, "remove_seed", err)
		return
	}
	writeMessage(w, http.StatusOK, "seed removed")
}

func (h *Handler) listPdsFactors(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	factors, err := h.service.ListPdsFactors(r.Context(), actor)
	if err != nil {
		writeMappedError(r.Context(), w, "list_pds_factors", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"factors": factors})
}

func (h *Handler) upsertPdsFactor(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	var req contracts.UpsertPdsFactorRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "upsert_pds_factor", err)
		return
	}
	row, err := h.service.UpsertPdsFactor(r.Context(), actor, req.PdsHost, req.TrustFactor, req.IsDefault)
	if err != nil {
		writeMappedError(r.Context(), w, "upsert_pds_factor", err)
		return
	}
	writeSuccess(w, http.StatusOK, row)
}

func (h *Handler) listClusters(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	cursor, err := decodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeValidationError(r.Context(), w, "list_clusters", err)
		return
	}
	limit := parseIntDefault(r.URL.Query().Get("limit"), 0)
	page, err := h.service.ListClusters(r.Context(), actor, r.URL.Query().Get("status"), cursor, limit)
	if err != nil {
		writeMappedError(r.Context(), w, "list_clusters", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"clusters":    page.Clusters,
		"next_cursor": encodeCursor(page.NextCursor),
	})
}

func (h *Handler) getCluster(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "cluster_id"))
	if err != nil {
		writeValidationError(r.Context(), w, "get_cluster", err)
		return
	}
	detail, err := h.service.GetCluster(r.Context(), actor, id)
	if err != nil {
		writeMappedError(r.Context(), w, "get_cluster", err)
		return
	}
	writeSuccess(w, http.StatusOK, detail)
}

func (h *Handler) transitionCluster(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "cluster_id"))
	if err != nil {
		writeValidationError(r.Context(), w, "transition_cluster", err)
		return
	}
	var req contracts.TransitionClusterRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "transition_cluster", err)
		return
	}
	cluster, err := h.service.TransitionCluster(r.Context(), actor, id, req.Status)
	if err != nil {
		writeMappedError(r.Context(), w, "transition_cluster", err)
		return
	}
	writeSuccess(w, http.StatusOK, cluster)
}

func (h *Handler) listFlags(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	cursor, err := decodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeValidationError(r.Context(), w, "list_flags", err)
		return
	}
	limit := parseIntDefault(r.URL.Query().Get("limit"), 0)
	page, err := h.service.ListFlags(r.Context(), actor, r.URL.Query().Get("status"), cursor, limit)
	if err != nil {
		writeMappedError(r.Context(), w, "list_flags", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"flags":       page.Flags,
		"next_cursor": encodeCursor(page.NextCursor),
	})
}

func (h *Handler) resolveFlag(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "flag_id"))
	if err != nil {
		writeValidationError(r.Context(), w, "resolve_flag", err)
		return
	}
	var req contracts.ResolveFlagRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "resolve_flag", err)
		return
	}
	flag, err := h.service.ResolveFlag(r.Context(), actor, id, req.Status)
	if err != nil {
		writeMappedError(r.Context(), w, "resolve_flag", err)
		return
	}
	writeSuccess(w, http.StatusOK, flag)
}

func (h *Handler) listModerationQueue(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	limit := parseIntDefault(r.URL.Query().Get("limit"), 0)
	entries, err := h.service.ListModerationQueue(r.Context(), actor, r.URL.Query().Get("community_did"), limit)
	if err != nil {
		writeMappedError(r.Context(), w, "list_moderation_queue", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) releaseModerationEntry(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "entry_id"))
	if err != nil {
		writeValidationError(r.Context(), w, "release_moderation_entry", err)
		return
	}
	if err := h.service.ReleaseModerationEntry(r.Context(), actor, id); err != nil {
		writeMappedError(r.Context(), w, "release_moderation_entry", err)
		return
	}
	writeMessage(w, http.StatusOK, "entry released")
}

func (h *Handler) checkBanPropagation(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	var req contracts.BanPropagationRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "check_ban_propagation", err)
		return
	}
	res, err := h.service.CheckBanPropagation(r.Context(), actor, req.TargetDid)
	if err != nil {
		writeMappedError(r.Context(), w, "check_ban_propagation", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}
