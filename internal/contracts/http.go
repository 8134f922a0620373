package contracts

type RecordReplyRequest struct {
	ActorDid     string `json:"actor_did"`
	TargetDid    string `json:"target_did"`
	CommunityDid string `json:"community_did"`
}

type RecordReactionRequest struct {
	ActorDid     string `json:"actor_did"`
	TargetDid    string `json:"target_did"`
	CommunityDid string `json:"community_did"`
}

type RecordCoParticipationRequest struct {
	TopicURI     string   `json:"topic_uri"`
	CommunityDid string   `json:"community_did"`
	Participants []string `json:"participants"`
}

type RateLimitCheckRequest struct {
	Did          string `json:"did"`
	CommunityDid string `json:"community_did"`
}

type ContentCheckRequest struct {
	ContentURI   string `json:"content_uri"`
	ContentType  string `json:"content_type"`
	AuthorDid    string `json:"author_did"`
	CommunityDid string `json:"community_did"`
	Text         string `json:"text"`
}

type AddSeedRequest struct {
	Did    string `json:"did"`
	Reason string `json:"reason"`
}

type UpsertPdsFactorRequest struct {
	PdsHost     string  `json:"pds_host"`
	TrustFactor float64 `json:"trust_factor"`
	IsDefault   bool    `json:"is_default"`
}

type TransitionClusterRequest struct {
	Status string `json:"status"`
}

type ResolveFlagRequest struct {
	Status string `json:"status"`
}

type BanPropagationRequest struct {
	TargetDid string `json:"target_did"`
}
