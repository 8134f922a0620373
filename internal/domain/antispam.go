package domain

import (
	"regexp"
	"strings"
	"time"
)

// Account classes for write budgeting.
const (
	AccountClassNew         = "new"
	AccountClassEstablished = "established"
	AccountClassTrusted     = "trusted"
)

// Hold reasons recorded on moderation queue entries. Any single matched
// reason is sufficient to hold; all matches are kept for moderator context.
const (
	HoldReasonWordFilter  = "word_filter"
	HoldReasonFirstPosts  = "first_posts"
	HoldReasonLinkPolicy  = "link_policy"
	HoldReasonBurstPosts  = "burst_posts"
	HoldReasonSpamLabeled = "spam_labeled"
)

// AntiSpamSettings is the immutable per-operation anti-spam configuration.
type AntiSpamSettings struct {
	NewAccountAge              time.Duration
	NewWritesPerMinute         int
	EstablishedWritesPerMinute int
	TrustedPostThreshold       int
	FirstPostsQueueCount       int
	HoldLinksFromNew           bool
	LinkEstablishedAge         time.Duration
	BurstWindow                time.Duration
	BurstMaxPosts              int
}

// BudgetFor returns the per-minute write budget for an account class.
// Trusted accounts bypass budgeting entirely and never reach this point.
func (s AntiSpamSettings) BudgetFor(class string) int {
	if class == AccountClassNew {
		return s.NewWritesPerMinute
	}
	return s.EstablishedWritesPerMinute
}

// ClassifyAccount buckets an account for rate limiting. A spam label from
// the external label service always forces new-account treatment regardless
// of actual age.
func ClassifyAccount(acct Account, spamLabeled bool, postCount int, now time.Time, s AntiSpamSettings) string {
	if spamLabeled {
		return AccountClassNew
	}
	if postCount >= s.TrustedPostThreshold && s.TrustedPostThreshold > 0 {
		return AccountClassTrusted
	}
	if acct.AgeAt(now) < s.NewAccountAge {
		return AccountClassNew
	}
	return AccountClassEstablished
}

// HoldReason is one matched anti-spam trigger.
type HoldReason struct {
	Reason       string   `json:"reason"`
	MatchedWords []string `json:"matched_words,omitempty"`
}

// ContentCheck is the input for content-level anti-spam checks.
type ContentCheck struct {
	ContentURI   string
	ContentType  string
	AuthorDid    string
	CommunityDid string
	Text         string
	SpamLabeled  bool
	AuthorAge    time.Duration
	PostCount    int
	RecentPosts  int // posts inside the rolling burst window, this one included
	FilterWords  []string
}

var linkPattern = regexp.MustCompile(`https?://[^\s]+`)

// ContainsLink reports whether the text carries an http(s) link.
func ContainsLink(text string) bool {
	return linkPattern.MatchString(text)
}

// MatchFilterWords returns the community filter words present in the text.
// Matching is case-insensitive on whole substrings, the same contract the
// community settings UI documents.
func MatchFilterWords(text string, words []string) []string {
	lower := strings.ToLower(text)
	var matched []string
	for _, w := range words {
		w = strings.TrimSpace(strings.ToLower(w))
		if w == "" {
			continue
		}
		if strings.Contains(lower, w) {
			matched = append(matched, w)
		}
	}
	return matched
}

// EvaluateContent runs every content-level trigger and returns all matched
// hold reasons. Content checks never reject a request; held content goes to
// the moderation queue instead.
func EvaluateContent(c ContentCheck, s AntiSpamSettings) []HoldReason {
	var reasons []HoldReason
	if words := MatchFilterWords(c.Text, c.FilterWords); len(words) > 0 {
		reasons = append(reasons, HoldReason{Reason: HoldReasonWordFilter, MatchedWords: words})
	}
	if c.SpamLabeled {
		reasons = append(reasons, HoldReason{Reason: HoldReasonSpamLabeled})
	}
	isNew := c.SpamLabeled || c.AuthorAge < s.NewAccountAge
	if isNew && s.FirstPostsQueueCount > 0 && c.PostCount < s.FirstPostsQueueCount {
		reasons = append(reasons, HoldReason{Reason: HoldReasonFirstPosts})
	}
	if s.HoldLinksFromNew && ContainsLink(c.Text) && (c.SpamLabeled || c.AuthorAge < s.LinkEstablishedAge) {
		reasons = append(reasons, HoldReason{Reason: HoldReasonLinkPolicy})
	}
	if s.BurstMaxPosts > 0 && c.RecentPosts > s.BurstMaxPosts {
		reasons = append(reasons, HoldReason{Reason: HoldReasonBurstPosts})
	}
	return reasons
}
