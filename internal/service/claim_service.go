package service

import (
	"context"
	"errors"
	"time"

	faucetErrors "github.com/faucet-intake/internal/errors"
	"github.com/faucet-intake/internal/logging"
	"github.com/faucet-intake/internal/ratelimit"
	"github.com/faucet-intake/internal/tweet"
	"github.com/faucet-intake/internal/types"
	"github.com/faucet-intake/internal/validation"
)

// errEmptyPost is reported when a fetcher returns neither a post nor an error
var errEmptyPost = errors.New("empty post")

// ClaimQueue accepts approved claims for the disbursement worker
type ClaimQueue interface {
	Put(ctx context.Context, req *types.ClaimRequest) error
}

// ClaimRecordStore reads and upserts the last claim time per address.
// GetLastClaim returns a nil record for an address that never claimed.
type ClaimRecordStore interface {
	GetLastClaim(ctx context.Context, address string) (*types.ClaimRecord, error)
	RecordClaim(ctx context.Context, address string, at time.Time) error
}

// PostFetcher reads a social post by id
type PostFetcher interface {
	GetPost(ctx context.Context, id string) (*types.SocialPost, error)
}

// ClaimService validates faucet claims from both intake paths and hands
// approved ones to the queue.
//
// Each call is independent and holds no state between invocations. There is
// no lock around the read-check-write on the record store, so two claims for
// one address racing inside the window may both be granted.
type ClaimService struct {
	queue         ClaimQueue
	store         ClaimRecordStore
	posts         PostFetcher
	cooldown      *ratelimit.Cooldown
	projectHandle string
}

// ClaimServiceConfig holds the collaborators of a ClaimService
type ClaimServiceConfig struct {
	Queue         ClaimQueue
	Store         ClaimRecordStore
	Posts         PostFetcher
	Clock         ratelimit.Clock // nil uses the system clock
	ProjectHandle string          // Handle a claim tweet must mention
}

// NewClaimService creates a new claim service
func NewClaimService(cfg ClaimServiceConfig) *ClaimService {
	return &ClaimService{
		queue:         cfg.Queue,
		store:         cfg.Store,
		posts:         cfg.Posts,
		cooldown:      ratelimit.NewCooldown(cfg.Clock),
		projectHandle: cfg.ProjectHandle,
	}
}

// HandleDirect processes a claim made with an explicit address
func (s *ClaimService) HandleDirect(ctx context.Context, address string, color uint64) (*types.ClaimRequest, error) {
	logger := logging.FromContext(ctx).WithFields(map[string]interface{}{
		"path":    "direct",
		"address": address,
		"color":   color,
	})

	if !validation.IsValidAddress(address) {
		err := faucetErrors.NewInvalidAddressError(address)
		logger.WithField("kind", err.Kind).Info("Claim rejected")
		return nil, err
	}

	return s.grant(ctx, logger, address, color)
}

// HandleSocialMention processes a claim made by tweeting an address at the project
func (s *ClaimService) HandleSocialMention(ctx context.Context, postURL string, color uint64) (*types.ClaimRequest, error) {
	logger := logging.FromContext(ctx).WithFields(map[string]interface{}{
		"path":  "tweet",
		"url":   postURL,
		"color": color,
	})

	mention, err := s.parsePost(ctx, postURL)
	if err != nil {
		logger.WithField("kind", faucetErrors.KindOf(err)).WithError(err).Info("Claim rejected")
		return nil, err
	}

	return s.grant(ctx, logger.WithField("address", mention.Address), mention.Address, color)
}

// parsePost runs the tweet checks in order and stops at the first failure
func (s *ClaimService) parsePost(ctx context.Context, postURL string) (*types.ParsedMention, error) {
	postID, err := tweet.ExtractPostID(postURL)
	if err != nil {
		return nil, err
	}

	post, err := s.posts.GetPost(ctx, postID)
	if err != nil {
		return nil, faucetErrors.NewPostFetchError(postID, err)
	}
	if post == nil {
		return nil, faucetErrors.NewPostFetchError(postID, errEmptyPost)
	}

	mention, err := tweet.ParseMention(post.Text, s.projectHandle)
	if err != nil {
		return nil, err
	}

	// Extraction only matched the format; validate again before trusting it
	if !validation.IsValidAddress(mention.Address) {
		return nil, faucetErrors.NewInvalidAddressError(mention.Address)
	}

	if !mention.MentionsTarget {
		return nil, faucetErrors.NewNoMentionError(s.projectHandle)
	}

	return mention, nil
}

// grant applies the cool-down, then enqueues and records the claim.
// The two writes are not transactional: if the record write fails after a
// successful enqueue the claim stands without a stored cool-down start.
func (s *ClaimService) grant(ctx context.Context, logger *logging.Logger, address string, color uint64) (*types.ClaimRequest, error) {
	record, err := s.store.GetLastClaim(ctx, address)
	if err != nil {
		claimErr := faucetErrors.NewRecordLookupError(address, err)
		logger.WithError(err).Error("Claim record lookup failed")
		return nil, claimErr
	}

	var lastClaimedAt *time.Time
	if record != nil {
		lastClaimedAt = &record.LastClaimedAt
	}

	if !s.cooldown.CanClaim(lastClaimedAt) {
		next := s.cooldown.NextClaimAt(lastClaimedAt)
		logger.WithFields(map[string]interface{}{
			"kind":        faucetErrors.KindRateLimited,
			"nextClaimAt": next,
		}).Info("Claim rejected")
		return nil, faucetErrors.NewRateLimitedError(address, next.UTC().Format(time.RFC3339))
	}

	req := &types.ClaimRequest{Address: address, Color: color}
	if err := s.queue.Put(ctx, req); err != nil {
		logger.WithError(err).Error("Failed to enqueue claim")
		return nil, faucetErrors.NewEnqueueError(address, err)
	}

	if err := s.store.RecordClaim(ctx, address, s.cooldown.Now()); err != nil {
		logger.WithError(err).Error("Claim enqueued but not recorded, cool-down not started")
		return nil, faucetErrors.NewRecordWriteError(address, err)
	}

	logger.Info("Claim accepted")
	return req, nil
}
