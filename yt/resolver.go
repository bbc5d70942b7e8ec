package yt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Strum355/log"
	"github.com/redis/go-redis/v9"
)

var ErrNoCandidates = errors.New("no playable video found")

// Searcher returns candidate video ids for a free text query, best match first
type Searcher interface {
	Search(ctx context.Context, query string) ([]string, error)
}

// Verifier checks that a video can be played in an embedded player
type Verifier interface {
	Check(ctx context.Context, videoID string) error
}

// Resolver maps track metadata to a YouTube video id
type Resolver struct {
	search   Searcher
	verify   Verifier // nil skips the playability check
	redis    *redis.Client
	cacheTTL time.Duration
}

func NewResolver(search Searcher, verify Verifier, rdb *redis.Client, cacheTTL time.Duration) *Resolver {
	return &Resolver{
		search:   search,
		verify:   verify,
		redis:    rdb,
		cacheTTL: cacheTTL,
	}
}

// Resolve returns the best playable video for a track. Results are cached.
func (r *Resolver) Resolve(ctx context.Context, title, artist string) (string, error) {
	key := resolveKey(title, artist)

	// Try Redis
	if r.redis != nil {
		cached, err := r.redis.Get(ctx, key).Result()
		if err == nil && cached != "" {
			return cached, nil
		}
	}

	id, err := r.find(ctx, title, artist, nil)
	if err != nil {
		return "", err
	}

	// Store in Redis
	if r.redis != nil {
		r.redis.Set(ctx, key, id, r.cacheTTL)
	}
	return id, nil
}

// ResolveAlternative returns a playable video for the track other than the
// excluded ones. An empty result with a nil error means nothing else was found.
func (r *Resolver) ResolveAlternative(ctx context.Context, title, artist string, exclude []string) (string, error) {
	for _, id := range exclude {
		r.markBlocked(ctx, id)
	}

	id, err := r.find(ctx, title, artist, exclude)
	if errors.Is(err, ErrNoCandidates) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	// The cached primary was refused, remember the one that works
	if r.redis != nil {
		r.redis.Set(ctx, resolveKey(title, artist), id, r.cacheTTL)
	}
	return id, nil
}

func (r *Resolver) find(ctx context.Context, title, artist string, exclude []string) (string, error) {
	query := strings.TrimSpace(title + " " + artist)
	if query == "" {
		return "", ErrNoCandidates
	}

	candidates, err := r.search.Search(ctx, query)
	if err != nil {
		return "", fmt.Errorf("searching %q: %w", query, err)
	}

	for _, raw := range candidates {
		id, err := NormalizeID(raw)
		if err != nil || contains(exclude, id) || r.isBlocked(ctx, id) {
			continue
		}
		if r.verify != nil {
			if err := r.verify.Check(ctx, id); err != nil {
				log.WithFields(log.Fields{
					"video_id": id,
					"reason":   err.Error(),
				}).Debug("Skipping unplayable candidate")
				r.markBlocked(ctx, id)
				continue
			}
		}
		return id, nil
	}
	return "", ErrNoCandidates
}

func (r *Resolver) isBlocked(ctx context.Context, id string) bool {
	if r.redis == nil {
		return false
	}
	n, err := r.redis.Exists(ctx, blockedKey(id)).Result()
	return err == nil && n > 0
}

func (r *Resolver) markBlocked(ctx context.Context, id string) {
	if r.redis == nil || id == "" {
		return
	}
	r.redis.Set(ctx, blockedKey(id), true, r.cacheTTL)
}

func resolveKey(title, artist string) string {
	return "resolve:" + strings.ToLower(strings.TrimSpace(title)) + "\x00" + strings.ToLower(strings.TrimSpace(artist))
}

func blockedKey(id string) string {
	return "ytblocked:" + id
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
