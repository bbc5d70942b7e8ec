package yt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"Tandem/playback"

	"github.com/Strum355/log"
	"github.com/alicebob/miniredis/v2"
	"github.com/kkdai/youtube/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.InitSimpleLogger(&log.Config{Output: io.Discard})
	os.Exit(m.Run())
}

type fakeSearch struct {
	results []string
	err     error
	queries []string
}

func (f *fakeSearch) Search(_ context.Context, query string) ([]string, error) {
	f.queries = append(f.queries, query)
	return f.results, f.err
}

type fakeVerify struct {
	blocked map[string]bool
}

func (f *fakeVerify) Check(_ context.Context, id string) error {
	if f.blocked[id] {
		return youtube.ErrNotPlayableInEmbed
	}
	return nil
}

var _ playback.Resolver = (*Resolver)(nil)

func TestResolve_FirstPlayableCandidate(t *testing.T) {
	search := &fakeSearch{results: []string{"aaaaaaaaaaa", "bbbbbbbbbbb", "ccccccccccc"}}
	verify := &fakeVerify{blocked: map[string]bool{"aaaaaaaaaaa": true}}
	r := NewResolver(search, verify, nil, time.Hour)

	id, err := r.Resolve(context.Background(), "Song", "Band")

	require.NoError(t, err)
	assert.Equal(t, "bbbbbbbbbbb", id)
	assert.Equal(t, []string{"Song Band"}, search.queries)
}

func TestResolve_URLCandidatesNormalised(t *testing.T) {
	search := &fakeSearch{results: []string{"https://www.youtube.com/watch?v=dQw4w9WgXcQ"}}
	r := NewResolver(search, nil, nil, time.Hour)

	id, err := r.Resolve(context.Background(), "Song", "")

	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", id)
}

func TestResolve_NothingFound(t *testing.T) {
	r := NewResolver(&fakeSearch{}, nil, nil, time.Hour)

	_, err := r.Resolve(context.Background(), "Song", "Band")

	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestResolve_SearchError(t *testing.T) {
	r := NewResolver(&fakeSearch{err: errors.New("quota")}, nil, nil, time.Hour)

	_, err := r.Resolve(context.Background(), "Song", "Band")

	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoCandidates)
}

func TestResolveAlternative_SkipsExcluded(t *testing.T) {
	search := &fakeSearch{results: []string{"aaaaaaaaaaa", "bbbbbbbbbbb"}}
	r := NewResolver(search, nil, nil, time.Hour)

	id, err := r.ResolveAlternative(context.Background(), "Song", "Band", []string{"aaaaaaaaaaa"})
	require.NoError(t, err)
	assert.Equal(t, "bbbbbbbbbbb", id)

	id, err = r.ResolveAlternative(context.Background(), "Song", "Band", []string{"aaaaaaaaaaa", "bbbbbbbbbbb"})
	require.NoError(t, err)
	assert.Equal(t, "", id)
}

func TestSearchClient(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("q")
		assert.Equal(t, "k", r.URL.Query().Get("key"))
		fmt.Fprint(w, `{"items":[{"id":{"videoId":"one"}},{"id":{}},{"id":{"videoId":"two"}}]}`)
	}))
	defer srv.Close()

	ids, err := NewSearchClient(srv.URL, "k", time.Second).Search(context.Background(), "Song Band")

	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, ids)
	assert.Equal(t, "Song Band", query)
}

func TestSearchClient_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewSearchClient(srv.URL, "", time.Second).Search(context.Background(), "x")

	assert.Error(t, err)
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestResolve_CacheHit(t *testing.T) {
	mr, rdb := newRedis(t)
	search := &fakeSearch{results: []string{"aaaaaaaaaaa"}}
	r := NewResolver(search, nil, rdb, time.Hour)

	first, err := r.Resolve(context.Background(), "Song", "Band")
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), " song ", "BAND")
	require.NoError(t, err)

	assert.Equal(t, "aaaaaaaaaaa", first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, len(search.queries))

	cached, err := mr.Get(resolveKey("Song", "Band"))
	require.NoError(t, err)
	assert.Equal(t, "aaaaaaaaaaa", cached)
	assert.Equal(t, time.Hour, mr.TTL(resolveKey("Song", "Band")))
}

func TestResolveAlternative_RewritesCache(t *testing.T) {
	mr, rdb := newRedis(t)
	require.NoError(t, mr.Set(resolveKey("Song", "Band"), "aaaaaaaaaaa"))
	search := &fakeSearch{results: []string{"aaaaaaaaaaa", "bbbbbbbbbbb"}}
	r := NewResolver(search, nil, rdb, time.Hour)

	id, err := r.ResolveAlternative(context.Background(), "Song", "Band", []string{"aaaaaaaaaaa"})
	require.NoError(t, err)
	assert.Equal(t, "bbbbbbbbbbb", id)
	assert.True(t, mr.Exists(blockedKey("aaaaaaaaaaa")))

	id, err = r.Resolve(context.Background(), "Song", "Band")
	require.NoError(t, err)
	assert.Equal(t, "bbbbbbbbbbb", id)
	assert.Equal(t, 1, len(search.queries))
}

func TestResolve_SkipsBlockedCandidates(t *testing.T) {
	mr, rdb := newRedis(t)
	require.NoError(t, mr.Set(blockedKey("aaaaaaaaaaa"), "1"))
	search := &fakeSearch{results: []string{"aaaaaaaaaaa", "bbbbbbbbbbb", "ccccccccccc"}}
	verify := &fakeVerify{blocked: map[string]bool{"bbbbbbbbbbb": true}}
	r := NewResolver(search, verify, rdb, time.Hour)

	id, err := r.Resolve(context.Background(), "Song", "Band")

	require.NoError(t, err)
	assert.Equal(t, "ccccccccccc", id)
	assert.True(t, mr.Exists(blockedKey("bbbbbbbbbbb")))
}

type errorCodeTestCase struct {
	err      error
	expected int
}

func TestErrorCode(t *testing.T) {
	tests := []errorCodeTestCase{
		{youtube.ErrNotPlayableInEmbed, playback.ErrCodeEmbedBlocked},
		{fmt.Errorf("wrapped: %w", youtube.ErrVideoPrivate), playback.ErrCodeEmbedBlocked},
		{errors.New("boom"), playback.ErrCodeNotFound},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ErrorCode(tt.err), tt.err.Error())
	}
}
