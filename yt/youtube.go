package yt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"Tandem/playback"

	"github.com/kkdai/youtube/v2"
)

// NormalizeID accepts a bare video id or any YouTube URL form
func NormalizeID(ref string) (string, error) {
	return youtube.ExtractVideoID(ref)
}

// SearchClient queries the YouTube Data API search endpoint
type SearchClient struct {
	endpoint string
	apiKey   string
	limit    int
	client   *http.Client
}

func NewSearchClient(endpoint, apiKey string, timeout time.Duration) *SearchClient {
	return &SearchClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		limit:    10,
		client:   &http.Client{Timeout: timeout},
	}
}

func (s *SearchClient) Search(ctx context.Context, query string) ([]string, error) {
	response := struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
		} `json:"items"`
	}{}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Add("part", "snippet")
	q.Add("type", "video")
	q.Add("videoEmbeddable", "true")
	q.Add("maxResults", fmt.Sprint(s.limit))
	q.Add("q", query)
	if s.apiKey != "" {
		q.Add("key", s.apiKey)
	}
	req.URL.RawQuery = q.Encode()

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(response.Items))
	for _, item := range response.Items {
		if item.ID.VideoID != "" {
			ids = append(ids, item.ID.VideoID)
		}
	}
	return ids, nil
}

// PlayabilityChecker fetches video metadata to find out whether a video can
// be embedded before it is handed to a player
type PlayabilityChecker struct {
	client *youtube.Client
}

func NewPlayabilityChecker() *PlayabilityChecker {
	return &PlayabilityChecker{client: &youtube.Client{}}
}

func (p *PlayabilityChecker) Check(ctx context.Context, videoID string) error {
	_, err := p.client.GetVideoContext(ctx, videoID)
	return err
}

// Duration returns the length of a video
func (p *PlayabilityChecker) Duration(ctx context.Context, videoID string) (time.Duration, error) {
	video, err := p.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return 0, err
	}
	return video.Duration, nil
}

// ErrorCode maps a metadata lookup failure onto the media engine error codes
func ErrorCode(err error) int {
	switch {
	case errors.Is(err, youtube.ErrNotPlayableInEmbed),
		errors.Is(err, youtube.ErrLoginRequired),
		errors.Is(err, youtube.ErrVideoPrivate):
		return playback.ErrCodeEmbedBlocked
	}
	return playback.ErrCodeNotFound
}
