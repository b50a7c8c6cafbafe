package arr

import (
	"context"
	"fmt"
	"time"

	"completearr/internal/media"
)

// Sonarr wraps the shared client with the episodic library endpoints.
type Sonarr struct {
	*Client
}

// NewSonarr constructs a Sonarr client.
func NewSonarr(client *Client) *Sonarr {
	return &Sonarr{Client: client}
}

type seriesResource struct {
	ID               int64  `json:"id"`
	Title            string `json:"title"`
	Path             string `json:"path"`
	QualityProfileID int64  `json:"qualityProfileId"`
	Monitored        bool   `json:"monitored"`
}

type episodeResource struct {
	ID            int64      `json:"id"`
	SeriesID      int64      `json:"seriesId"`
	SeasonNumber  int        `json:"seasonNumber"`
	EpisodeNumber int        `json:"episodeNumber"`
	Title         string     `json:"title"`
	AirDateUTC    *time.Time `json:"airDateUtc"`
	HasAired      *bool      `json:"hasAired,omitempty"`
	HasFile       bool       `json:"hasFile"`
	Monitored     bool       `json:"monitored"`
}

// ListSeries fetches every tracked series as normalized items.
func (s *Sonarr) ListSeries(ctx context.Context) ([]media.Item, error) {
	var resources []seriesResource
	if err := s.get(ctx, "/series", &resources); err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	items := make([]media.Item, 0, len(resources))
	for _, res := range resources {
		items = append(items, media.Item{
			ID:        res.ID,
			Kind:      media.KindSeries,
			Title:     res.Title,
			Path:      res.Path,
			ProfileID: res.QualityProfileID,
		})
	}
	return items, nil
}

// SeriesPath re-fetches one series and returns its currently reported path.
func (s *Sonarr) SeriesPath(ctx context.Context, id int64) (string, error) {
	var res seriesResource
	if err := s.get(ctx, fmt.Sprintf("/series/%d", id), &res); err != nil {
		return "", fmt.Errorf("fetch series %d: %w", id, err)
	}
	return res.Path, nil
}

// EpisodesForSeries fetches all episodes of a series as normalized episodes.
func (s *Sonarr) EpisodesForSeries(ctx context.Context, seriesID int64) ([]media.Episode, error) {
	var resources []episodeResource
	path := fmt.Sprintf("/episode?seriesId=%d", seriesID)
	if err := s.get(ctx, path, &resources); err != nil {
		return nil, fmt.Errorf("list episodes for series %d: %w", seriesID, err)
	}
	episodes := make([]media.Episode, 0, len(resources))
	for _, res := range resources {
		episodes = append(episodes, media.Episode{
			ID:           res.ID,
			SeriesID:     res.SeriesID,
			SeasonNumber: res.SeasonNumber,
			Number:       res.EpisodeNumber,
			Title:        res.Title,
			AirDateUTC:   res.AirDateUTC,
			HasAired:     res.HasAired,
			HasFile:      res.HasFile,
			Monitored:    res.Monitored,
		})
	}
	return episodes, nil
}

// SetSeriesLocation updates a series' path and optionally its quality
// profile. The service requires the full resource on PUT, so the current
// document is fetched, mutated, and written back. moveFiles controls whether
// the service relocates the underlying files or only updates its record.
func (s *Sonarr) SetSeriesLocation(ctx context.Context, id int64, path string, profileID int64, moveFiles bool) error {
	var doc map[string]any
	if err := s.get(ctx, fmt.Sprintf("/series/%d", id), &doc); err != nil {
		return fmt.Errorf("fetch series %d for update: %w", id, err)
	}
	doc["path"] = path
	if profileID > 0 {
		doc["qualityProfileId"] = profileID
	}
	target := fmt.Sprintf("/series/%d?moveFiles=%t", id, moveFiles)
	if err := s.put(ctx, target, doc, nil); err != nil {
		return fmt.Errorf("update series %d: %w", id, err)
	}
	return nil
}

type episodeMonitorRequest struct {
	EpisodeIDs []int64 `json:"episodeIds"`
	Monitored  bool    `json:"monitored"`
}

// SetEpisodesMonitored flips the monitoring flag on a batch of episodes.
func (s *Sonarr) SetEpisodesMonitored(ctx context.Context, ids []int64, monitored bool) error {
	if len(ids) == 0 {
		return nil
	}
	body := episodeMonitorRequest{EpisodeIDs: ids, Monitored: monitored}
	if err := s.put(ctx, "/episode/monitor", body, nil); err != nil {
		return fmt.Errorf("set episode monitoring: %w", err)
	}
	return nil
}
