package arr

import (
	"context"
	"fmt"

	"completearr/internal/media"
)

// Radarr wraps the shared client with the singular library endpoints.
type Radarr struct {
	*Client
}

// NewRadarr constructs a Radarr client.
func NewRadarr(client *Client) *Radarr {
	return &Radarr{Client: client}
}

type movieResource struct {
	ID               int64  `json:"id"`
	Title            string `json:"title"`
	Path             string `json:"path"`
	QualityProfileID int64  `json:"qualityProfileId"`
	Monitored        bool   `json:"monitored"`
}

// ListMovies fetches every tracked movie as normalized items.
func (r *Radarr) ListMovies(ctx context.Context) ([]media.Item, error) {
	var resources []movieResource
	if err := r.get(ctx, "/movie", &resources); err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	items := make([]media.Item, 0, len(resources))
	for _, res := range resources {
		items = append(items, media.Item{
			ID:        res.ID,
			Kind:      media.KindMovie,
			Title:     res.Title,
			Path:      res.Path,
			ProfileID: res.QualityProfileID,
		})
	}
	return items, nil
}

// MoviePath re-fetches one movie and returns its currently reported path.
func (r *Radarr) MoviePath(ctx context.Context, id int64) (string, error) {
	var res movieResource
	if err := r.get(ctx, fmt.Sprintf("/movie/%d", id), &res); err != nil {
		return "", fmt.Errorf("fetch movie %d: %w", id, err)
	}
	return res.Path, nil
}

// SetMovieLocation updates a movie's path, fetching the full resource first
// because the service requires it on PUT. moveFiles controls whether the
// underlying files are relocated or only the record is updated.
func (r *Radarr) SetMovieLocation(ctx context.Context, id int64, path string, profileID int64, moveFiles bool) error {
	var doc map[string]any
	if err := r.get(ctx, fmt.Sprintf("/movie/%d", id), &doc); err != nil {
		return fmt.Errorf("fetch movie %d for update: %w", id, err)
	}
	doc["path"] = path
	if profileID > 0 {
		doc["qualityProfileId"] = profileID
	}
	target := fmt.Sprintf("/movie/%d?moveFiles=%t", id, moveFiles)
	if err := r.put(ctx, target, doc, nil); err != nil {
		return fmt.Errorf("update movie %d: %w", id, err)
	}
	return nil
}
