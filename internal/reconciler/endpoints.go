package reconciler

import "context"

// seriesEndpoint adapts the episodic client to the mover's endpoint.
type seriesEndpoint struct {
	client SeriesClient
}

func (e seriesEndpoint) SetLocation(ctx context.Context, itemID int64, path string, profileID int64, moveFiles bool) error {
	return e.client.SetSeriesLocation(ctx, itemID, path, profileID, moveFiles)
}

func (e seriesEndpoint) CurrentLocation(ctx context.Context, itemID int64) (string, error) {
	return e.client.SeriesPath(ctx, itemID)
}

// movieEndpoint adapts the singular client to the mover's endpoint.
type movieEndpoint struct {
	client MovieClient
}

func (e movieEndpoint) SetLocation(ctx context.Context, itemID int64, path string, profileID int64, moveFiles bool) error {
	return e.client.SetMovieLocation(ctx, itemID, path, profileID, moveFiles)
}

func (e movieEndpoint) CurrentLocation(ctx context.Context, itemID int64) (string, error) {
	return e.client.MoviePath(ctx, itemID)
}
