package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dispatchsim/engine/internal/model"
)

// HTTPSource polls the dispatch-board REST API for incidents, stations
// and the unit roster. It implements both IncidentSource and
// StationSource.
type HTTPSource struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPSource creates a feed over the board API.
func NewHTTPSource(baseURL, apiKey string) *HTTPSource {
	return &HTTPSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *HTTPSource) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("feed %s returned status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode feed %s: %w", path, err)
	}
	return nil
}

// List returns the board's current incidents.
func (s *HTTPSource) List(ctx context.Context) ([]model.Incident, error) {
	var incidents []model.Incident
	if err := s.getJSON(ctx, "/api/v1/incidents", &incidents); err != nil {
		return nil, err
	}
	return incidents, nil
}

// Stations returns the board's station reference list.
func (s *HTTPSource) Stations(ctx context.Context) ([]model.Station, error) {
	var stations []model.Station
	if err := s.getJSON(ctx, "/api/v1/stations", &stations); err != nil {
		return nil, err
	}
	return stations, nil
}

// Profiles returns the board's unit roster.
func (s *HTTPSource) Profiles(ctx context.Context) ([]model.UnitProfile, error) {
	var profiles []model.UnitProfile
	if err := s.getJSON(ctx, "/api/v1/units", &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}
