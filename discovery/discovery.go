// Package discovery finds places (restaurants, tours, hotels) through the
// places API. The Finder interface keeps agents independent of the concrete
// backend; a static in-memory finder serves tests and offline setups.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/tripwise/concierge/core"
	"github.com/tripwise/concierge/logging"
)

// Filters narrow a search.
type Filters struct {
	City        string
	ServiceType string
	Limit       int
}

// Finder is the discovery collaborator consumed by the service agent and
// the booking state machine's discovery sub-flow. Results come back ranked
// best-first.
type Finder interface {
	Search(ctx context.Context, query string, f Filters) ([]core.Service, error)
	Sources() []core.Source
}

// HTTPFinder talks to the places API over REST with bearer authentication.
type HTTPFinder struct {
	baseURL string
	token   string
	client  *http.Client
	logger  logging.Logger
}

// HTTPOptions configure an HTTPFinder.
type HTTPOptions struct {
	Token   string
	Timeout time.Duration
	Logger  logging.Logger
}

// NewHTTPFinder constructs a Finder against baseURL.
func NewHTTPFinder(baseURL string, optFns ...func(o *HTTPOptions)) *HTTPFinder {
	opts := HTTPOptions{Timeout: 10 * time.Second, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &HTTPFinder{
		baseURL: baseURL,
		token:   opts.Token,
		client:  &http.Client{Timeout: opts.Timeout},
		logger:  opts.Logger,
	}
}

type placeRecord struct {
	ID            int     `json:"id"`
	Name          string  `json:"name"`
	ProductTypeID string  `json:"product_type_id"`
	LogoURL       string  `json:"logo_url"`
	CoverImageURL string  `json:"cover_image_url"`
	Address       string  `json:"address"`
	City          string  `json:"city"`
	Description   string  `json:"description"`
	PriceRange    string  `json:"price_range"`
	Rating        float64 `json:"rating"`
}

type searchEnvelope struct {
	Data []placeRecord `json:"data"`
}

// Search implements Finder. Results are sorted by rating, best first.
func (f *HTTPFinder) Search(ctx context.Context, query string, filters Filters) ([]core.Service, error) {
	if f.baseURL == "" {
		return nil, core.ErrNotConfigured
	}

	q := url.Values{}
	q.Set("query", query)
	if filters.ServiceType != "" {
		q.Set("service_type", filters.ServiceType)
	}
	if filters.City != "" {
		q.Set("city", filters.City)
	}
	if filters.Limit > 0 {
		q.Set("page_size", strconv.Itoa(filters.Limit))
	}

	endpoint := fmt.Sprintf("%s/api/services/search?%s", f.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Warn("places search failed", "error", err)
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("places search: unexpected status %d", resp.StatusCode)
	}

	var envelope searchEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("places search: decode: %w", err)
	}
	f.logger.Debug("places search completed", "results", len(envelope.Data), "duration", time.Since(start))

	services := make([]core.Service, 0, len(envelope.Data))
	for _, rec := range envelope.Data {
		img := rec.LogoURL
		if img == "" {
			img = rec.CoverImageURL
		}
		serviceType := filters.ServiceType
		if serviceType == "" {
			serviceType = "restaurant"
		}
		services = append(services, core.Service{
			ID:          rec.ID,
			Name:        rec.Name,
			Type:        serviceType,
			ImageURL:    img,
			Address:     rec.Address,
			City:        rec.City,
			Description: rec.Description,
			PriceRange:  rec.PriceRange,
			Rating:      rec.Rating,
		})
	}
	sort.SliceStable(services, func(i, j int) bool { return services[i].Rating > services[j].Rating })

	if filters.Limit > 0 && len(services) > filters.Limit {
		services = services[:filters.Limit]
	}
	return services, nil
}

// Sources returns the citation records attached to discovery answers.
func (f *HTTPFinder) Sources() []core.Source {
	if f.baseURL == "" {
		return nil
	}
	return []core.Source{{
		Title: "Restaurant directory",
		URL:   f.baseURL + "/api/services/restaurants",
	}}
}

// StaticFinder serves a fixed ranked list, for tests and offline demos.
type StaticFinder struct {
	Places []core.Service
}

// Search implements Finder over the fixed list, honoring Limit and City.
func (s *StaticFinder) Search(_ context.Context, _ string, f Filters) ([]core.Service, error) {
	out := make([]core.Service, 0, len(s.Places))
	for _, p := range s.Places {
		if f.City != "" && p.City != f.City {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// Sources implements Finder.
func (s *StaticFinder) Sources() []core.Source { return nil }
