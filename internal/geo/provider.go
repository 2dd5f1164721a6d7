package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/pulsedash/pulsedash/internal/services"
)

// HTTPProvider fetches a GeoJSON FeatureCollection of region boundaries from
// a configured URL. Every fetch carries a hard timeout; the demographic view
// treats any failure as "render without the map".
type HTTPProvider struct {
	url    string
	client *http.Client
}

func NewHTTPProvider(url string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPProvider{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type featureCollection struct {
	Features []struct {
		ID         any `json:"id"`
		Properties struct {
			Name    string `json:"name"`
			StName  string `json:"st_nm"`
			NameAlt string `json:"NAME_1"`
		} `json:"properties"`
	} `json:"features"`
}

func (p *HTTPProvider) Boundaries(ctx context.Context) (*services.BoundarySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("boundary request: %w", err)
	}
	res, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch boundaries: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, services.NewBadGatewayError("boundary source returned " + res.Status)
	}
	var fc featureCollection
	if err := json.NewDecoder(res.Body).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decode boundaries: %w", err)
	}
	return toBoundarySet(fc), nil
}

// toBoundarySet flattens the GeoJSON features to id/name pairs. Boundary
// datasets disagree on the name property, so several common keys are tried.
func toBoundarySet(fc featureCollection) *services.BoundarySet {
	bs := &services.BoundarySet{Features: make([]services.BoundaryFeature, 0, len(fc.Features))}
	for i, f := range fc.Features {
		name := f.Properties.Name
		if name == "" {
			name = f.Properties.StName
		}
		if name == "" {
			name = f.Properties.NameAlt
		}
		if name == "" {
			continue
		}
		bs.Features = append(bs.Features, services.BoundaryFeature{
			ID:   featureID(f.ID, i),
			Name: name,
		})
	}
	return bs
}

func featureID(raw any, index int) string {
	switch v := raw.(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.Itoa(index)
}
