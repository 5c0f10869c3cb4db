package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// NominatimGeocoder talks to a Nominatim instance. It keeps at least
// MinInterval between outbound requests and caches forward lookups by query.
type NominatimGeocoder struct {
	BaseURL     string
	UserAgent   string
	MinInterval time.Duration
	Client      *http.Client

	once      sync.Once
	mu        sync.Mutex
	lastReqAt time.Time
	cache     map[string]nominatimResult
}

type nominatimResult struct {
	Lat         float64
	Lng         float64
	DisplayName string
}

type nominatimItem struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// defaults fills unset fields exactly once so concurrent first requests do
// not race on the lazy writes.
func (g *NominatimGeocoder) defaults() {
	g.once.Do(func() {
		if g.Client == nil {
			g.Client = &http.Client{Timeout: 10 * time.Second}
		}
		if g.BaseURL == "" {
			g.BaseURL = "https://nominatim.openstreetmap.org"
		}
		if g.UserAgent == "" {
			g.UserAgent = "rescue-ai-web"
		}
		if g.MinInterval <= 0 {
			g.MinInterval = time.Second
		}
		if g.cache == nil {
			g.cache = map[string]nominatimResult{}
		}
	})
}

func (g *NominatimGeocoder) Geocode(ctx context.Context, query string) (float64, float64, string, error) {
	g.defaults()

	g.mu.Lock()
	if cached, ok := g.cache[query]; ok {
		g.mu.Unlock()
		return cached.Lat, cached.Lng, cached.DisplayName, nil
	}
	g.mu.Unlock()

	endpoint := fmt.Sprintf("%s/search?q=%s&format=json&limit=1", g.BaseURL, url.QueryEscape(query))
	var items []nominatimItem
	if err := g.get(ctx, endpoint, &items); err != nil {
		return 0, 0, "", err
	}
	result, err := parseNominatimItems(items)
	if err != nil {
		return 0, 0, "", err
	}

	g.mu.Lock()
	g.cache[query] = result
	g.mu.Unlock()

	return result.Lat, result.Lng, result.DisplayName, nil
}

func (g *NominatimGeocoder) Reverse(ctx context.Context, lat, lng float64) (string, error) {
	g.defaults()

	endpoint := fmt.Sprintf("%s/reverse?format=json&lat=%f&lon=%f", g.BaseURL, lat, lng)
	var item nominatimItem
	if err := g.get(ctx, endpoint, &item); err != nil {
		return "", err
	}
	if item.DisplayName == "" {
		return "", ErrNotFound
	}
	return item.DisplayName, nil
}

func (g *NominatimGeocoder) get(ctx context.Context, endpoint string, out any) error {
	g.mu.Lock()
	sleepFor := time.Until(g.lastReqAt.Add(g.MinInterval))
	if sleepFor > 0 {
		g.mu.Unlock()
		time.Sleep(sleepFor)
		g.mu.Lock()
	}
	g.lastReqAt = time.Now()
	g.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", g.UserAgent)

	resp, err := g.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("nominatim http error: %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func parseNominatimItems(items []nominatimItem) (nominatimResult, error) {
	if len(items) == 0 {
		return nominatimResult{}, ErrNotFound
	}
	lat, err := strconv.ParseFloat(items[0].Lat, 64)
	if err != nil {
		return nominatimResult{}, err
	}
	lng, err := strconv.ParseFloat(items[0].Lon, 64)
	if err != nil {
		return nominatimResult{}, err
	}
	return nominatimResult{
		Lat:         lat,
		Lng:         lng,
		DisplayName: items[0].DisplayName,
	}, nil
}
