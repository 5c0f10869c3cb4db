package geocode

import (
	"errors"
	"sync"
	"testing"
)

func TestParseNominatimItems(t *testing.T) {
	items := []nominatimItem{
		{
			Lat:         "21.1466",
			Lon:         "79.0889",
			DisplayName: "Sitabuldi, Nagpur, Maharashtra, India",
		},
	}
	res, err := parseNominatimItems(items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Lat != 21.1466 || res.Lng != 79.0889 {
		t.Fatalf("unexpected coordinates: %+v", res)
	}
	if res.DisplayName != "Sitabuldi, Nagpur, Maharashtra, India" {
		t.Fatalf("unexpected display name: %s", res.DisplayName)
	}
}

func TestParseNominatimItemsEmpty(t *testing.T) {
	if _, err := parseNominatimItems(nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNominatimDefaultsConcurrentFirstUse(t *testing.T) {
	g := &NominatimGeocoder{}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.defaults()
		}()
	}
	wg.Wait()
	if g.Client == nil || g.cache == nil {
		t.Fatalf("expected defaults initialized")
	}
	if g.BaseURL == "" || g.UserAgent == "" || g.MinInterval <= 0 {
		t.Fatalf("expected all defaults set: %+v", g)
	}
}

func TestParseNominatimItemsBadCoordinates(t *testing.T) {
	items := []nominatimItem{{Lat: "not-a-number", Lon: "79.0"}}
	if _, err := parseNominatimItems(items); err == nil {
		t.Fatalf("expected parse error")
	}
}
