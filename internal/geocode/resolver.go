package geocode

import (
	"context"
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/Rescueaii/rescue-ai-web/internal/models"
)

// Resolution is the outcome of one location lookup. Resolved is false only
// when nothing could be determined and the caller already holds coordinates
// for the case.
type Resolution struct {
	Lat         float64
	Lng         float64
	Source      string
	DisplayName string
	Resolved    bool
}

type memoEntry struct {
	text string
	res  Resolution
}

// Resolver turns free-text or device-supplied locations into coordinates
// with a provenance tag. It memoizes the last successfully resolved text per
// case so unchanged input never triggers another outbound lookup.
type Resolver struct {
	Geocoder Geocoder
	Anchor   string      // e.g. "Nagpur, India"
	Fallback Coordinates // regional centroid
	Logger   zerolog.Logger

	memo *gocache.Cache
}

func NewResolver(g Geocoder, anchor string, fallback Coordinates, logger zerolog.Logger) *Resolver {
	return &Resolver{
		Geocoder: g,
		Anchor:   anchor,
		Fallback: fallback,
		Logger:   logger,
		memo:     gocache.New(30*time.Minute, 10*time.Minute),
	}
}

// Resolve picks coordinates for a case. Device coordinates always win; free
// text goes through the progressively widened query chain; when neither
// yields anything and the case has no prior coordinates, the configured
// regional centroid is returned tagged as fallback. It never blocks the
// pipeline on geography: the only errors it can see are swallowed into the
// fallback path.
func (r *Resolver) Resolve(ctx context.Context, caseID, text string, device *Coordinates, havePrior bool) Resolution {
	if device != nil {
		res := Resolution{Lat: device.Lat, Lng: device.Lng, Source: models.SourceGPS, Resolved: true}
		// Best effort: a reverse-lookup failure never fails gps resolution.
		if name, err := r.Geocoder.Reverse(ctx, device.Lat, device.Lng); err == nil {
			res.DisplayName = name
		} else if !errors.Is(err, ErrNotFound) {
			r.Logger.Warn().Err(err).Msg("reverse geocode failed")
		}
		r.remember(caseID, text, res)
		return res
	}

	if text != "" {
		if prev, ok := r.recall(caseID, text); ok {
			return prev
		}
		if res, ok := r.forward(ctx, text); ok {
			r.remember(caseID, text, res)
			return res
		}
	}

	if havePrior {
		return Resolution{}
	}
	return Resolution{
		Lat:      r.Fallback.Lat,
		Lng:      r.Fallback.Lng,
		Source:   models.SourceFallback,
		Resolved: true,
	}
}

func (r *Resolver) forward(ctx context.Context, text string) (Resolution, bool) {
	parts := splitSegments(text)
	for _, strategy := range wideningStrategies {
		query, ok := strategy(text, parts, r.Anchor)
		if !ok {
			continue
		}
		lat, lng, name, err := r.Geocoder.Geocode(ctx, query)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				r.Logger.Warn().Err(err).Str("query", query).Msg("geocode attempt failed")
			}
			continue
		}
		return Resolution{Lat: lat, Lng: lng, Source: models.SourceManual, DisplayName: name, Resolved: true}, true
	}
	return Resolution{}, false
}

func (r *Resolver) remember(caseID, text string, res Resolution) {
	if caseID == "" || text == "" {
		return
	}
	r.memo.Set(caseID, memoEntry{text: text, res: res}, gocache.DefaultExpiration)
}

func (r *Resolver) recall(caseID, text string) (Resolution, bool) {
	if caseID == "" {
		return Resolution{}, false
	}
	v, ok := r.memo.Get(caseID)
	if !ok {
		return Resolution{}, false
	}
	entry := v.(memoEntry)
	if entry.text != text {
		return Resolution{}, false
	}
	return entry.res, true
}
