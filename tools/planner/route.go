package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Router compares OpenRouteService directions across travel modes for a
// sequence of locations and recommends the fastest mode per segment.
type Router struct {
	ApiKey  string
	Weather Weather // reused for its geocoder
}

var routeProfiles = []struct {
	key   string
	label string
}{
	{"driving-car", "Car"},
	{"cycling-regular", "Cycling"},
	{"foot-walking", "Walking"},
}

// PlanRoute summarizes each consecutive segment of locations: distance and
// duration per mode, the recommended (fastest) mode, and totals over the
// recommended modes.
func (r Router) PlanRoute(ctx context.Context, locations []string) (string, error) {
	if r.ApiKey == "" {
		return "", fmt.Errorf("OpenRouteService API key is not configured")
	}
	if len(locations) < 2 {
		return "", fmt.Errorf("need at least two locations, got %d", len(locations))
	}

	type point struct {
		name     string
		lat, lon float64
	}
	points := make([]point, 0, len(locations))
	for _, loc := range locations {
		lat, lon, err := r.Weather.coordinates(ctx, loc)
		if err != nil {
			return "", fmt.Errorf("could not resolve %q: %w", loc, err)
		}
		points = append(points, point{name: fmt.Sprintf("%s (%.4f,%.4f)", loc, lat, lon), lat: lat, lon: lon})
	}

	lines := []string{"Route Plan Summary:"}
	var totalKm, totalMin float64

	for i := 0; i+1 < len(points); i++ {
		from, to := points[i], points[i+1]
		lines = append(lines, fmt.Sprintf("\nSegment %d: %s -> %s", i+1, from.name, to.name))

		bestLabel := ""
		var bestKm, bestMin float64
		for _, profile := range routeProfiles {
			km, min, err := r.directions(ctx, profile.key, from.lon, from.lat, to.lon, to.lat)
			switch {
			case err != nil:
				lines = append(lines, fmt.Sprintf("  - %s: %v", profile.label, err))
			case km == 0 && min == 0:
				lines = append(lines, fmt.Sprintf("  - %s: route found but distance/duration is zero", profile.label))
			default:
				lines = append(lines, fmt.Sprintf("  - %s: %.2f km, %.1f min", profile.label, km, min))
				if bestLabel == "" || min < bestMin {
					bestLabel, bestKm, bestMin = profile.label, km, min
				}
			}
		}
		if bestLabel == "" {
			lines = append(lines, "  -> Recommended: none (no valid modes for this segment)")
			continue
		}
		lines = append(lines, fmt.Sprintf("  -> Recommended: %s (%.2f km, %.1f min)", bestLabel, bestKm, bestMin))
		totalKm += bestKm
		totalMin += bestMin
	}

	if totalKm > 0 || totalMin > 0 {
		lines = append(lines,
			"\nTotal estimated route (sum of recommended modes):",
			fmt.Sprintf("  - Distance: %.2f km", totalKm),
			fmt.Sprintf("  - Duration: %.1f min (%.1f hours)", totalMin, totalMin/60),
		)
	}
	return strings.Join(lines, "\n"), nil
}

// directions fetches one segment for one profile, returning km and minutes.
func (r Router) directions(ctx context.Context, profile string, fromLon, fromLat, toLon, toLat float64) (float64, float64, error) {
	url := fmt.Sprintf("https://api.openrouteservice.org/v2/directions/%s?api_key=%s&start=%f,%f&end=%f,%f",
		profile, r.ApiKey, fromLon, fromLat, toLon, toLat)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("API error (status %d)", resp.StatusCode)
	}

	var raw struct {
		Features []struct {
			Properties struct {
				Summary struct {
					Distance float64 `json:"distance"` // meters
					Duration float64 `json:"duration"` // seconds
				} `json:"summary"`
			} `json:"properties"`
		} `json:"features"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return 0, 0, err
	}
	if len(raw.Features) == 0 {
		return 0, 0, fmt.Errorf("route not found")
	}
	s := raw.Features[0].Properties.Summary
	return s.Distance / 1000, s.Duration / 60, nil
}
