package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Weather summarizes OpenWeatherMap's 5-day/3-hour forecast into one line
// per day: temperature range, conditions and average wind.
type Weather struct {
	ApiKey string
}

// coordinates resolves a location string to (lat, lon). Accepts "lat,lon"
// or "lon,lat" pairs directly; anything else goes through the geocoder.
func (w Weather) coordinates(ctx context.Context, location string) (float64, float64, error) {
	if lat, lon, ok := parseCoordinates(location); ok {
		return lat, lon, nil
	}
	// City names with a country suffix geocode better without it.
	city := strings.TrimSpace(strings.SplitN(location, ",", 2)[0])
	geoURL := fmt.Sprintf("http://api.openweathermap.org/geo/1.0/direct?q=%s&limit=1&appid=%s",
		url.QueryEscape(city), w.ApiKey)

	req, err := http.NewRequestWithContext(ctx, "GET", geoURL, nil)
	if err != nil {
		return 0, 0, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("geocoding returned status %d", resp.StatusCode)
	}
	var hits []struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return 0, 0, err
	}
	if len(hits) == 0 {
		return 0, 0, fmt.Errorf("no coordinates found for %q", location)
	}
	return hits[0].Lat, hits[0].Lon, nil
}

// Forecast returns a textual daily forecast for up to 5 days.
func (w Weather) Forecast(ctx context.Context, city string, days int) (string, error) {
	if w.ApiKey == "" {
		return "", fmt.Errorf("OpenWeatherMap API key is not configured")
	}
	lat, lon, err := w.coordinates(ctx, city)
	if err != nil {
		return "", fmt.Errorf("could not retrieve coordinates for %q: %w", city, err)
	}
	if days < 1 {
		days = 1
	}
	if days > 5 {
		days = 5
	}

	fcURL := fmt.Sprintf("http://api.openweathermap.org/data/2.5/forecast?lat=%f&lon=%f&appid=%s&units=metric",
		lat, lon, w.ApiKey)
	req, err := http.NewRequestWithContext(ctx, "GET", fcURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("forecast returned status %d", resp.StatusCode)
	}

	var raw struct {
		List []struct {
			DtTxt string `json:"dt_txt"`
			Main  struct {
				Temp float64 `json:"temp"`
			} `json:"main"`
			Wind struct {
				Speed float64 `json:"speed"`
			} `json:"wind"`
			Weather []struct {
				Description string `json:"description"`
			} `json:"weather"`
		} `json:"list"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", err
	}

	type daily struct {
		min, max, windSum float64
		windN             int
		descriptions      map[string]struct{}
	}
	byDate := map[string]*daily{}
	today := time.Now().Truncate(24 * time.Hour)

	for _, e := range raw.List {
		ts, err := time.Parse("2006-01-02 15:04:05", e.DtTxt)
		if err != nil {
			continue
		}
		offset := int(ts.Truncate(24 * time.Hour).Sub(today).Hours() / 24)
		if offset < 0 || offset >= days {
			continue
		}
		date := ts.Format("2006-01-02 (Monday)")
		d, ok := byDate[date]
		if !ok {
			d = &daily{min: math.MaxFloat64, max: -math.MaxFloat64, descriptions: map[string]struct{}{}}
			byDate[date] = d
		}
		d.min = math.Min(d.min, e.Main.Temp)
		d.max = math.Max(d.max, e.Main.Temp)
		d.windSum += e.Wind.Speed
		d.windN++
		if len(e.Weather) > 0 && e.Weather[0].Description != "" {
			d.descriptions[capitalize(e.Weather[0].Description)] = struct{}{}
		}
	}
	if len(byDate) == 0 {
		return "", fmt.Errorf("could not process forecast data for %s for the requested dates", city)
	}

	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	lines := []string{fmt.Sprintf("Weather Forecast for %s (next %d day(s)):", city, days)}
	for _, date := range dates {
		d := byDate[date]
		var descs []string
		for desc := range d.descriptions {
			descs = append(descs, desc)
		}
		sort.Strings(descs)
		lines = append(lines,
			fmt.Sprintf("\n- %s:", date),
			fmt.Sprintf("  Temp: %.1f°C - %.1f°C", d.min, d.max),
			fmt.Sprintf("  Weather: %s", strings.Join(descs, ", ")),
			fmt.Sprintf("  Avg Wind: %.1f m/s", d.windSum/float64(d.windN)),
		)
	}
	return strings.Join(lines, "\n"), nil
}

// parseCoordinates accepts "lat,lon" or "lon,lat" and normalizes to
// (lat, lon), inferring the order from value ranges. Ambiguous pairs are
// read as lat,lon.
func parseCoordinates(s string) (float64, float64, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	v1, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	v2, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	v1Lat := v1 >= -90 && v1 <= 90
	v2Lat := v2 >= -90 && v2 <= 90
	v1Lon := v1 >= -180 && v1 <= 180
	v2Lon := v2 >= -180 && v2 <= 180
	switch {
	case v1Lat && v2Lon:
		return v1, v2, true
	case v1Lon && v2Lat:
		return v2, v1, true
	default:
		return 0, 0, false
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
