// Package station resolves a unit's home station through a fallback
// chain over the station reference list and the unit roster.
package station

import (
	"errors"
	"strings"
	"sync"

	"github.com/dispatchsim/engine/internal/model"
)

// ErrNoStation is returned when no tier of the fallback chain yields a
// station with usable coordinates. Callers defer the return trip and
// retry on a later pass.
var ErrNoStation = errors.New("no station resolved for unit")

// Resolver maps unit ids to home stations. Reference data is replaced
// wholesale by the feed; resolution order, first hit wins:
//
//  1. explicit location override on the unit profile
//  2. station referenced by name on the unit profile
//  3. station matching the profile's group/post label
//  4. station whose id shares the call sign's regional prefix digits
//  5. first station in the list with valid non-zero coordinates
type Resolver struct {
	mu       sync.RWMutex
	stations []model.Station
	byName   map[string]model.Station
	byGroup  map[string]model.Station
	profiles map[string]model.UnitProfile
}

// NewResolver creates a resolver over the given reference data.
func NewResolver(stations []model.Station, profiles []model.UnitProfile) *Resolver {
	r := &Resolver{}
	r.SetStations(stations)
	r.SetProfiles(profiles)
	return r
}

// SetStations replaces the station reference list.
func (r *Resolver) SetStations(stations []model.Station) {
	byName := make(map[string]model.Station, len(stations))
	byGroup := make(map[string]model.Station, len(stations))
	for _, s := range stations {
		if s.Location.IsZero() {
			continue
		}
		if key := normalizeKey(s.Name); key != "" {
			if _, exists := byName[key]; !exists {
				byName[key] = s
			}
		}
		if key := normalizeKey(s.Group); key != "" {
			if _, exists := byGroup[key]; !exists {
				byGroup[key] = s
			}
		}
	}

	r.mu.Lock()
	r.stations = stations
	r.byName = byName
	r.byGroup = byGroup
	r.mu.Unlock()
}

// SetProfiles replaces the unit roster.
func (r *Resolver) SetProfiles(profiles []model.UnitProfile) {
	m := make(map[string]model.UnitProfile, len(profiles))
	for _, p := range profiles {
		m[model.NormalizeCallSign(p.CallSign)] = p
	}

	r.mu.Lock()
	r.profiles = m
	r.mu.Unlock()
}

// Resolve returns the home station for the given normalized unit id.
func (r *Resolver) Resolve(unitID string) (model.Station, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profile, hasProfile := r.profiles[unitID]

	// 1. explicit override
	if hasProfile && profile.Override != nil && !profile.Override.IsZero() {
		return model.Station{
			ID:       "override:" + unitID,
			Name:     profile.StationName,
			Location: *profile.Override,
			Group:    profile.Group,
		}, nil
	}

	// 2. station by profile name
	if hasProfile {
		if s, ok := r.byName[normalizeKey(profile.StationName)]; ok {
			return s, nil
		}
	}

	// 3. group/post label
	if hasProfile {
		if s, ok := r.byGroup[normalizeKey(profile.Group)]; ok {
			return s, nil
		}
	}

	// 4. regional prefix digits of the call sign
	if prefix := regionPrefix(unitID); prefix != "" {
		for _, s := range r.stations {
			if s.Location.IsZero() {
				continue
			}
			if strings.HasPrefix(s.ID, prefix) {
				return s, nil
			}
		}
	}

	// 5. first station with usable coordinates
	for _, s := range r.stations {
		if !s.Location.IsZero() {
			return s, nil
		}
	}

	return model.Station{}, ErrNoStation
}

// normalizeKey lowercases and trims a lookup key. Empty keys never match.
func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// regionPrefix extracts the leading regional/company digits of a call
// sign, two digits minimum. Call signs without a structured numeric
// prefix yield no match.
func regionPrefix(unitID string) string {
	digits := 0
	for digits < len(unitID) && unitID[digits] >= '0' && unitID[digits] <= '9' {
		digits++
	}
	if digits < 2 {
		return ""
	}
	return unitID[:2]
}
