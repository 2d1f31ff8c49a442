package config

import (
	"os"
	"sort"
	"strconv"
	"strings"
)

// Platform identifies one supported download source. The set of platforms is
// configuration, not code: handlers and the ledger iterate over the table
// returned by LoadPlatforms instead of branching on hard-coded names.
type Platform struct {
	ID        string      // stable identifier, also the field prefix in stored documents
	Label     string      // display name for menus
	FreeLimit int         // lifetime free downloads per user on this platform
	Prices    map[int]int // premium bundle size -> price (display only)
}

// Platforms is the full platform table keyed by platform ID.
type Platforms map[string]Platform

// LoadPlatforms returns the platform table. Free limits can be overridden per
// platform with FREE_LIMIT_<ID> (e.g. FREE_LIMIT_TERABOX=3). An empty
// PLATFORMS variable keeps the default trio; setting it to a comma-separated
// subset (e.g. "terabox") restricts the bot to those platforms — the deployed
// configuration has run both ways.
func LoadPlatforms() Platforms {
	defaults := []Platform{
		{
			ID:        "terabox",
			Label:     "Terabox",
			FreeLimit: 5,
			Prices:    map[int]int{50: 100, 100: 200},
		},
		{
			ID:        "youtube",
			Label:     "YouTube",
			FreeLimit: 10,
			Prices:    map[int]int{100: 20, 200: 40},
		},
		{
			ID:        "instagram",
			Label:     "Instagram",
			FreeLimit: 20,
			Prices:    map[int]int{200: 20, 500: 50},
		},
	}

	enabled := map[string]bool{}
	if raw := os.Getenv("PLATFORMS"); raw != "" {
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(strings.ToLower(p)); p != "" {
				enabled[p] = true
			}
		}
	}

	table := make(Platforms, len(defaults))
	for _, p := range defaults {
		if len(enabled) > 0 && !enabled[p.ID] {
			continue
		}
		if v := os.Getenv("FREE_LIMIT_" + strings.ToUpper(p.ID)); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				p.FreeLimit = n
			}
		}
		table[p.ID] = p
	}
	return table
}

// IDs returns the platform identifiers in stable (sorted) order, for menus
// and for deterministic iteration inside storage scripts.
func (p Platforms) IDs() []string {
	ids := make([]string, 0, len(p))
	for id := range p {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Limit returns the free limit for a platform, or 0 when the platform is
// unknown. A zero limit means every free check fails closed.
func (p Platforms) Limit(id string) int {
	return p[id].FreeLimit
}

// Has reports whether the platform ID is part of the configured table.
func (p Platforms) Has(id string) bool {
	_, ok := p[id]
	return ok
}
