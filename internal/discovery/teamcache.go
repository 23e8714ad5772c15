package discovery

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
)

// TeamCache is a persistent, load-once mapping from raw venue-native team or
// participant names to a canonical key. It is read-only once loaded; a miss
// is reported to the caller rather than treated as fatal.
type TeamCache struct {
	mu      sync.RWMutex
	entries map[string]string
}

var punctStrip = regexp.MustCompile(`[^a-z0-9 ]+`)
var spaceCollapse = regexp.MustCompile(`\s+`)

// fold applies the case-fold/punctuation-strip normalization used both to
// build cache keys and to look raw names up in them.
func fold(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = punctStrip.ReplaceAllString(s, " ")
	s = spaceCollapse.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// LoadTeamCache reads a team_cache.json file. A missing file yields an empty,
// usable cache rather than an error — an empty cache just means every lookup
// misses and gets reported through Canonicalize's ok=false path.
func LoadTeamCache(path string) (*TeamCache, error) {
	tc := &TeamCache{entries: make(map[string]string)}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return tc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read team cache %s: %w", path, err)
	}

	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse team cache %s: %w", path, err)
	}
	for k, v := range m {
		tc.entries[fold(k)] = v
	}
	return tc, nil
}

// Canonicalize resolves a raw venue-native name to its canonical key.
// Abbreviation expansion is layered on top of the raw JSON mapping: a miss
// on the exact folded string is retried against any known abbreviation
// expansions before reporting a genuine miss.
func (tc *TeamCache) Canonicalize(raw string) (string, bool) {
	key := fold(raw)

	tc.mu.RLock()
	defer tc.mu.RUnlock()

	if canon, ok := tc.entries[key]; ok {
		return canon, true
	}
	if expanded, ok := abbreviations[key]; ok {
		if canon, ok := tc.entries[expanded]; ok {
			return canon, true
		}
	}
	return "", false
}

// Len reports the number of entries loaded, for diagnostics.
func (tc *TeamCache) Len() int {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return len(tc.entries)
}

// abbreviations covers common venue-native shorthand that a flat raw->canon
// mapping alone won't catch (e.g. "lal" vs "los angeles lakers"). Extend as
// new venue feeds surface new shorthand.
var abbreviations = map[string]string{
	"lal": "los angeles lakers",
	"bos": "boston celtics",
	"gsw": "golden state warriors",
	"nyy": "new york yankees",
	"nyk": "new york knicks",
}
