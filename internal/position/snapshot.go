package position

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	json "github.com/goccy/go-json"
)

// loadSnapshot reads positions.json (schema: market_id string key ->
// MarketPosition). A missing file is not an error: the tracker simply
// starts empty.
func loadSnapshot(path string) (map[uint16]MarketPosition, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[uint16]MarketPosition{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read position snapshot %s: %w", path, err)
	}

	var byString map[string]MarketPosition
	if err := json.Unmarshal(raw, &byString); err != nil {
		return nil, fmt.Errorf("parse position snapshot %s: %w", path, err)
	}

	out := make(map[uint16]MarketPosition, len(byString))
	for key, pos := range byString {
		id, err := strconv.ParseUint(key, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("position snapshot %s: invalid market_id key %q: %w", path, key, err)
		}
		out[uint16(id)] = pos
	}
	return out, nil
}

// writeSnapshot rewrites positions.json with snap, writing to a temp file
// in the same directory first so a crash mid-write never corrupts the
// previous snapshot.
func writeSnapshot(path string, snap map[uint16]MarketPosition) error {
	byString := make(map[string]MarketPosition, len(snap))
	for id, pos := range snap {
		byString[strconv.FormatUint(uint64(id), 10)] = pos
	}

	raw, err := json.MarshalIndent(byString, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal position snapshot: %w", err)
	}
	if err := ensureDir(path); err != nil {
		return fmt.Errorf("create position snapshot directory for %s: %w", path, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write position snapshot temp file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename position snapshot %s -> %s: %w", tmp, path, err)
	}
	return nil
}

// ensureDir creates the parent directory for path if it does not exist.
func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
