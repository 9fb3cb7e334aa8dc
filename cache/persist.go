package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Flush writes every cached type to <dir>/<database>/<dataType>.json as a
// single {original → synthetic} object. Files are written atomically.
func (c *Cache) Flush(dir, database string) error {
	base := filepath.Join(dir, database)
	if err := os.MkdirAll(base, 0o755); err != nil {
		return err
	}

	c.mu.Lock()
	types := make([]string, 0, len(c.entries))
	for t := range c.entries {
		types = append(types, t)
	}
	c.mu.Unlock()

	for _, t := range types {
		m := c.Snapshot(t)
		if m == nil {
			continue
		}
		raw, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return err
		}
		path := filepath.Join(base, t+".json")
		tmp := path + ".tmp"
		if err := os.WriteFile(tmp, raw, 0o644); err != nil {
			return err
		}
		if err := os.Rename(tmp, path); err != nil {
			return err
		}
	}
	return nil
}

// Load reads previously flushed mapping files. Entries for data types that
// are no longer cached under the current policy are discarded, which keeps
// old cache directories compatible with policy changes.
func (c *Cache) Load(dir, database string) error {
	base := filepath.Join(dir, database)
	files, err := os.ReadDir(base)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		dataType := strings.TrimSuffix(f.Name(), ".json")
		if !c.policy[dataType] {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(base, f.Name()))
		if err != nil {
			return err
		}
		var m map[string]string
		if err := json.Unmarshal(raw, &m); err != nil {
			return fmt.Errorf("corrupt mapping cache file %s: %w", f.Name(), err)
		}
		for original, synthetic := range m {
			c.insert(dataType, original, synthetic)
		}
	}
	return nil
}
