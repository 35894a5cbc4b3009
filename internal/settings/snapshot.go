package settings

import (
	"encoding/json"
	"sync"
	"time"
)

// dbConfig is the in-memory snapshot of the settings table. Handlers and the
// watcher replace it wholesale; readers never see a partial update.
type dbConfig struct {
	updatedAt time.Time
	values    map[string]json.RawMessage
}

var (
	dbConfigMu      sync.RWMutex
	currentDBConfig dbConfig
)

// StoreDBConfig replaces the settings snapshot.
func StoreDBConfig(updatedAt time.Time, values map[string]json.RawMessage) {
	dbConfigMu.Lock()
	currentDBConfig = dbConfig{updatedAt: updatedAt, values: values}
	dbConfigMu.Unlock()
}

// DBConfigValue returns the raw JSON value for a settings key.
func DBConfigValue(key string) (json.RawMessage, bool) {
	dbConfigMu.RLock()
	defer dbConfigMu.RUnlock()
	if currentDBConfig.values == nil {
		return nil, false
	}
	value, ok := currentDBConfig.values[key]
	return value, ok
}

// DBConfigUpdatedAt returns the snapshot's newest row timestamp.
func DBConfigUpdatedAt() time.Time {
	dbConfigMu.RLock()
	defer dbConfigMu.RUnlock()
	return currentDBConfig.updatedAt
}

// SiteName returns the configured site name or the default.
func SiteName() string {
	raw, ok := DBConfigValue(SiteNameKey)
	if !ok {
		return DefaultSiteName
	}
	var name string
	if errUnmarshal := json.Unmarshal(raw, &name); errUnmarshal != nil || name == "" {
		return DefaultSiteName
	}
	return name
}

// IntValue returns an integer setting, or the fallback when absent or
// malformed.
func IntValue(key string, fallback int) int {
	raw, ok := DBConfigValue(key)
	if !ok {
		return fallback
	}
	var parsed int
	if errUnmarshal := json.Unmarshal(raw, &parsed); errUnmarshal != nil {
		return fallback
	}
	return parsed
}

// BoolValue returns a boolean setting, or the fallback when absent or
// malformed.
func BoolValue(key string, fallback bool) bool {
	raw, ok := DBConfigValue(key)
	if !ok {
		return fallback
	}
	var parsed bool
	if errUnmarshal := json.Unmarshal(raw, &parsed); errUnmarshal != nil {
		return fallback
	}
	return parsed
}

// StringValue returns a string setting, or the fallback when absent or
// malformed.
func StringValue(key, fallback string) string {
	raw, ok := DBConfigValue(key)
	if !ok {
		return fallback
	}
	var parsed string
	if errUnmarshal := json.Unmarshal(raw, &parsed); errUnmarshal != nil {
		return fallback
	}
	return parsed
}
