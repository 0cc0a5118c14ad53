// Package i18n serves the flat key to string translation tables used by the
// questionnaire renderer. Tables are compiled into the binary; the fallback
// language is English and applies wholesale, not per key.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"sync"
)

//go:embed locales/*.json
var localeFS embed.FS

// DefaultLanguage is the ultimate fallback table.
const DefaultLanguage = "en"

var (
	mu     sync.Mutex
	tables = make(map[string]map[string]string)
)

// Load returns the translation table for lang. An unknown language returns
// the English table; only a missing English table is an error.
func Load(lang string) (map[string]string, error) {
	if lang == "" {
		lang = DefaultLanguage
	}

	mu.Lock()
	defer mu.Unlock()

	if t, ok := tables[lang]; ok {
		return t, nil
	}

	t, err := loadLocked(lang)
	if err != nil {
		if lang == DefaultLanguage {
			return nil, err
		}
		t, err = loadLocked(DefaultLanguage)
		if err != nil {
			return nil, err
		}
		tables[lang] = t
		return t, nil
	}
	tables[lang] = t
	return t, nil
}

func loadLocked(lang string) (map[string]string, error) {
	data, err := localeFS.ReadFile("locales/" + lang + ".json")
	if err != nil {
		return nil, fmt.Errorf("load locale %s: %w", lang, err)
	}
	var t map[string]string
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse locale %s: %w", lang, err)
	}
	return t, nil
}

// Supported reports whether a dedicated table exists for lang.
func Supported(lang string) bool {
	_, err := localeFS.ReadFile("locales/" + lang + ".json")
	return err == nil
}
