// Package i18n resolves dotted-path message keys against per-language
// dictionaries, falling back to English and finally to the literal key.
package i18n

import (
	"embed"
	"fmt"
	"path"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// DefaultLanguage is the fallback dictionary.
const DefaultLanguage = "en"

// dictionaries maps language code to flattened dotted-path messages.
var dictionaries = map[string]map[string]string{}

func init() {
	entries, errRead := localeFS.ReadDir("locales")
	if errRead != nil {
		log.WithError(errRead).Error("i18n: read locales")
		return
	}
	for _, entry := range entries {
		lang := strings.TrimSuffix(entry.Name(), path.Ext(entry.Name()))
		data, errFile := localeFS.ReadFile(path.Join("locales", entry.Name()))
		if errFile != nil {
			log.WithError(errFile).WithField("lang", lang).Error("i18n: read dictionary")
			continue
		}
		var tree map[string]any
		if errUnmarshal := yaml.Unmarshal(data, &tree); errUnmarshal != nil {
			log.WithError(errUnmarshal).WithField("lang", lang).Error("i18n: parse dictionary")
			continue
		}
		flat := map[string]string{}
		flatten("", tree, flat)
		dictionaries[lang] = flat
	}
}

// flatten collapses a nested map into dotted-path keys.
func flatten(prefix string, tree map[string]any, out map[string]string) {
	for key, value := range tree {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		switch typed := value.(type) {
		case string:
			out[full] = typed
		case map[string]any:
			flatten(full, typed, out)
		default:
			out[full] = fmt.Sprintf("%v", typed)
		}
	}
}

// Languages returns the supported language codes.
func Languages() []string {
	langs := make([]string, 0, len(dictionaries))
	for lang := range dictionaries {
		langs = append(langs, lang)
	}
	return langs
}

// T resolves a message key for the language, applying {placeholder}
// replacements. Keys absent from every dictionary resolve to the literal key.
func T(lang, key string, replacements map[string]string) string {
	message, ok := lookup(lang, key)
	if !ok {
		message, ok = lookup(DefaultLanguage, key)
	}
	if !ok {
		return key
	}
	for name, value := range replacements {
		message = strings.ReplaceAll(message, "{"+name+"}", value)
	}
	return message
}

func lookup(lang, key string) (string, bool) {
	dict, ok := dictionaries[lang]
	if !ok {
		return "", false
	}
	message, ok := dict[key]
	return message, ok
}
