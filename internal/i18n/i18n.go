package i18n

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"highnoon/pkg/logx"
)

// Lang is a supported locale code.
type Lang string

const (
	LangEN   Lang = "en"
	LangZHTW Lang = "zh_tw"
)

// DefaultLang is used when a user has no stored preference.
const DefaultLang = LangEN

// Langs lists the supported locales.
func Langs() []Lang { return []Lang{LangEN, LangZHTW} }

// TryParseLang normalizes a user-supplied locale string. Returns false when
// the value names no supported locale.
func TryParseLang(s string) (Lang, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	// common alternate spelling
	if s == "zh-tw" {
		return LangZHTW, true
	}
	for _, l := range Langs() {
		if string(l) == s {
			return l, true
		}
	}
	return "", false
}

// ParseLang is TryParseLang with a fallback to the default locale.
func ParseLang(s string) Lang {
	if l, ok := TryParseLang(s); ok {
		return l
	}
	return DefaultLang
}

// Translation keys.
const (
	KeyProcessingError = "processing_error"
	KeySetLang         = "set_lang"
	KeyMissingArgs     = "missing_args"
	KeyAvailableLangs  = "available_langs"
	KeyRanOutQuestions = "ran_out_questions"
	KeyCountdown       = "countdown"

	KeyCmdHelp          = "cmd_help"
	KeyCmdToggleEnable  = "cmd_toggle_enable"
	KeyCmdToggleDisable = "cmd_toggle_disable"
	KeyCmdUnknown       = "cmd_unknown"
	KeyCmdScream        = "cmd_scream"
	KeyCmdAbout         = "cmd_about"
)

// Manager loads per-locale JSON files ("<lang>.json") from a directory and
// serves translated strings with fallback: requested locale, then the
// default locale, then the key itself.
type Manager struct {
	dir string
	log logx.Logger

	mu           sync.RWMutex
	translations map[Lang]map[string]string
}

func New(dir string, log logx.Logger) (*Manager, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	m := &Manager{
		dir:          dir,
		log:          log.With(logx.String("component", "i18n")),
		translations: map[Lang]map[string]string{},
	}
	if err := m.Reload(); err != nil {
		return nil, err
	}
	return m, nil
}

// Reload re-reads every locale file. On error the previous table is kept.
func (m *Manager) Reload() error {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return err
	}

	loaded := map[Lang]map[string]string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		locale := strings.TrimSuffix(e.Name(), ".json")
		b, err := os.ReadFile(filepath.Join(m.dir, e.Name()))
		if err != nil {
			return err
		}
		var table map[string]string
		if err := json.Unmarshal(b, &table); err != nil {
			m.log.Warn("skipping malformed locale file", logx.String("file", e.Name()), logx.Err(err))
			continue
		}
		loaded[Lang(locale)] = table
	}

	m.mu.Lock()
	m.translations = loaded
	m.mu.Unlock()

	m.log.Info("translations loaded", logx.Int("languages", len(loaded)))
	return nil
}

// Get returns the translation of key for lang. Missing entries fall back to
// the default locale; a key unknown everywhere is returned verbatim.
func (m *Manager) Get(key string, lang Lang) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if t, ok := m.translations[lang]; ok {
		if s, ok := t[key]; ok {
			return s
		}
	}
	if lang != DefaultLang {
		if t, ok := m.translations[DefaultLang]; ok {
			if s, ok := t[key]; ok {
				return s
			}
		}
	}
	return key
}
