package i18n

import (
	"os"
	"path/filepath"
	"testing"

	"highnoon/pkg/logx"
)

func writeLocales(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestGetWithFallback(t *testing.T) {
	t.Parallel()
	dir := writeLocales(t, map[string]string{
		"en.json":    `{"cmd_help": "commands: ...", "cmd_unknown": "unknown command"}`,
		"zh_tw.json": `{"cmd_unknown": "未知指令"}`,
	})
	m, err := New(dir, logx.Nop())
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	if got := m.Get(KeyCmdUnknown, LangZHTW); got != "未知指令" {
		t.Fatalf("zh_tw lookup = %q", got)
	}
	// Missing in zh_tw -> default locale.
	if got := m.Get(KeyCmdHelp, LangZHTW); got != "commands: ..." {
		t.Fatalf("fallback to default = %q", got)
	}
	// Unknown everywhere -> key itself.
	if got := m.Get("nope", LangEN); got != "nope" {
		t.Fatalf("key fallback = %q", got)
	}
}

func TestMalformedLocaleIsSkipped(t *testing.T) {
	t.Parallel()
	dir := writeLocales(t, map[string]string{
		"en.json":  `{"cmd_help": "ok"}`,
		"bad.json": `{not json`,
	})
	m, err := New(dir, logx.Nop())
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if got := m.Get(KeyCmdHelp, LangEN); got != "ok" {
		t.Fatalf("Get = %q", got)
	}
}

func TestTryParseLang(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want Lang
		ok   bool
	}{
		{"en", LangEN, true},
		{"EN", LangEN, true},
		{"zh_tw", LangZHTW, true},
		{"zh-tw", LangZHTW, true},
		{" ZH-TW ", LangZHTW, true},
		{"fr", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := TryParseLang(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("TryParseLang(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}

	if ParseLang("nope") != DefaultLang {
		t.Fatal("ParseLang should default for unknown locales")
	}
}
