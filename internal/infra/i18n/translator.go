package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales
var LocalesFS embed.FS

const DefaultLang = "fa"

// Translator resolves message keys for one language.
type Translator struct {
	lang         string
	translations map[string]string
}

func NewTranslator(fsys fs.FS, langCode string) (*Translator, error) {
	filePath := path.Join("locales", langCode+".yaml")
	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read translation file %s: %w", filePath, err)
	}
	t, err := newTranslatorFromBytes(data)
	if err != nil {
		return nil, err
	}
	t.lang = langCode
	return t, nil
}

func newTranslatorFromBytes(data []byte) (*Translator, error) {
	var translations map[string]string
	if err := yaml.Unmarshal(data, &translations); err != nil {
		return nil, fmt.Errorf("failed to parse translation file: %w", err)
	}
	return &Translator{translations: translations}, nil
}

// T returns the message for key, or key itself when it is missing.
func (t *Translator) T(key string, args ...interface{}) string {
	format, ok := t.translations[key]
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}

func (t *Translator) Lang() string { return t.lang }

// Bundle holds one Translator per language and picks one from Accept-Language.
type Bundle struct {
	def   *Translator
	langs map[string]*Translator
}

// NewBundle loads def plus the other languages from fsys.
func NewBundle(fsys fs.FS, def string, others ...string) (*Bundle, error) {
	b := &Bundle{langs: make(map[string]*Translator)}
	for _, l := range append([]string{def}, others...) {
		t, err := NewTranslator(fsys, l)
		if err != nil {
			return nil, err
		}
		b.langs[l] = t
	}
	b.def = b.langs[def]
	return b, nil
}

// For picks the first supported language tag in an Accept-Language header.
// Quality values are ignored; order is taken as preference.
func (b *Bundle) For(acceptLanguage string) *Translator {
	for _, part := range strings.Split(acceptLanguage, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		tag = strings.ToLower(strings.SplitN(tag, "-", 2)[0])
		if t, ok := b.langs[tag]; ok {
			return t
		}
	}
	return b.def
}
