// Package catalog loads embedded YAML message catalogs per locale.
package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// BaseLocale is the canonical source locale. The bot grew up German.
const BaseLocale = "de"

type catalogFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// LocaleCatalog stores all messages for one locale.
type LocaleCatalog struct {
	Locale   string
	Messages map[string]string
}

// Bundle contains all locale catalogs loaded from the embedded filesystem.
type Bundle struct {
	locales map[string]*LocaleCatalog
	tags    []language.Tag
	matcher language.Matcher
}

//go:embed locales/*/*.yaml
var embeddedCatalogFS embed.FS

var defaultBundle = mustLoadEmbedded()

// Default returns the process-wide embedded catalog bundle.
func Default() *Bundle {
	return defaultBundle
}

func mustLoadEmbedded() *Bundle {
	bundle, err := LoadFromFS(embeddedCatalogFS)
	if err != nil {
		panic(fmt.Sprintf("load embedded catalogs: %v", err))
	}
	return bundle
}

// LoadFromFS loads catalog files matching locales/<locale>/<name>.yaml.
func LoadFromFS(catalogFS fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(catalogFS, "locales/*/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	bundle := &Bundle{locales: map[string]*LocaleCatalog{}}

	for _, p := range paths {
		data, err := fs.ReadFile(catalogFS, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}
		if err := bundle.addFile(p, file); err != nil {
			return nil, err
		}
	}

	if !bundle.HasLocale(BaseLocale) {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}

	for locale := range bundle.locales {
		tag, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("invalid locale %q: %w", locale, err)
		}
		if locale == BaseLocale {
			// The matcher prefers earlier tags; the base locale goes first.
			bundle.tags = append([]language.Tag{tag}, bundle.tags...)
		} else {
			bundle.tags = append(bundle.tags, tag)
		}
	}
	bundle.matcher = language.NewMatcher(bundle.tags)

	return bundle, nil
}

func (b *Bundle) addFile(filePath string, file catalogFile) error {
	localeFromPath := path.Base(path.Dir(filePath))

	locale := strings.TrimSpace(file.Locale)
	if locale == "" {
		return fmt.Errorf("catalog %s: locale is required", filePath)
	}
	if locale != localeFromPath {
		return fmt.Errorf("catalog %s: locale %q must match path locale %q", filePath, locale, localeFromPath)
	}

	lc, ok := b.locales[locale]
	if !ok {
		lc = &LocaleCatalog{Locale: locale, Messages: map[string]string{}}
		b.locales[locale] = lc
	}
	for key, msg := range file.Messages {
		if _, dup := lc.Messages[key]; dup {
			return fmt.Errorf("catalog %s: duplicate message key %q", filePath, key)
		}
		lc.Messages[key] = msg
	}
	return nil
}

// HasLocale reports whether a catalog exists for the exact locale string.
func (b *Bundle) HasLocale(locale string) bool {
	_, ok := b.locales[locale]
	return ok
}

// Locales lists the loaded locale identifiers, base locale first.
func (b *Bundle) Locales() []string {
	out := make([]string, 0, len(b.tags))
	for _, tag := range b.tags {
		out = append(out, tag.String())
	}
	return out
}

// Match resolves a requested locale (BCP 47, loosely) to the best loaded
// catalog, falling back to the base locale.
func (b *Bundle) Match(requested string) *LocaleCatalog {
	if lc, ok := b.locales[requested]; ok {
		return lc
	}
	if tag, err := language.Parse(requested); err == nil {
		_, idx, conf := b.matcher.Match(tag)
		if conf != language.No && idx < len(b.tags) {
			if lc, ok := b.locales[b.tags[idx].String()]; ok {
				return lc
			}
		}
	}
	return b.locales[BaseLocale]
}

// Format renders the message for key in the requested locale, substituting
// {name} placeholders from args. Unknown keys fall back to the base locale
// and finally to the key itself so a missing translation never drops a
// reply on the floor.
func (b *Bundle) Format(locale, key string, args map[string]string) string {
	lc := b.Match(locale)
	msg, ok := lc.Messages[key]
	if !ok {
		msg, ok = b.locales[BaseLocale].Messages[key]
		if !ok {
			return key
		}
	}
	return expand(msg, args)
}

func expand(msg string, args map[string]string) string {
	if len(args) == 0 {
		return msg
	}
	pairs := make([]string, 0, len(args)*2)
	for name, value := range args {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}
