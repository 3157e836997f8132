package gatekeeper

import "strings"

// Locales resolves the effective locale from a path prefix.
type Locales struct {
	supported map[string]struct{}
	def       string
}

func NewLocales(supported []string, def string) Locales {
	set := make(map[string]struct{}, len(supported)+1)
	for _, l := range supported {
		set[strings.ToLower(l)] = struct{}{}
	}
	set[def] = struct{}{}
	return Locales{supported: set, def: def}
}

func (l Locales) Default() string {
	return l.def
}

func (l Locales) Supported(locale string) bool {
	_, ok := l.supported[locale]
	return ok
}

// Split returns the locale for path and the path with a recognized locale
// prefix removed. Unrecognized prefixes stay in the path and get the default.
func (l Locales) Split(path string) (locale, rest string) {
	trimmed := strings.TrimPrefix(path, "/")
	first, remainder, hasMore := strings.Cut(trimmed, "/")

	if !l.Supported(strings.ToLower(first)) {
		return l.def, path
	}

	if !hasMore || remainder == "" {
		return strings.ToLower(first), "/"
	}
	return strings.ToLower(first), "/" + remainder
}
