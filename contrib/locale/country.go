// Package locale provides geographic and monetary converters: country
// names to ISO 3166-1 alpha-2 codes, and amount/currency pairs to typed
// money values. The "country_code" named converter is registered on
// import.
package locale

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"graphconvert/convert"
)

var whitespaceRE = regexp.MustCompile(`\s+`)

func normalizeCountryName(name string) string {
	return whitespaceRE.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), " ")
}

// countryIndex maps normalized English country names and alpha-3 codes
// to alpha-2 codes, built lazily by enumerating the ISO region space.
type countryIndex struct {
	once       sync.Once
	nameToCode map[string]string
	codes      map[string]bool
}

var index countryIndex

func (ci *countryIndex) build() {
	ci.nameToCode = make(map[string]string, 512)
	ci.codes = make(map[string]bool, 256)

	namer := display.English.Regions()

	for a := 'A'; a <= 'Z'; a++ {
		for b := 'A'; b <= 'Z'; b++ {
			code := string([]rune{a, b})

			region, err := language.ParseRegion(code)
			if err != nil || !region.IsCountry() {
				continue
			}

			// ParseRegion canonicalizes deprecated codes; only index
			// codes that round-trip.
			if region.String() != code {
				continue
			}

			ci.codes[code] = true

			if name := namer.Name(region); name != "" {
				ci.nameToCode[normalizeCountryName(name)] = code
			}

			if iso3 := region.ISO3(); len(iso3) == 3 {
				ci.nameToCode[normalizeCountryName(iso3)] = code
			}
		}
	}
}

func (ci *countryIndex) lookup(normalized string) (string, bool) {
	ci.once.Do(ci.build)

	code, ok := ci.nameToCode[normalized]

	return code, ok
}

func (ci *countryIndex) isCode(code string) bool {
	ci.once.Do(ci.build)

	return ci.codes[code]
}

// aliases maps normalized alias names to codes, guarded separately from
// the lazily built index.
var (
	aliasMu sync.RWMutex
	aliases = map[string]string{}
)

// RegisterCountryAlias maps additional spellings onto an ISO alpha-2
// code, e.g. RegisterCountryAlias("GB", "Britain", "England").
func RegisterCountryAlias(code string, names ...string) {
	aliasMu.Lock()
	defer aliasMu.Unlock()

	for _, name := range names {
		aliases[normalizeCountryName(name)] = strings.ToUpper(code)
	}
}

func aliasLookup(normalized string) (string, bool) {
	aliasMu.RLock()
	defer aliasMu.RUnlock()

	code, ok := aliases[normalized]

	return code, ok
}

// CountryCode resolves a country name, alpha-3 code, alpha-2 code or
// registered alias to an uppercase ISO 3166-1 alpha-2 code. Unknown
// names resolve to "" with a warning; only non-string input is an
// error.
func CountryCode(v any) (string, error) {
	if v == nil {
		return "", nil
	}

	name, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("invalid type for country name: %T", v)
	}

	normalized := normalizeCountryName(name)
	if normalized == "" {
		return "", nil
	}

	if code := strings.ToUpper(normalized); index.isCode(code) {
		return code, nil
	}

	if code, ok := aliasLookup(normalized); ok {
		return code, nil
	}

	if code, ok := index.lookup(normalized); ok {
		return code, nil
	}

	slog.Warn("could not determine country code", "name", name)

	return "", nil
}

func init() {
	convert.RegisterNamedConverter("country_code", CountryCode)
}
