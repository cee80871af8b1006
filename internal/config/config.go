package config

import (
	"fmt"
	"net/url"
	"regexp"
)

// Config holds everything that decides which paragraphs are rewritten and
// how the resulting links look. The values are compiled in; there is no
// config file or environment lookup.
type Config struct {
	// Selection
	MarkerPattern string // regexp for the reference marker at paragraph start
	DOIPrefix     string // literal that introduces the DOI

	// Link
	URLBase       string // resolver the DOI is appended to
	LinkText      string // visible label of the inserted link
	LinkColor     string // RRGGBB
	LinkUnderline bool
}

func Default() Config {
	return Config{
		MarkerPattern: `\[\d.*`,
		DOIPrefix:     "DOI:",

		URLBase:       "https://dx.doi.org/",
		LinkText:      "link",
		LinkColor:     "0563C1",
		LinkUnderline: true,
	}
}

var hexColor = regexp.MustCompile(`^[0-9A-Fa-f]{6}$`)

func (c Config) Validate() error {
	if _, err := c.Matcher(); err != nil {
		return err
	}
	if c.DOIPrefix == "" {
		return fmt.Errorf("DOI prefix is required")
	}
	u, err := url.Parse(c.URLBase)
	if err != nil {
		return fmt.Errorf("invalid URL base %q: %w", c.URLBase, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("URL base %q must be an absolute http(s) URL", c.URLBase)
	}
	if c.LinkText == "" {
		return fmt.Errorf("link text is required")
	}
	if !hexColor.MatchString(c.LinkColor) {
		return fmt.Errorf("link color %q must be six hex digits", c.LinkColor)
	}
	return nil
}

// Matcher compiles the candidate test: the marker pattern followed by the
// literal DOI prefix, anchored at the start of the paragraph text.
func (c Config) Matcher() (*regexp.Regexp, error) {
	re, err := regexp.Compile(`^(?:` + c.MarkerPattern + `)` + regexp.QuoteMeta(c.DOIPrefix))
	if err != nil {
		return nil, fmt.Errorf("invalid marker pattern %q: %w", c.MarkerPattern, err)
	}
	return re, nil
}
