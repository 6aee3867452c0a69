package am

import (
	"net/url"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/teranos/hirepanel/errors"
)

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.WithHint(errors.New("api.base_url cannot be empty"),
			"set HIREPANEL_API_BASE_URL or api.base_url in ~/.hirepanel/am.toml")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return errors.Wrapf(err, "api.base_url %q is not a valid URL", c.API.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Newf("api.base_url must use http or https, got %q", u.Scheme)
	}

	if c.API.TimeoutSeconds < 0 {
		return errors.Newf("api.timeout_seconds must be >= 0, got %d", c.API.TimeoutSeconds)
	}

	// 0 = no client-side limit
	if c.API.RequestsPerSecond < 0 {
		return errors.Newf("api.requests_per_second must be >= 0, got %f", c.API.RequestsPerSecond)
	}

	if c.API.VersionConstraint != "" {
		if _, err := semver.NewConstraint(c.API.VersionConstraint); err != nil {
			return errors.Wrapf(err, "api.version_constraint %q is invalid", c.API.VersionConstraint)
		}
	}

	if c.Views.PerPage < 0 || c.Views.PerPage > 100 {
		return errors.Newf("views.per_page must be between 0 and 100, got %d", c.Views.PerPage)
	}

	if c.Search.DebounceMs < 0 {
		return errors.Newf("search.debounce_ms must be >= 0, got %d", c.Search.DebounceMs)
	}

	switch c.Display.Timezone {
	case "", "Local", "UTC":
	default:
		if _, err := time.LoadLocation(c.Display.Timezone); err != nil {
			return errors.Wrapf(err, "display.timezone %q is unknown", c.Display.Timezone)
		}
	}

	if c.Display.Currency != "" && len(c.Display.Currency) != 3 {
		return errors.Newf("display.currency must be a 3-letter ISO code, got %q", c.Display.Currency)
	}

	return nil
}
