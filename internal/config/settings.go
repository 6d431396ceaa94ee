package config

import (
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"

	"github.com/mcp-testmo/testmo-mcp-server/internal/fieldmap"
	"github.com/mcp-testmo/testmo-mcp-server/internal/testmo"
)

var httpScheme = regexp.MustCompile(`^https?://`)

// Settings is the resolved configuration shared by both server modes.
type Settings struct {
	URL               string
	Token             string
	ProjectID         int64
	RateLimitDelay    time.Duration
	RequestTimeout    time.Duration
	MaxRPS            float64
	FieldMappingsPath string
}

func SettingsFromCommand(cmd *cli.Command) Settings {
	return Settings{
		URL:               cmd.String("testmo-url"),
		Token:             cmd.String("token"),
		ProjectID:         cmd.Int64("project-id"),
		RateLimitDelay:    cmd.Duration("rate-limit-delay"),
		RequestTimeout:    cmd.Duration("request-timeout"),
		MaxRPS:            cmd.Float("max-rps"),
		FieldMappingsPath: cmd.String("field-mappings"),
	}
}

func (s Settings) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.URL,
			validation.Required,
			is.RequestURL.Error("must be an absolute http(s) URL"),
			validation.Match(httpScheme).Error("must be an absolute http(s) URL"),
		),
		validation.Field(&s.ProjectID, validation.Min(int64(0))),
		validation.Field(&s.RateLimitDelay, validation.Min(time.Duration(0))),
		validation.Field(&s.RequestTimeout, validation.Min(time.Duration(0))),
		validation.Field(&s.MaxRPS, validation.Min(float64(0))),
	)
}

// ClientOptions translates the pacing and timeout settings into Testmo client options.
func (s Settings) ClientOptions() []testmo.Option {
	opts := []testmo.Option{
		testmo.WithPacer(testmo.FixedDelay(s.RateLimitDelay)),
		testmo.WithTimeout(s.RequestTimeout),
	}
	if s.MaxRPS > 0 {
		opts = append(opts, testmo.WithRateLimit(rate.NewLimiter(rate.Limit(s.MaxRPS), 1)))
	}
	return opts
}

// FieldMappings loads the configured mappings file, or the built-in defaults.
func (s Settings) FieldMappings() fieldmap.Mappings {
	return fieldmap.Load(s.FieldMappingsPath)
}
