package extract

import (
	"time"

	"profrank-backend/internal/ranking"
	"profrank-backend/internal/scrapers/ratings"
)

type RemoteConfig struct {
	Endpoint          string            `json:"endpoint"`
	Headers           map[string]string `json:"headers"`
	TimeoutMs         int               `json:"timeout_ms"`
	RequestsPerSecond float64           `json:"requests_per_second"`
	Burst             int               `json:"burst"`
	CloudflareBypass  bool              `json:"cloudflare_bypass"`
}

func (c RemoteConfig) ClientOptions() ratings.ClientOptions {
	return ratings.ClientOptions{
		Endpoint:          c.Endpoint,
		Headers:           c.Headers,
		Timeout:           time.Duration(c.TimeoutMs) * time.Millisecond,
		RequestsPerSecond: c.RequestsPerSecond,
		Burst:             c.Burst,
		CloudflareBypass:  c.CloudflareBypass,
	}
}

type PagingConfig struct {
	SchoolPageSize          int `json:"school_page_size"`
	SchoolMaxPages          int `json:"school_max_pages"`
	TeacherPageSize         int `json:"teacher_page_size"`
	TeacherMaxPages         int `json:"teacher_max_pages"`
	TeacherFallbackMaxPages int `json:"teacher_fallback_max_pages"`
	ReviewPageSize          int `json:"review_page_size"`
	ReviewMaxPages          int `json:"review_max_pages"`
	PacingMs                int `json:"pacing_ms"`
}

// Config holds every tunable of a pipeline, any zero or negative number is
// replaced by its default in DefaultConfig. Weights that are not set keep
// the defaults of ranking.DefaultWeights.
type Config struct {
	Remote RemoteConfig `json:"remote"`
	Paging PagingConfig `json:"paging"`
	// Workers is the amount of teachers whose reviews are fetched at once.
	Workers    int `json:"workers"`
	DeadlineMs int `json:"deadline_ms"`

	ReviewTypeName  string `json:"review_type_name"`
	TeacherTypeName string `json:"teacher_type_name"`

	Weights ranking.WeightsConfig `json:"weights"`
}

func DefaultConfig() Config {
	return Config{
		Remote: RemoteConfig{
			Endpoint:          ratings.DefaultEndpoint,
			TimeoutMs:         30_000,
			RequestsPerSecond: 8,
			Burst:             2,
		},
		Paging: PagingConfig{
			SchoolPageSize:          20,
			SchoolMaxPages:          1,
			TeacherPageSize:         100,
			TeacherMaxPages:         40,
			TeacherFallbackMaxPages: 500,
			ReviewPageSize:          50,
			ReviewMaxPages:          40,
			PacingMs:                60,
		},
		Workers:         4,
		DeadlineMs:      120_000,
		ReviewTypeName:  ratings.DefaultReviewTypeName,
		TeacherTypeName: ratings.DefaultTeacherTypeName,
	}
}

func orDefault[T comparable](value, def T) T {
	var zero T
	if value == zero {
		return def
	}
	return value
}

// positiveOr replaces zero and negative values, none of the numeric
// settings has a meaning below 1.
func positiveOr[T int | float64](value, def T) T {
	if value <= 0 {
		return def
	}
	return value
}

func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	out := c

	out.Remote.Endpoint = orDefault(c.Remote.Endpoint, def.Remote.Endpoint)
	out.Remote.TimeoutMs = positiveOr(c.Remote.TimeoutMs, def.Remote.TimeoutMs)
	out.Remote.RequestsPerSecond = positiveOr(c.Remote.RequestsPerSecond, def.Remote.RequestsPerSecond)
	out.Remote.Burst = positiveOr(c.Remote.Burst, def.Remote.Burst)

	out.Paging.SchoolPageSize = positiveOr(c.Paging.SchoolPageSize, def.Paging.SchoolPageSize)
	out.Paging.SchoolMaxPages = positiveOr(c.Paging.SchoolMaxPages, def.Paging.SchoolMaxPages)
	out.Paging.TeacherPageSize = positiveOr(c.Paging.TeacherPageSize, def.Paging.TeacherPageSize)
	out.Paging.TeacherMaxPages = positiveOr(c.Paging.TeacherMaxPages, def.Paging.TeacherMaxPages)
	out.Paging.TeacherFallbackMaxPages = positiveOr(c.Paging.TeacherFallbackMaxPages, def.Paging.TeacherFallbackMaxPages)
	out.Paging.ReviewPageSize = positiveOr(c.Paging.ReviewPageSize, def.Paging.ReviewPageSize)
	out.Paging.ReviewMaxPages = positiveOr(c.Paging.ReviewMaxPages, def.Paging.ReviewMaxPages)
	out.Paging.PacingMs = positiveOr(c.Paging.PacingMs, def.Paging.PacingMs)

	out.Workers = positiveOr(c.Workers, def.Workers)
	out.DeadlineMs = positiveOr(c.DeadlineMs, def.DeadlineMs)
	out.ReviewTypeName = orDefault(c.ReviewTypeName, def.ReviewTypeName)
	out.TeacherTypeName = orDefault(c.TeacherTypeName, def.TeacherTypeName)
	return out
}

func (c Config) Pacing() time.Duration {
	return time.Duration(c.Paging.PacingMs) * time.Millisecond
}

func (c Config) Deadline() time.Duration {
	return time.Duration(c.DeadlineMs) * time.Millisecond
}
