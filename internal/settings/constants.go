package settings

import "gorm.io/datatypes"

// DB config keys and defaults for settings.
const (
	// SiteNameKey is the DB config key for the storefront site name.
	SiteNameKey = "SITE_NAME"
	// DefaultSiteName is the fallback storefront site name.
	DefaultSiteName = "FovDark"

	// GeneralKey holds the general site configuration blob.
	GeneralKey = "general"
	// SEOKey holds the SEO configuration blob.
	SEOKey = "seo"
	// PaymentKey holds the payment configuration blob.
	PaymentKey = "payment"

	// LicenseRebindCooldownDaysKey controls the HWID rebind cooldown in days.
	LicenseRebindCooldownDaysKey = "LICENSE_REBIND_COOLDOWN_DAYS"
	// DefaultLicenseRebindCooldownDays is the fallback rebind cooldown.
	DefaultLicenseRebindCooldownDays = 30

	// RateLimitLoginKey controls login attempts per second per address.
	RateLimitLoginKey = "RATE_LIMIT_LOGIN"
	// DefaultRateLimitLogin is the fallback login rate limit (0 disables).
	DefaultRateLimitLogin = 5
	// RateLimitReviewKey controls review submissions per second per user.
	RateLimitReviewKey = "RATE_LIMIT_REVIEW"
	// DefaultRateLimitReview is the fallback review rate limit (0 disables).
	DefaultRateLimitReview = 1

	// RateLimitRedisEnabledKey toggles Redis-backed rate limiting.
	RateLimitRedisEnabledKey = "RATE_LIMIT_REDIS_ENABLED"
	// RateLimitRedisAddrKey defines the Redis address for rate limiting.
	RateLimitRedisAddrKey = "RATE_LIMIT_REDIS_ADDR"
	// RateLimitRedisPasswordKey defines the Redis password for rate limiting.
	RateLimitRedisPasswordKey = "RATE_LIMIT_REDIS_PASSWORD"
	// RateLimitRedisDBKey defines the Redis DB index for rate limiting.
	RateLimitRedisDBKey = "RATE_LIMIT_REDIS_DB"
	// RateLimitRedisPrefixKey defines the Redis key prefix for rate limiting.
	RateLimitRedisPrefixKey = "RATE_LIMIT_REDIS_PREFIX"
	// DefaultRateLimitRedisPrefix is the fallback Redis key prefix.
	DefaultRateLimitRedisPrefix = "fovdark:rl"
)

// PublicKeys lists the setting keys exposed on the front API.
var PublicKeys = []string{GeneralKey, SEOKey}

// DefaultValues returns the setting rows seeded on migration.
func DefaultValues() map[string]datatypes.JSON {
	return map[string]datatypes.JSON{
		SiteNameKey: datatypes.JSON(`"` + DefaultSiteName + `"`),
		GeneralKey:  datatypes.JSON(`{"maintenance_mode":false,"registrations_open":true}`),
		SEOKey:      datatypes.JSON(`{"title":"FovDark","description":""}`),
		PaymentKey:  datatypes.JSON(`{"provider":"","currency":"BRL"}`),
	}
}
