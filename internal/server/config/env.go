package config

import (
	"strconv"
	"strings"
)

// parseEnv overlays the deployment environment. APP_ENV (or NODE_ENV for
// compatibility with existing deployments) equal to "production" turns on
// production mode.
func parseEnv(config *Config, lookup func(string) (string, bool)) {
	if lookup == nil {
		return
	}

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("HTTP_ADDR", &config.HTTPAddr)
	str("LOG_LEVEL", &config.LogLevel)
	str("ACCESS_TOKEN_SECRET", &config.AccessTokenSecret)
	str("REFRESH_TOKEN_SECRET", &config.RefreshTokenSecret)
	str("DATABASE_DSN", &config.DatabaseDSN)
	str("REDIS_ADDR", &config.RedisAddr)
	str("REDIS_PASSWORD", &config.RedisPassword)
	str("IDENTITY_BACKEND", &config.IdentityBackend)
	str("REFRESH_BACKEND", &config.RefreshBackend)
	str("ISSUE_POLICY", &config.IssuePolicy)

	if v, ok := lookup("REDIS_DB"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			config.RedisDB = n
		}
	}
	if v, ok := lookup("CORS_ORIGINS"); ok && v != "" {
		config.CORSOrigins = splitList(v)
	}

	for _, key := range []string{"NODE_ENV", "APP_ENV"} {
		if v, ok := lookup(key); ok && v != "" {
			config.Production = strings.EqualFold(v, "production")
		}
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
