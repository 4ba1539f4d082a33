package config

import (
	"github.com/spf13/pflag"
)

// RegisterFlags declares the server flags on fs. Defaults shown in help
// come from LoadDefaults; only flags the user actually sets override the
// file and environment layers.
//
// Supported flags:
//
//	-c, --config string          JSON config file
//	-a, --addr string            HTTP bind address
//	    --production             production mode (Secure cookies)
//	    --log-level string       debug|info|warn|error
//	    --access-secret string   access token HMAC key
//	    --refresh-secret string  refresh token HMAC key
//	    --access-ttl duration    access token lifetime
//	    --refresh-ttl duration   refresh token lifetime
//	    --refresh-retention      stored refresh record lifetime
//	    --sweep-interval         retention sweep period
//	    --identity-backend       postgres|memory
//	    --refresh-backend        postgres|redis|memory
//	-d, --database-dsn string    PostgreSQL DSN (pgx)
//	    --redis-addr string      Redis address
//	    --redis-db int           Redis database number
//	    --issue-policy string    fail-open|fail-closed
//	    --cors-origins strings   allowed CORS origins
func RegisterFlags(fs *pflag.FlagSet) {
	d := &Config{}
	d.LoadDefaults()

	fs.StringP("config", "c", "", "path to JSON config file")
	fs.StringP("addr", "a", d.HTTPAddr, "address and port to run server")
	fs.Bool("production", d.Production, "production mode: Secure cookies, explicit secrets")
	fs.String("log-level", d.LogLevel, "log level (debug, info, warn, error)")
	fs.String("access-secret", "", "access token signing secret")
	fs.String("refresh-secret", "", "refresh token signing secret")
	fs.Duration("access-ttl", d.AccessTokenTTL, "access token lifetime")
	fs.Duration("refresh-ttl", d.RefreshTokenTTL, "refresh token lifetime")
	fs.Duration("refresh-retention", d.RefreshRetention, "stored refresh record lifetime")
	fs.Duration("sweep-interval", d.SweepInterval, "refresh retention sweep interval")
	fs.String("identity-backend", d.IdentityBackend, "identity store backend (postgres, memory)")
	fs.String("refresh-backend", d.RefreshBackend, "refresh store backend (postgres, redis, memory)")
	fs.StringP("database-dsn", "d", d.DatabaseDSN, "database DSN")
	fs.String("redis-addr", d.RedisAddr, "redis address")
	fs.Int("redis-db", d.RedisDB, "redis database number")
	fs.String("issue-policy", d.IssuePolicy, "refresh store failure policy at login (fail-open, fail-closed)")
	fs.StringSlice("cors-origins", d.CORSOrigins, "allowed CORS origins")
}

// applyFlags copies every flag the user set on fs into config.
func applyFlags(config *Config, fs *pflag.FlagSet) error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	fs.Visit(func(f *pflag.Flag) {
		var err error
		switch f.Name {
		case "addr":
			config.HTTPAddr, err = fs.GetString(f.Name)
		case "production":
			config.Production, err = fs.GetBool(f.Name)
		case "log-level":
			config.LogLevel, err = fs.GetString(f.Name)
		case "access-secret":
			config.AccessTokenSecret, err = fs.GetString(f.Name)
		case "refresh-secret":
			config.RefreshTokenSecret, err = fs.GetString(f.Name)
		case "access-ttl":
			config.AccessTokenTTL, err = fs.GetDuration(f.Name)
		case "refresh-ttl":
			config.RefreshTokenTTL, err = fs.GetDuration(f.Name)
		case "refresh-retention":
			config.RefreshRetention, err = fs.GetDuration(f.Name)
		case "sweep-interval":
			config.SweepInterval, err = fs.GetDuration(f.Name)
		case "identity-backend":
			config.IdentityBackend, err = fs.GetString(f.Name)
		case "refresh-backend":
			config.RefreshBackend, err = fs.GetString(f.Name)
		case "database-dsn":
			config.DatabaseDSN, err = fs.GetString(f.Name)
		case "redis-addr":
			config.RedisAddr, err = fs.GetString(f.Name)
		case "redis-db":
			config.RedisDB, err = fs.GetInt(f.Name)
		case "issue-policy":
			config.IssuePolicy, err = fs.GetString(f.Name)
		case "cors-origins":
			config.CORSOrigins, err = fs.GetStringSlice(f.Name)
		}
		keep(err)
	})
	return firstErr
}
