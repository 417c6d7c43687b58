package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type R2 struct {
	AccountID  string `envconfig:"R2_ACCOUNT_ID"`
	AccessKey  string `envconfig:"R2_ACCESS_KEY"`
	SecretKey  string `envconfig:"R2_SECRET_KEY"`
	BucketName string `envconfig:"R2_BUCKET_NAME"`
	PublicURL  string `envconfig:"R2_PUBLIC_URL"`
}

type Google struct {
	ClientID     string `envconfig:"GOOGLE_CLIENT_ID"`
	ClientSecret string `envconfig:"GOOGLE_CLIENT_SECRET"`
	RedirectURI  string `envconfig:"GOOGLE_REDIRECT_URI" default:"http://localhost:3000/login/callback"`
}

type Linkedin struct {
	ClientID     string        `envconfig:"LINKEDIN_CLIENT_ID"`
	ClientSecret string        `envconfig:"LINKEDIN_CLIENT_SECRET"`
	RedirectURI  string        `envconfig:"LINKEDIN_REDIRECT_URI" default:"http://localhost:3000/auth/linkedin/callback"`
	APIBaseURL   string        `envconfig:"LINKEDIN_API_BASE_URL" default:"https://api.linkedin.com"`
	HTTPTimeout  time.Duration `envconfig:"LINKEDIN_HTTP_TIMEOUT" default:"30s"`
}

// Scheduling holds the knobs of the publication pipeline.
type Scheduling struct {
	Timezone          string        `envconfig:"SCHEDULE_TIMEZONE" default:"America/New_York"`
	Weekday           string        `envconfig:"SCHEDULE_WEEKDAY" default:"Monday"`
	TimeOfDay         string        `envconfig:"SCHEDULE_TIME_OF_DAY" default:"08:55"`
	BatchSize         int           `envconfig:"SCHEDULE_BATCH_SIZE" default:"10"`
	Lease             time.Duration `envconfig:"SCHEDULE_LEASE" default:"10m"`
	FreeScheduleLimit int           `envconfig:"FREE_SCHEDULE_LIMIT" default:"10"`
	BulkQuotaEnforced bool          `envconfig:"BULK_QUOTA_ENFORCED" default:"false"`
	CronSecret        string        `envconfig:"CRON_SECRET"`
	InternalCron      bool          `envconfig:"INTERNAL_CRON_ENABLED" default:"false"`
	InternalCronSpec  string        `envconfig:"INTERNAL_CRON_SPEC" default:"@hourly"`
	TokenRefreshSpec  string        `envconfig:"TOKEN_REFRESH_SPEC" default:"@every 10m"`
}

type Config struct {
	AppEnv      string   `envconfig:"APP_ENV" default:"dev"`
	Port        string   `envconfig:"PORT" default:"3000"`
	PostgresURI string   `envconfig:"POSTGRES_URI"`
	RedisURI    string   `envconfig:"REDIS_URI" default:"localhost:6379"`
	FrontendURL string   `envconfig:"FRONTEND_URL" default:"http://localhost:5173"`
	SecretKey   string   `envconfig:"SECRET_KEY"`
	CookieName  string   `envconfig:"COOKIE_NAME" default:"teampost_session"`
	AdminEmails []string `envconfig:"ADMIN_EMAILS"`

	Google     Google     `envconfig:""`
	Linkedin   Linkedin   `envconfig:""`
	R2         R2         `envconfig:""`
	Scheduling Scheduling `envconfig:""`
}

func LoadConfig() *Config {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	return &cfg
}
