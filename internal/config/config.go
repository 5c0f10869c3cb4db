package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env          string `mapstructure:"ENV"`
	Port         string `mapstructure:"PORT"`
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	ResponderKey string `mapstructure:"RESPONDER_KEY"`
	CORSAllowed  string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	LogLevel     string `mapstructure:"LOG_LEVEL"`

	AIBaseURL      string        `mapstructure:"AI_BASE_URL"`
	AIKey          string        `mapstructure:"AI_API_KEY"`
	AIModel        string        `mapstructure:"AI_MODEL"`
	TriageTimeout  time.Duration `mapstructure:"TRIAGE_TIMEOUT"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`

	NominatimURL       string `mapstructure:"NOMINATIM_URL"`
	NominatimUserAgent string `mapstructure:"NOMINATIM_USER_AGENT"`

	// Regional anchor used to widen vague location queries, and the
	// centroid reported when nothing resolves at all.
	RegionCity    string  `mapstructure:"REGION_CITY"`
	RegionCountry string  `mapstructure:"REGION_COUNTRY"`
	FallbackLat   float64 `mapstructure:"FALLBACK_LAT"`
	FallbackLng   float64 `mapstructure:"FALLBACK_LNG"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("TRIAGE_TIMEOUT", "45s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("AI_MODEL", "google/gemini-3-flash-preview")
	v.SetDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org")
	v.SetDefault("NOMINATIM_USER_AGENT", "rescue-ai-web")
	v.SetDefault("REGION_CITY", "Nagpur")
	v.SetDefault("REGION_COUNTRY", "India")
	v.SetDefault("FALLBACK_LAT", 21.1458)
	v.SetDefault("FALLBACK_LNG", 79.0882)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
