package config

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/spf13/viper"
)

// AppConfig holds the configuration for the application.
// Tags used:
// - mapstructure: used by viper to unmarshal
// - default: default value to set if missing
// - required: if "true", error if missing
type AppConfig struct {
	// Environment specifies the runtime environment (e.g., development, production).
	Environment string `mapstructure:"APP_ENV" default:"development"`
	// LogLevel defines the logging verbosity (e.g., debug, info, error).
	LogLevel string `mapstructure:"LOG_LEVEL" default:"info"`
	// ServerPort is the port where the server will listen.
	ServerPort int `mapstructure:"SERVER_PORT" default:"8080"`

	// RedisURL is the connection string for the order store and throttle state,
	// e.g. redis://localhost:6379/0.
	RedisURL string `mapstructure:"REDIS_URL" required:"true"`

	// Tracking holds the location ingestion and persistence tuning knobs.
	Tracking TrackingConfig `mapstructure:",squash"`
}

// TrackingConfig holds the knobs for the live-tracking pipeline.
type TrackingConfig struct {
	// PersistIntervalMs is the minimum time between durable location writes per order.
	PersistIntervalMs int `mapstructure:"PERSIST_INTERVAL_MS" default:"5000"`
	// MinMoveDeltaDeg is the minimum movement, in degrees on either axis, for a
	// sample to be worth persisting once the interval has elapsed.
	MinMoveDeltaDeg float64 `mapstructure:"MIN_MOVE_DELTA_DEG" default:"0.00005"`
	// WriteTimeoutMs bounds each durable location write.
	WriteTimeoutMs int `mapstructure:"WRITE_TIMEOUT_MS" default:"2000"`
	// HistoryCap is the maximum number of status history entries kept per order.
	HistoryCap int `mapstructure:"HISTORY_CAP" default:"200"`
	// MaxSubscriptionsPerConn caps how many orders a single websocket
	// connection may subscribe to.
	MaxSubscriptionsPerConn int `mapstructure:"MAX_SUBSCRIPTIONS_PER_CONN" default:"20"`
	// MinSampleGapWarnMs logs a warning when a driver sends samples faster than
	// this gap. Diagnostic only; does not change behavior.
	MinSampleGapWarnMs int `mapstructure:"MIN_SAMPLE_GAP_WARN_MS" default:"500"`
	// ThrottleStateTTLMs is the TTL for per-order throttle state in redis.
	ThrottleStateTTLMs int `mapstructure:"THROTTLE_STATE_TTL_MS" default:"3600000"`
}

// Load loads configuration from .env files and environment variables.
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	v.AutomaticEnv()

	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config AppConfig

	if err := processTags(v, &config); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := validateRequired(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// processTags iterates over the struct fields and sets default values in Viper.
func processTags(v *viper.Viper, config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := processTags(v, val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		key := field.Tag.Get("mapstructure")
		defaultValue := field.Tag.Get("default")

		if key != "" {
			v.BindEnv(key)
		}

		if key != "" && defaultValue != "" {
			v.SetDefault(key, defaultValue)
		}
	}
	return nil
}

// validateRequired checks if fields marked as required have non-zero values.
func validateRequired(config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := validateRequired(val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		required := field.Tag.Get("required")
		if required == "true" {
			value := val.Field(i)
			if isZero(value) {
				key := field.Tag.Get("mapstructure")
				return fmt.Errorf("missing required configuration: %s", key)
			}
		}
	}
	return nil
}

// isZero checks if a reflect.Value is the zero value for its type.
func isZero(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return v.String() == ""
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}
