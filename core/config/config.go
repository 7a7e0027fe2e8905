package config

import (
	"reflect"
	"strings"
	"time"

	"entity-sync/core/database"
	"entity-sync/core/logger"
	"entity-sync/core/monitor"
	"entity-sync/core/schema"
	"entity-sync/core/server"
	"entity-sync/core/source"
	"entity-sync/core/storage"
	"entity-sync/core/sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations owned by each package.
type Config struct {
	// Server holds configuration for the HTTP server.
	Server server.Config `mapstructure:"server"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Database holds configuration for the database source.
	Database database.Config `mapstructure:"database"`
	// Storage holds configuration for the object storage source.
	Storage storage.Config `mapstructure:"storage"`
	// Sources selects the primary and secondary backends.
	Sources source.Config `mapstructure:"sources"`
	// Sync tunes the sync engine.
	Sync sync.Config `mapstructure:"sync"`
	// Monitor controls periodic integrity checks.
	Monitor monitor.Config `mapstructure:"monitor"`
	// Schema locates the entity schema file.
	Schema schema.Config `mapstructure:"schema"`
}

// LoadConfig loads configuration from environment variables and .env file.
func LoadConfig(path string) (*Config, error) {
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. SYNC_TIMEOUT -> sync.timeout)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct && field.Type != durationType {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, field.Tag.Get("default"))
	}
}
