// Package config provides configuration management for entity-sync.
//
// It uses Viper to load settings from environment variables and an optional
// .env file. Defaults come from the `default` struct tags of each section.
//
// # Configuration Structure
//
//   - Server: port, API key, metrics path
//   - Log: level and format
//   - Database: driver and connection for the database source
//   - Storage: S3/MinIO credentials and bucket for the object source
//   - Sources: primary and secondary backends
//   - Sync: timeouts, version fields, conflict strategy
//   - Monitor: periodic integrity checks
//   - Schema: YAML schema location
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Sync.Timeout)
package config
