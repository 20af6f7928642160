// Package config loads application configuration from environment variables
// into tagged structs.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11: the
// default .env file is loaded once per process (missing file is fine), and
// each unique struct type is parsed at most once and cached, so every
// component can call Load for its own config without coordination.
//
//	type PGConfig struct {
//	    ConnectionString string `env:"PG_CONN_URL,required"`
//	}
//
//	var cfg PGConfig
//	if err := config.Load(&cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// Sentinel errors (ErrParsingConfig, ErrNilPointer) can be matched with
// errors.Is. ResetCache exists for tests that change the environment.
package config
