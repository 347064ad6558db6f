package main

import (
	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	AccessKeyID     string `yaml:"access_key_id" toml:"access_key_id" env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" toml:"secret_access_key" env:"AWS_SECRET_ACCESS_KEY"`
	SessionToken    string `yaml:"session_token" toml:"session_token" env:"AWS_SESSION_TOKEN"`

	Region    string `yaml:"region" toml:"region" env:"AWS_REGION" env-default:"us-east-1"`
	Endpoint  string `yaml:"endpoint" toml:"endpoint" env:"AWSIGN_ENDPOINT" env-default:"s3.amazonaws.com"`
	Scheme    string `yaml:"scheme" toml:"scheme" env:"AWSIGN_SCHEME" env-default:"https"`
	Variant   string `yaml:"variant" toml:"variant" env:"AWSIGN_VARIANT" env-default:"v4"`
	PathStyle bool   `yaml:"path_style" toml:"path_style" env:"AWSIGN_PATH_STYLE" env-default:"false"`
}

// loadConfig reads path, if given, and then the environment. Environment
// variables win over the file.
func loadConfig(path string) (Config, error) {
	var cfg Config
	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return Config{}, err
		}
		return cfg, nil
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
