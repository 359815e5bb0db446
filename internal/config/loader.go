// Package config loads and validates the configuration of the productdesk binaries.
package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Validator is implemented by every top-level configuration struct.
type Validator interface {
	Validate() error
}

const defaultEnvFile = ".env"

// Load builds a configuration of type T from (lowest to highest priority):
// built-in defaults, the YAML file at configFile, the .env file and the process environment.
// Environment keys are matched by envPrefix, e.g. with prefix "PRODUCTCTL_" the variable
// PRODUCTCTL_API_BASEURL sets the key "api.baseurl".
func Load[T any, PT interface {
	*T
	Validator
}](envPrefix, configFile string, defaults map[string]any) (*T, error) {
	k := koanf.New(".")

	// 0. Built-in defaults
	if len(defaults) > 0 {
		if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
			return nil, fmt.Errorf("error loading default config: %w", err)
		}
	}

	// 1. Load configuration from yaml file
	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			if !os.IsNotExist(err) {
				log.Printf("WARN: error loading YAML config file '%s': %v", configFile, err)
			}
		}
	}

	transform := keyTransformer(envPrefix)

	// 2. Load environment variables from .env file
	if envFileMap, err := godotenv.Read(defaultEnvFile); err == nil {
		envMap := make(map[string]any)
		for key, value := range envFileMap {
			if !hasPrefixFold(key, envPrefix) {
				continue
			}
			envMap[transform(key)] = value
		}
		if err := k.Load(confmap.Provider(envMap, "."), nil); err != nil {
			log.Printf("WARN: error loading .env config: %v", err)
		}
	} else if !os.IsNotExist(err) {
		log.Printf("WARN: error reading .env file: %v", err)
	}

	// 3. Load environment variables from the system, the highest priority
	if err := k.Load(env.Provider(envPrefix, ".", transform), nil); err != nil {
		log.Printf("WARN: error loading system env vars: %v", err)
	}

	var cfg T
	// 4. Unmarshal the configuration into the Config struct
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	// 5. Validate the configuration
	if err := PT(&cfg).Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// keyTransformer transforms environment variable keys to match the koanf key format.
func keyTransformer(envPrefix string) func(string) string {
	prefix := strings.ToLower(envPrefix)
	return func(key string) string {
		key = strings.ToLower(key)
		key = strings.TrimPrefix(key, prefix)
		return strings.ReplaceAll(key, "_", ".")
	}
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
