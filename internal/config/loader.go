package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// envPrefix is the prefix for dbreset's own environment variables,
// e.g. DBRESET_ENGINE or DBRESET_SCHEMA_FILE.
const envPrefix = "DBRESET_"

// legacyEnv maps the LOCAL_DB_* variables used by the existing .env files.
var legacyEnv = map[string]string{
	"LOCAL_DB_HOST":     "host",
	"LOCAL_DB_PORT":     "port",
	"LOCAL_DB_NAME":     "database",
	"LOCAL_DB_USER":     "user",
	"LOCAL_DB_PASSWORD": "password",
}

// flagKeys maps CLI flag names to config keys. Flags not listed here
// (--config, --yes, ...) are not configuration.
var flagKeys = map[string]string{
	"engine":      "engine",
	"host":        "host",
	"port":        "port",
	"database":    "database",
	"user":        "user",
	"password":    "password",
	"pg-schema":   "pg_schema",
	"schema-file": "schema_file",
	"timeout":     "timeout",
	"verbose":     "verbose",
}

// envKey translates an environment variable name into a config key.
// It returns "" for variables that are not ours.
func envKey(name string) string {
	if key, ok := legacyEnv[name]; ok {
		return key
	}
	if strings.HasPrefix(name, envPrefix) {
		return strings.ToLower(strings.TrimPrefix(name, envPrefix))
	}
	return ""
}

// Load resolves configuration.
// Precedence (highest to lowest): flags > env vars > .env file > config file > defaults
//
// cfgFile and envFile may be empty, in which case dbreset.yaml and .env in
// the working directory are used when present. An explicitly named file that
// does not exist is an error.
func Load(cfgFile, envFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"engine":      DefaultEngine,
		"schema_file": DefaultSchemaFile,
		"verbose":     false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. YAML config file
	path, err := resolveFile(cfgFile, DefaultConfigFile)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// 3. .env file, same variable names as the process environment
	path, err = resolveFile(envFile, DefaultEnvFile)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := loadDotenv(k, path); err != nil {
			return nil, err
		}
	}

	// 4. Environment variables
	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 5. Flags, only those explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, &Error{Err: fmt.Errorf("unable to decode config: %w", err)}
	}
	// LOCAL_DB_PASSWORD= is a passwordless account, not a missing setting.
	cfg.PasswordSet = k.Exists("password")
	cfg.ApplyDefaults()

	return &cfg, nil
}

// loadDotenv reads a .env file and merges the variables we recognise.
func loadDotenv(k *koanf.Koanf, path string) error {
	dk := koanf.New(".")
	if err := dk.Load(file.Provider(path), dotenv.Parser()); err != nil {
		return fmt.Errorf("error reading env file %s: %w", path, err)
	}

	values := make(map[string]interface{})
	for name, val := range dk.All() {
		if key := envKey(name); key != "" {
			values[key] = val
		}
	}
	if err := k.Load(confmap.Provider(values, "."), nil); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// resolveFile returns explicit if set (it must exist), otherwise fallback if
// it exists in the working directory, otherwise "".
func resolveFile(explicit, fallback string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", &Error{Err: fmt.Errorf("file not found at %s", explicit)}
		}
		return explicit, nil
	}
	if _, err := os.Stat(fallback); err == nil {
		return fallback, nil
	}
	return "", nil
}
