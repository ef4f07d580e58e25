package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const AppName = "aletheia"

const DEFAULT_LOG_LEVEL = "info"
const DEFAULT_PARALLELISM = 4

var validate = validator.New()

// RemoteConfig points at an S3-compatible bucket mirroring the save dir.
type RemoteConfig struct {
	BucketName      string `yaml:"bucket_name" validate:"required"`
	Region          string `yaml:"region,omitempty"`
	Endpoint        string `yaml:"endpoint,omitempty"`
	Scheme          string `yaml:"scheme,omitempty" validate:"omitempty,oneof=http https"`
	ObjectPrefix    string `yaml:"object_prefix,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	AccessKeySecret string `yaml:"access_key_secret,omitempty"`
}

type Config struct {
	SaveDir        string        `yaml:"save_dir" validate:"required"`
	SteamAccountID string        `yaml:"steam_account_id,omitempty" validate:"omitempty,numeric"`
	GamesFile      string        `yaml:"games_file,omitempty"`
	LogLevel       string        `yaml:"log_level,omitempty" validate:"omitempty,oneof=trace debug info warn warning error fatal panic"`
	Parallelism    int           `yaml:"parallelism,omitempty" validate:"min=1,max=32"`
	MetricsFile    string        `yaml:"metrics_file,omitempty"`
	Remote         *RemoteConfig `yaml:"remote,omitempty"`
}

func DefaultConfig() *Config {
	cfg := &Config{
		LogLevel:    DEFAULT_LOG_LEVEL,
		Parallelism: DEFAULT_PARALLELISM,
	}

	if dir, err := userDataDir(); err == nil {
		cfg.SaveDir = filepath.Join(dir, AppName, "saves")
	}
	if dir, err := os.UserConfigDir(); err == nil {
		cfg.GamesFile = filepath.Join(dir, AppName, "games.yaml")
	}

	return cfg
}

// DefaultConfigPath is where the CLI looks for its config file.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(dir, AppName, "config.yaml")
}

// LoadConfig reads the config at path over the defaults. A missing file is not
// an error and yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "decode config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}

	return cfg, nil
}

// SaveConfig writes cfg to path, creating parent directories.
func SaveConfig(path string, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "encode config")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "create config dir")
	}
	return errors.Wrap(os.WriteFile(path, data, 0600), "write config")
}

func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	for _, e := range validationErrs {
		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", e.Namespace())
		case "min":
			return fmt.Errorf("%s: must be at least %s", e.Namespace(), e.Param())
		case "max":
			return fmt.Errorf("%s: must not exceed %s", e.Namespace(), e.Param())
		case "oneof":
			return fmt.Errorf("%s: must be one of %s", e.Namespace(), e.Param())
		default:
			return fmt.Errorf("%s: validation failed (%s)", e.Namespace(), e.Tag())
		}
	}
	return err
}

func userDataDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if dir := os.Getenv("APPDATA"); dir != "" {
			return dir, nil
		}
		return "", errors.New("APPDATA is not set")
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support"), nil
	default:
		if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
			return dir, nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share"), nil
	}
}
