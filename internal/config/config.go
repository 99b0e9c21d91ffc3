package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/AnishMulay/sandfile/internal/entry_table"
)

const EnvPrefix = "SANDFILE"

const (
	StorageLocal  = "local"
	StorageMemory = "memory"
	StorageMinio  = "minio"

	TransportGRPC = "grpc"
	TransportHTTP = "http"

	LogOutputFile    = "file"
	LogOutputConsole = "console"
)

type NodeConfig struct {
	ID      string `yaml:"id" validate:"required"`
	DataDir string `yaml:"data_dir" split_words:"true" validate:"required"`
}

type TableConfig struct {
	MaxFiles      int `yaml:"max_files" split_words:"true" validate:"gt=0"`
	MaxNameLength int `yaml:"max_name_length" split_words:"true" validate:"gt=0,lte=4096"`
}

type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key" split_words:"true"`
	SecretKey string `yaml:"secret_key" split_words:"true"`
	UseSSL    bool   `yaml:"use_ssl" split_words:"true"`
	Prefix    string `yaml:"prefix"`
}

type StorageConfig struct {
	Type    string      `yaml:"type" validate:"oneof=local memory minio"`
	BaseDir string      `yaml:"base_dir" split_words:"true"`
	Minio   MinioConfig `yaml:"minio"`
}

type TransportConfig struct {
	Type   string `yaml:"type" validate:"oneof=grpc http"`
	Listen string `yaml:"listen" validate:"required"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=DEBUG INFO WARN WARNING ERROR debug info warn warning error"`
	Output string `yaml:"output" validate:"oneof=file console"`
	Dir    string `yaml:"dir"`
	Color  bool   `yaml:"color"`
}

type ClientConfig struct {
	Server    string `yaml:"server" validate:"required"`
	Transport string `yaml:"transport" validate:"oneof=grpc http"`
}

type Config struct {
	Node      NodeConfig      `yaml:"node"`
	Table     TableConfig     `yaml:"table"`
	Storage   StorageConfig   `yaml:"storage"`
	Transport TransportConfig `yaml:"transport"`
	Log       LogConfig       `yaml:"log"`
	Client    ClientConfig    `yaml:"client"`
}

func Default() *Config {
	return &Config{
		Node: NodeConfig{
			ID:      "sandfile-" + uuid.NewString()[:8],
			DataDir: "./run/sandfile",
		},
		Table: TableConfig{
			MaxFiles:      entry_table.DefaultMaxFiles,
			MaxNameLength: entry_table.DefaultMaxNameLength,
		},
		Storage: StorageConfig{
			Type: StorageLocal,
		},
		Transport: TransportConfig{
			Type:   TransportGRPC,
			Listen: "localhost:8080",
		},
		Log: LogConfig{
			Level:  "INFO",
			Output: LogOutputFile,
		},
		Client: ClientConfig{
			Server:    "localhost:8080",
			Transport: TransportGRPC,
		},
	}
}

// Load reads path, writing the defaults there first if it does not exist,
// then applies environment overrides and validates the result. Variables are
// named SANDFILE_<SECTION>_<FIELD>, e.g. SANDFILE_TABLE_MAX_FILES.
func Load(path string) (*Config, error) {
	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	cfg.FillDerived()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()

		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal default config: %w", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start from defaults so sections omitted from the file keep sane values.
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// FillDerived places directories left empty under Node.DataDir.
func (c *Config) FillDerived() {
	if c.Storage.BaseDir == "" {
		c.Storage.BaseDir = filepath.Join(c.Node.DataDir, "files")
	}
	if c.Log.Dir == "" {
		c.Log.Dir = filepath.Join(c.Node.DataDir, "logs")
	}
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.Storage.Type == StorageMinio {
		if c.Storage.Minio.Endpoint == "" || c.Storage.Minio.Bucket == "" {
			return errors.New("invalid config: minio storage needs endpoint and bucket")
		}
	}
	return nil
}
