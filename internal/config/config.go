package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	cenv "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr       string
	VertexProjectID  string
	VertexLocation   string
	VertexModel      string
	VertexBaseURL    string
	VertexToken      string
	CredentialScopes []string
	RequestTimeout   time.Duration
	MaxBodyBytes     int64
	LogLevel         string
}

type envConfig struct {
	ListenAddr            string   `env:"LISTEN_ADDR" envDefault:":8080"`
	VertexProjectID       string   `env:"VERTEX_PROJECT_ID"`
	VertexLocation        string   `env:"VERTEX_LOCATION" envDefault:"us-central1"`
	VertexModel           string   `env:"VERTEX_MODEL" envDefault:"gemini-2.5-flash-lite"`
	VertexBaseURL         string   `env:"VERTEX_BASE_URL"`
	VertexToken           string   `env:"VERTEX_ACCESS_TOKEN"`
	CredentialScopes      []string `env:"CREDENTIAL_SCOPES" envSeparator:"," envDefault:"https://www.googleapis.com/auth/cloud-platform"`
	RequestTimeoutSeconds int      `env:"REQUEST_TIMEOUT_SECONDS" envDefault:"60"`
	MaxBodyBytes          int64    `env:"MAX_BODY_BYTES" envDefault:"1048576"`
	LogLevel              string   `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads the optional env file named by ENV_FILE (default ".env") and
// then parses the process environment. Variables already set in the
// environment win over the file.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	var raw envConfig
	if err := cenv.Parse(&raw); err != nil {
		return Config{}, err
	}

	cfg := Config{
		ListenAddr:       strings.TrimSpace(raw.ListenAddr),
		VertexProjectID:  strings.TrimSpace(raw.VertexProjectID),
		VertexLocation:   strings.TrimSpace(raw.VertexLocation),
		VertexModel:      strings.TrimSpace(raw.VertexModel),
		VertexBaseURL:    strings.TrimRight(strings.TrimSpace(raw.VertexBaseURL), "/"),
		VertexToken:      strings.TrimSpace(raw.VertexToken),
		CredentialScopes: normalizeScopes(raw.CredentialScopes),
		RequestTimeout:   time.Duration(raw.RequestTimeoutSeconds) * time.Second,
		MaxBodyBytes:     raw.MaxBodyBytes,
		LogLevel:         strings.ToLower(strings.TrimSpace(raw.LogLevel)),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("LISTEN_ADDR must not be empty")
	}
	if c.VertexProjectID == "" {
		return errors.New("VERTEX_PROJECT_ID must not be empty")
	}
	if c.VertexLocation == "" {
		return errors.New("VERTEX_LOCATION must not be empty")
	}
	if c.VertexModel == "" {
		return errors.New("VERTEX_MODEL must not be empty")
	}
	if len(c.CredentialScopes) == 0 {
		return errors.New("CREDENTIAL_SCOPES must not be empty")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT_SECONDS must be > 0")
	}
	if c.MaxBodyBytes <= 0 {
		return errors.New("MAX_BODY_BYTES must be > 0")
	}
	return nil
}

func loadEnvFile() error {
	path := strings.TrimSpace(os.Getenv("ENV_FILE"))
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func normalizeScopes(raw []string) []string {
	scopes := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, s)
		}
	}
	return scopes
}
