package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is prepended to every variable name, e.g. TALENTLENS_PORT.
const EnvPrefix = "TALENTLENS"

const (
	AuditBackendPostgres = "postgres"
	AuditBackendSQLite   = "sqlite"

	VectorBackendPgvector = "pgvector"
	VectorBackendQdrant   = "qdrant"
	VectorBackendMemory   = "memory"
)

type Config struct {
	Port      string `envconfig:"PORT" default:"8080"`
	Debug     bool   `envconfig:"DEBUG" default:"false"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`

	DatabaseURL string `envconfig:"DATABASE_URL"`

	AuditBackend           string        `envconfig:"AUDIT_BACKEND" default:"postgres"`
	SQLitePath             string        `envconfig:"SQLITE_PATH" default:"talentlens.db"`
	AuditRetentionDays     int           `envconfig:"AUDIT_RETENTION_DAYS" default:"0"`
	AuditRetentionInterval time.Duration `envconfig:"AUDIT_RETENTION_INTERVAL" default:"1h"`

	VectorBackend    string `envconfig:"VECTOR_BACKEND" default:"pgvector"`
	QdrantURL        string `envconfig:"QDRANT_URL" default:"http://localhost:6333"`
	QdrantAPIKey     string `envconfig:"QDRANT_API_KEY"`
	VectorCollection string `envconfig:"VECTOR_COLLECTION" default:"resumes"`
	VectorSimilarity string `envconfig:"VECTOR_SIMILARITY" default:"cosine"`
	VectorSize       int    `envconfig:"VECTOR_SIZE" default:"3072"`

	OpenAIAPIKey            string  `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL           string  `envconfig:"OPENAI_BASE_URL"`
	OpenAIModel             string  `envconfig:"OPENAI_MODEL" default:"gpt-4.1"`
	OpenAIEmbeddingModel    string  `envconfig:"OPENAI_EMBEDDING_MODEL" default:"text-embedding-3-large"`
	OpenAIRequestsPerSecond float64 `envconfig:"OPENAI_REQUESTS_PER_SECOND" default:"5"`
	OpenAIMaxRetries        int     `envconfig:"OPENAI_MAX_RETRIES" default:"3"`
	PromptsFile             string  `envconfig:"PROMPTS_FILE"`

	OCRLanguage  string `envconfig:"OCR_LANGUAGE" default:"eng"`
	PdfToTextBin string `envconfig:"PDFTOTEXT_BIN" default:"pdftotext"`
	PdfToPpmBin  string `envconfig:"PDFTOPPM_BIN" default:"pdftoppm"`
	TesseractBin string `envconfig:"TESSERACT_BIN" default:"tesseract"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"talentlens-resumes"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	ChunkSize       int   `envconfig:"CHUNK_SIZE" default:"800"`
	ChunkOverlap    int   `envconfig:"CHUNK_OVERLAP" default:"80"`
	WorkflowWorkers int   `envconfig:"WORKFLOW_WORKERS" default:"1"`
	MaxUploadBytes  int64 `envconfig:"MAX_UPLOAD_BYTES" default:"20971520"`

	APIKeys      []string `envconfig:"API_KEYS"`
	AllowOrigins []string `envconfig:"ALLOW_ORIGINS" default:"*"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	var errs []error

	switch c.AuditBackend {
	case AuditBackendPostgres, AuditBackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("AUDIT_BACKEND must be %q or %q, got %q", AuditBackendPostgres, AuditBackendSQLite, c.AuditBackend))
	}

	switch c.VectorBackend {
	case VectorBackendPgvector, VectorBackendQdrant, VectorBackendMemory:
	default:
		errs = append(errs, fmt.Errorf("VECTOR_BACKEND must be one of pgvector, qdrant, memory, got %q", c.VectorBackend))
	}

	if c.NeedsPostgres() && c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required for the postgres audit or pgvector backends"))
	}

	if c.ChunkSize <= 0 || c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		errs = append(errs, fmt.Errorf("CHUNK_OVERLAP (%d) must be in [0, CHUNK_SIZE=%d)", c.ChunkOverlap, c.ChunkSize))
	}

	if c.VectorSize <= 0 {
		errs = append(errs, errors.New("VECTOR_SIZE must be positive"))
	}

	return errors.Join(errs...)
}

// NeedsPostgres reports whether any selected backend stores data in Postgres.
func (c *Config) NeedsPostgres() bool {
	return c.AuditBackend == AuditBackendPostgres || c.VectorBackend == VectorBackendPgvector
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasAPIKeys() bool {
	return len(c.APIKeys) > 0
}

// AuditRetention is the maximum age of audit entries; zero disables pruning.
func (c *Config) AuditRetention() time.Duration {
	if c.AuditRetentionDays <= 0 {
		return 0
	}
	return time.Duration(c.AuditRetentionDays) * 24 * time.Hour
}
