package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL  string
	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string

	AIAPIKey       string
	EmbedModel     string
	EmbedDim       int
	EmbedBatchSize int
	GenModel       string

	SplitStrategy      string // "sentence" or "semantic"
	ChunkSize          int
	ChunkOverlap       int
	SemanticBufferSize int
	SemanticPercentile float64

	OCRDpi  int
	DataDir string
	TopK    int

	IngestWorkers int

	Port string
}

// LoadConfig loads the environment variables and returns config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("BUCKET_NAME", "docinsight-docs"),

		AIAPIKey:       getEnv("GEMINI_API_KEY", ""),
		EmbedModel:     getEnv("EMBED_MODEL", "text-embedding-004"),
		EmbedDim:       getEnvInt("EMBED_DIM", 768),
		EmbedBatchSize: getEnvInt("EMBED_BATCH_SIZE", 16),
		GenModel:       getEnv("GEN_MODEL", "gemini-1.5-flash"),

		SplitStrategy:      getEnv("SPLIT_STRATEGY", "sentence"),
		ChunkSize:          getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap:       getEnvInt("CHUNK_OVERLAP", 100),
		SemanticBufferSize: getEnvInt("SEMANTIC_BUFFER_SIZE", 1),
		SemanticPercentile: getEnvFloat("SEMANTIC_PERCENTILE", 95),

		OCRDpi:  getEnvInt("OCR_DPI", 300),
		DataDir: getEnv("DATA_DIR", "./data"),
		TopK:    getEnvInt("TOP_K", 5),

		IngestWorkers: getEnvInt("INGEST_WORKERS", 2),

		Port: getEnv("PORT", "8080"),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("WARN: %s=%q not a number, using default %g", key, v, def)
		return def
	}
	return f
}
