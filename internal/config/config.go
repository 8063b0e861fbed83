package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

type Config struct {
	Port           string
	ModelPath      string
	MetadataPath   string
	DetectorPath   string
	ORTLibraryPath string
	LogLevel       string
	LogDir         string
	AppEnv         string
}

// Load reads an optional .env file and then the process environment.
// Values already present in the environment win over the file.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(errors.Cause(err)) {
			return nil, errors.Wrapf(err, "failed to load %s", f)
		}
	}

	root := projectRoot()

	return &Config{
		Port:           getEnv("PORT", "8080"),
		ModelPath:      getEnv("MODEL_PATH", filepath.Join(root, "models", "model_embedded.onnx")),
		MetadataPath:   getEnv("METADATA_PATH", filepath.Join(root, "models", "model_metadata.json")),
		DetectorPath:   os.Getenv("DETECTOR_PATH"),
		ORTLibraryPath: os.Getenv("ORT_LIBRARY_PATH"),
		LogLevel:       getEnv("LOG_LEVEL", "debug"),
		LogDir:         getEnv("LOG_DIR", filepath.Join(".", "storage", "logs")),
		AppEnv:         os.Getenv("APP_ENV"),
	}, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// projectRoot resolves the repository root when a binary is started from
// its cmd/<name> directory.
func projectRoot() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	if filepath.Base(filepath.Dir(wd)) == "cmd" {
		return filepath.Join(wd, "..", "..")
	}
	return wd
}
