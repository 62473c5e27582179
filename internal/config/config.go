package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all environment-driven settings.
type Config struct {
	WatchDirs      []string
	RecursiveWatch bool
	EnableWatcher  bool
	WorkDir        string
	DBPath         string
	HTTPPort       string
	WorkerCount    int
	QueueSize      int
	EventTimeout   time.Duration

	IngestBaseURL string
	IngestTimeout time.Duration

	SheetName      string
	OutputWorkbook string
	OpticsPath     string

	Engine EngineConfig

	Environment string
}

// EngineConfig captures rating-engine connection settings.
type EngineConfig struct {
	Enabled bool
	BaseURL string
	Model   string
	APIKey  string
}

type fileConfig struct {
	WatchDirs      []string `yaml:"watch_dirs"`
	DBPath         string   `yaml:"db_path"`
	HTTPPort       string   `yaml:"http_port"`
	WorkDir        string   `yaml:"work_dir"`
	OutputWorkbook string   `yaml:"output_workbook"`
	OpticsPath     string   `yaml:"optics_path"`
	SheetName      string   `yaml:"sheet_name"`
	Engine         struct {
		Enabled *bool  `yaml:"enabled"`
		BaseURL string `yaml:"base_url"`
		Model   string `yaml:"model"`
	} `yaml:"engine"`
}

// Load reads configuration from environment and optional .env / YAML file.
func Load() Config {
	_ = godotenv.Load()

	fileCfg := loadFileConfig(getenv("CONFIG_PATH", filepath.Join("config", "config.yaml")))

	cfg := Config{
		WatchDirs:      splitDirs(firstNonEmpty(os.Getenv("WATCH_DIRECTORIES"), strings.Join(fileCfg.WatchDirs, ","), "./inbox")),
		RecursiveWatch: getenvBool("RECURSIVE_WATCH", true),
		EnableWatcher:  getenvBool("ENABLE_WATCHER", true),
		WorkDir:        firstNonEmpty(os.Getenv("WORK_DIR"), fileCfg.WorkDir, "./work"),
		HTTPPort:       firstNonEmpty(os.Getenv("PORT"), fileCfg.HTTPPort, "8000"),
		WorkerCount:    clampInt(getenvInt("WORKER_COUNT", 4), 1, 64),
		QueueSize:      clampInt(getenvInt("QUEUE_SIZE", 128), 8, 1024),
		EventTimeout:   time.Duration(clampInt(getenvInt("EVENT_TIMEOUT_SEC", 120), 10, 3600)) * time.Second,
		IngestBaseURL:  strings.TrimRight(getenv("API_BASE_URL", "http://localhost:8000"), "/"),
		IngestTimeout:  time.Duration(clampInt(getenvInt("INGEST_TIMEOUT_SEC", 30), 1, 300)) * time.Second,
		SheetName:      firstNonEmpty(os.Getenv("SHEET_NAME"), fileCfg.SheetName),
		OutputWorkbook: firstNonEmpty(os.Getenv("OUTPUT_WORKBOOK"), fileCfg.OutputWorkbook, "risk_analysis_results.xlsx"),
		OpticsPath:     firstNonEmpty(os.Getenv("OPTICS_CONFIG_PATH"), fileCfg.OpticsPath, filepath.Join("config", "optics.yaml")),
		Environment:    getenv("ENVIRONMENT", "local"),
	}

	if dbPath := os.Getenv("DB_PATH"); dbPath != "" {
		cfg.DBPath = dbPath
	} else if fileCfg.DBPath != "" {
		cfg.DBPath = fileCfg.DBPath
	} else {
		cfg.DBPath = filepath.Join(cfg.WorkDir, "risk.db")
	}

	cfg.Engine = EngineConfig{
		Enabled: getenvBool("ENGINE_ENABLED", boolOr(fileCfg.Engine.Enabled, true)),
		BaseURL: firstNonEmpty(os.Getenv("ENGINE_BASE_URL"), os.Getenv("OPENAI_BASE_URL"), fileCfg.Engine.BaseURL, "https://api.openai.com"),
		Model:   firstNonEmpty(os.Getenv("ENGINE_MODEL"), fileCfg.Engine.Model, "gpt-4o"),
		APIKey:  os.Getenv("OPENAI_API_KEY"),
	}

	log.Printf("config: watch=%v db=%s port=%s env=%s", cfg.WatchDirs, cfg.DBPath, cfg.HTTPPort, cfg.Environment)
	return cfg
}

func loadFileConfig(path string) fileConfig {
	var cfg fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Printf("config load failed (%s): %v (using defaults)", path, err)
		return fileConfig{}
	}
	return cfg
}

func splitDirs(raw string) []string {
	var dirs []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			dirs = append(dirs, part)
		}
	}
	return dirs
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Now returns utc time helper for deterministic timestamps.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
