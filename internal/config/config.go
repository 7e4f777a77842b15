package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/fusionn-dub/pkg/logger"
)

const envPrefix = "FUSIONN_DUB"

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Folders   FoldersConfig   `mapstructure:"folders"`
	Whisper   WhisperConfig   `mapstructure:"whisper"`
	Translate TranslateConfig `mapstructure:"translate"`
	TTS       TTSConfig       `mapstructure:"tts"`
	Media     MediaConfig     `mapstructure:"media"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Upload    UploadConfig    `mapstructure:"upload"`
	Apprise   AppriseConfig   `mapstructure:"apprise"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
	// PublicURL prefixes download references in completion events (empty = relative).
	PublicURL string `mapstructure:"public_url"`
}

// FoldersConfig holds the three working areas, each addressable by job ID.
type FoldersConfig struct {
	Uploads string `mapstructure:"uploads"` // Inbound uploads
	Temp    string `mapstructure:"temp"`    // Transient per-job artifacts
	Output  string `mapstructure:"output"`  // Finished dubbed videos
}

type WhisperConfig struct {
	// Provider: "local" (faster-whisper HTTP service) or "openai" (API)
	Provider string `mapstructure:"provider"`
	// URL of the local transcription service
	URL string `mapstructure:"url"`
	// Model: only used by the openai provider ("whisper-1")
	Model string `mapstructure:"model"`
	// APIKey: required if provider is "openai"
	APIKey string `mapstructure:"api_key"`
	// BaseURL overrides the OpenAI API endpoint (empty = api.openai.com/v1)
	BaseURL string `mapstructure:"base_url"`
	// Language: source language hint (optional, "auto" for auto-detect)
	Language string        `mapstructure:"language"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type TranslateConfig struct {
	// Provider: "ollama" or "openai"
	Provider string `mapstructure:"provider"`
	// URL: Ollama base URL
	URL string `mapstructure:"url"`
	// Model: e.g., "llama3.2:1b", "gpt-4o-mini"
	Model   string `mapstructure:"model"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"` // OpenAI-compatible endpoint override

	// Rate limiting
	RateLimitRPM int `mapstructure:"rate_limit_rpm"` // Requests per minute (0 = no limit)

	// Chunking: texts longer than ChunkThreshold are split into ChunkSize pieces
	ChunkThreshold int `mapstructure:"chunk_threshold"`
	ChunkSize      int `mapstructure:"chunk_size"`

	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	ChunkTimeout   time.Duration `mapstructure:"chunk_timeout"`
}

type TTSConfig struct {
	// Provider: "local" (edge-tts HTTP service) or "openai"
	Provider string `mapstructure:"provider"`
	URL      string `mapstructure:"url"`
	Model    string `mapstructure:"model"`
	Voice    string `mapstructure:"voice"`
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`

	Timeout time.Duration `mapstructure:"timeout"`

	// Artifact visibility polling after the engine responds
	PollAttempts int           `mapstructure:"poll_attempts"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type MediaConfig struct {
	FFmpeg  string `mapstructure:"ffmpeg"`
	FFprobe string `mapstructure:"ffprobe"`
	// DefaultDuration is used when probing the source fails.
	DefaultDuration time.Duration `mapstructure:"default_duration"`
}

type PipelineConfig struct {
	// Retention is how long intermediate artifacts live after a job starts.
	Retention           time.Duration `mapstructure:"retention"`
	TranslationDeadline time.Duration `mapstructure:"translation_deadline"`
}

type UploadConfig struct {
	MaxBytes int64 `mapstructure:"max_bytes"`
	// RateLimit uploads per IP within RateWindow (0 = no limit)
	RateLimit  int           `mapstructure:"rate_limit"`
	RateWindow time.Duration `mapstructure:"rate_window"`
}

type AppriseConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"` // Apprise API URL
	Key     string `mapstructure:"key"`      // Apprise config key
	Tag     string `mapstructure:"tag"`      // Tag to filter services
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)

	v.SetDefault("folders.uploads", "/data/uploads")
	v.SetDefault("folders.temp", "/data/temp")
	v.SetDefault("folders.output", "/data/output")

	v.SetDefault("whisper.provider", "local")
	v.SetDefault("whisper.url", "http://localhost:5001")
	v.SetDefault("whisper.model", "whisper-1")
	v.SetDefault("whisper.language", "auto")
	v.SetDefault("whisper.timeout", 5*time.Minute)

	v.SetDefault("translate.provider", "ollama")
	v.SetDefault("translate.url", "http://localhost:11434")
	v.SetDefault("translate.model", "llama3.2:1b")
	v.SetDefault("translate.chunk_threshold", 1500)
	v.SetDefault("translate.chunk_size", 1000)
	v.SetDefault("translate.request_timeout", 3*time.Minute)
	v.SetDefault("translate.chunk_timeout", 90*time.Second)

	v.SetDefault("tts.provider", "local")
	v.SetDefault("tts.url", "http://localhost:5002")
	v.SetDefault("tts.model", "tts-1")
	v.SetDefault("tts.voice", "nova")
	v.SetDefault("tts.timeout", time.Minute)
	v.SetDefault("tts.poll_attempts", 30)
	v.SetDefault("tts.poll_interval", 100*time.Millisecond)

	v.SetDefault("media.ffmpeg", "ffmpeg")
	v.SetDefault("media.ffprobe", "ffprobe")
	v.SetDefault("media.default_duration", 300*time.Second)

	v.SetDefault("pipeline.retention", time.Hour)
	v.SetDefault("pipeline.translation_deadline", 10*time.Minute)

	v.SetDefault("upload.max_bytes", int64(2)<<30)
	v.SetDefault("upload.rate_limit", 10)
	v.SetDefault("upload.rate_window", 15*time.Minute)
}

// ChangeCallback is called when config changes.
type ChangeCallback func(old, new *Config)

// Manager handles config loading and hot-reload.
type Manager struct {
	mu        sync.RWMutex
	v         *viper.Viper
	cfg       *Config
	callbacks []ChangeCallback
	stop      chan struct{}
	stopOnce  sync.Once

	path        string
	lastModTime time.Time
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func read(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewManager creates a config manager with hot-reload support via polling.
// A missing file is not an error: defaults and environment apply.
func NewManager(path string) (*Manager, error) {
	if path != "" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			logger.Warnf("⚠️ Config file %s not found, using defaults + environment", path)
			path = ""
		}
	}

	v := newViper(path)
	cfg, err := read(v, path)
	if err != nil {
		return nil, err
	}

	var lastMod time.Time
	if path != "" {
		if stat, err := os.Stat(path); err == nil {
			lastMod = stat.ModTime()
		}
	}

	m := &Manager{
		v:           v,
		cfg:         cfg,
		stop:        make(chan struct{}),
		path:        path,
		lastModTime: lastMod,
	}

	if path != "" {
		go m.pollForChanges(10 * time.Second)
		logger.Infof("📋 Config loaded (polling every 10s for changes)")
	}

	return m, nil
}

func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Manager) OnChange(cb ChangeCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, cb)
}

func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Manager) pollForChanges(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.checkForChanges()
		}
	}
}

func (m *Manager) checkForChanges() {
	stat, err := os.Stat(m.path)
	if err != nil {
		return
	}

	m.mu.RLock()
	lastMod := m.lastModTime
	m.mu.RUnlock()

	if !stat.ModTime().After(lastMod) {
		return
	}

	logger.Infof("🔄 Config file changed, reloading...")

	m.mu.Lock()
	m.lastModTime = stat.ModTime()
	m.mu.Unlock()

	m.reload()
}

func (m *Manager) reload() {
	newCfg, err := read(m.v, m.path)
	if err != nil {
		logger.Errorf("❌ Failed to reload config: %v", err)
		return
	}

	m.mu.Lock()
	oldCfg := m.cfg
	m.cfg = newCfg
	callbacks := m.callbacks
	m.mu.Unlock()

	logChanges(oldCfg, newCfg, "")

	for _, cb := range callbacks {
		cb(oldCfg, newCfg)
	}
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Whisper.Provider) {
	case "local", "openai":
	default:
		return fmt.Errorf("whisper.provider: unsupported %q", c.Whisper.Provider)
	}
	switch strings.ToLower(c.Translate.Provider) {
	case "ollama", "openai":
	default:
		return fmt.Errorf("translate.provider: unsupported %q", c.Translate.Provider)
	}
	switch strings.ToLower(c.TTS.Provider) {
	case "local", "openai":
	default:
		return fmt.Errorf("tts.provider: unsupported %q", c.TTS.Provider)
	}
	if c.Translate.ChunkSize <= 0 || c.Translate.ChunkThreshold < c.Translate.ChunkSize {
		return fmt.Errorf("translate: chunk_threshold (%d) must be >= chunk_size (%d) > 0",
			c.Translate.ChunkThreshold, c.Translate.ChunkSize)
	}
	if c.TTS.PollAttempts <= 0 {
		return fmt.Errorf("tts.poll_attempts must be positive")
	}
	if c.Pipeline.TranslationDeadline <= 0 {
		return fmt.Errorf("pipeline.translation_deadline must be positive")
	}
	return nil
}

func logChanges(old, cur any, prefix string) {
	oldVal := reflect.ValueOf(old)
	newVal := reflect.ValueOf(cur)

	if oldVal.Kind() == reflect.Ptr {
		oldVal = oldVal.Elem()
	}
	if newVal.Kind() == reflect.Ptr {
		newVal = newVal.Elem()
	}

	if oldVal.Kind() != reflect.Struct {
		return
	}

	t := oldVal.Type()
	for i := range t.NumField() {
		field := t.Field(i)
		oldField := oldVal.Field(i)
		newField := newVal.Field(i)

		fieldName := field.Name
		if prefix != "" {
			fieldName = prefix + "." + fieldName
		}

		if oldField.Kind() == reflect.Struct {
			logChanges(oldField.Interface(), newField.Interface(), fieldName)
			continue
		}

		if !reflect.DeepEqual(oldField.Interface(), newField.Interface()) {
			if strings.HasSuffix(fieldName, "APIKey") {
				logger.Infof("  📝 %s: (changed)", fieldName)
				continue
			}
			logger.Infof("  📝 %s: %v → %v", fieldName, oldField.Interface(), newField.Interface())
		}
	}
}

// Load is a convenience function for one-time loading.
func Load(path string) (*Config, error) {
	return read(newViper(path), path)
}
