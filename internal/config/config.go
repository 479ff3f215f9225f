package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/zhouzirui/profile-assistant/backend/internal/logger"
	"github.com/zhouzirui/profile-assistant/backend/internal/model/chat"
	"github.com/zhouzirui/profile-assistant/backend/internal/storage"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Session SessionConfig `mapstructure:"session"`
	Storage StorageConfig `mapstructure:"storage"`
	Speech  SpeechConfig  `mapstructure:"speech"`
	Profile ProfileConfig `mapstructure:"profile"`
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Addr string `mapstructure:"-"`
}

// LogConfig 日志相关配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// SessionConfig 会话默认值与回复节奏。
type SessionConfig struct {
	BaseDelay          time.Duration `mapstructure:"base_delay"`
	SpeedFactor        time.Duration `mapstructure:"speed_factor"`
	DefaultPersonality string        `mapstructure:"default_personality"`
	DefaultSpeed       int           `mapstructure:"default_speed"`
	VoiceEnabled       bool          `mapstructure:"voice_enabled"`
	EmojiMode          bool          `mapstructure:"emoji_mode"`
	Language           string        `mapstructure:"language"`
}

// StorageConfig 持久化存储配置。
type StorageConfig struct {
	Driver        string `mapstructure:"driver"`
	Path          string `mapstructure:"path"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	KeyPrefix     string `mapstructure:"key_prefix"`
}

// SpeechConfig 本地语音合成配置，仅命令行工具使用。
type SpeechConfig struct {
	TTSCommand string `mapstructure:"tts_command"`
	Language   string `mapstructure:"language"`
}

// ProfileConfig 知识库来源。
type ProfileConfig struct {
	File string `mapstructure:"file"`
}

// envBindings maps config keys to the environment variables that override them.
var envBindings = map[string]string{
	"server.port":                 "PORT",
	"log.level":                   "LOG_LEVEL",
	"log.format":                  "LOG_FORMAT",
	"log.file":                    "LOG_FILE",
	"log.max_size_mb":             "LOG_MAX_SIZE_MB",
	"log.max_age_days":            "LOG_MAX_AGE_DAYS",
	"log.compress":                "LOG_COMPRESS",
	"session.base_delay":          "SESSION_BASE_DELAY",
	"session.speed_factor":        "SESSION_SPEED_FACTOR",
	"session.default_personality": "SESSION_DEFAULT_PERSONALITY",
	"session.default_speed":       "SESSION_DEFAULT_SPEED",
	"session.voice_enabled":       "SESSION_VOICE_ENABLED",
	"session.emoji_mode":          "SESSION_EMOJI_MODE",
	"session.language":            "SESSION_LANGUAGE",
	"storage.driver":              "STORAGE_DRIVER",
	"storage.path":                "STORAGE_PATH",
	"storage.redis_addr":          "STORAGE_REDIS_ADDR",
	"storage.redis_password":      "STORAGE_REDIS_PASSWORD",
	"storage.redis_db":            "STORAGE_REDIS_DB",
	"storage.key_prefix":          "STORAGE_KEY_PREFIX",
	"speech.tts_command":          "SPEECH_TTS_COMMAND",
	"speech.language":             "SPEECH_LANGUAGE",
	"profile.file":                "PROFILE_FILE",
}

// Load 从默认值、可选的 CONFIG_FILE 以及环境变量加载配置。
// 优先级 (低 → 高): 默认值 → 配置文件 → 环境变量
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if err := v.BindEnv("config_file", "CONFIG_FILE"); err != nil {
		return nil, err
	}
	if path := strings.TrimSpace(v.GetString("config_file")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	addr, err := parseAddr(cfg.Server.Port)
	if err != nil {
		return nil, err
	}
	cfg.Server.Addr = addr

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_age_days", 7)
	v.SetDefault("log.compress", false)

	v.SetDefault("session.base_delay", "1s")
	v.SetDefault("session.speed_factor", "500ms")
	v.SetDefault("session.default_personality", string(chat.Professional))
	v.SetDefault("session.default_speed", chat.SpeedNormal)
	v.SetDefault("session.voice_enabled", false)
	v.SetDefault("session.emoji_mode", true)
	v.SetDefault("session.language", "english")

	v.SetDefault("storage.driver", storage.DriverMemory)
	v.SetDefault("storage.path", "")
	v.SetDefault("storage.redis_addr", "localhost:6379")
	v.SetDefault("storage.redis_password", "")
	v.SetDefault("storage.redis_db", 0)
	v.SetDefault("storage.key_prefix", "portfolio:")

	v.SetDefault("speech.tts_command", "")
	v.SetDefault("speech.language", "en-US")

	v.SetDefault("profile.file", "")
}

// parseAddr 解析服务器监听地址。
func parseAddr(port string) (string, error) {
	port = strings.TrimSpace(port)
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	return ":" + port, nil
}

func (c *Config) validate() error {
	if _, err := c.Session.Settings(); err != nil {
		return err
	}
	if c.Session.BaseDelay < 0 || c.Session.SpeedFactor <= 0 {
		return fmt.Errorf("invalid session timing: base %s, factor %s", c.Session.BaseDelay, c.Session.SpeedFactor)
	}

	switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
	case storage.DriverMemory, storage.DriverBolt, storage.DriverRedis, storage.DriverSQLite:
	default:
		return fmt.Errorf("invalid STORAGE_DRIVER value %q", c.Storage.Driver)
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid LOG_FORMAT value %q", c.Log.Format)
	}
	return nil
}

// Settings 返回新会话的默认设置。
func (c SessionConfig) Settings() (chat.Settings, error) {
	personality, err := chat.ParsePersonality(c.DefaultPersonality)
	if err != nil {
		return chat.Settings{}, fmt.Errorf("invalid SESSION_DEFAULT_PERSONALITY: %w", err)
	}
	settings := chat.Settings{
		Personality:   personality,
		ResponseSpeed: c.DefaultSpeed,
		VoiceEnabled:  c.VoiceEnabled,
		EmojiMode:     c.EmojiMode,
		Language:      c.Language,
	}
	if err := settings.Validate(); err != nil {
		return chat.Settings{}, fmt.Errorf("invalid session defaults: %w", err)
	}
	return settings, nil
}

// Options 转换为存储驱动参数。
func (c StorageConfig) Options() storage.Options {
	return storage.Options{
		Driver:        c.Driver,
		Path:          c.Path,
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		RedisDB:       c.RedisDB,
	}
}

// Logger 转换为日志构建参数。
func (c LogConfig) Logger() logger.Config {
	return logger.Config{
		Level:      c.Level,
		Format:     c.Format,
		File:       c.File,
		MaxSizeMB:  c.MaxSizeMB,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}
