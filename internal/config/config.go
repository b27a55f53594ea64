package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config 全部运行参数, 优先级: 环境变量 > YAML 文件 > 默认值
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	LogLevel   string `yaml:"log_level"`  // "debug" | "info" | "warn" | "error"
	PrettyLog  bool   `yaml:"pretty_log"` // true => zap dev (color), false => JSON

	GitHub   GitHubConfig   `yaml:"github"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Auth     AuthConfig     `yaml:"auth"`
	Scan     ScanConfig     `yaml:"scan"`
}

type GitHubConfig struct {
	Token             string        `yaml:"token"`
	AppID             int64         `yaml:"app_id"`
	InstallationID    int64         `yaml:"installation_id"`
	PrivateKeyPath    string        `yaml:"private_key_path"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

type DatabaseConfig struct {
	ReposDSN string `yaml:"repos_dsn"`
	UsersDSN string `yaml:"users_dsn"`
}

type CacheConfig struct {
	RedisURL string        `yaml:"redis_url"` // 为空则不启用缓存
	TTL      time.Duration `yaml:"ttl"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type ScanConfig struct {
	Languages       []string      `yaml:"languages"`
	MinStars        int           `yaml:"min_stars"`
	BatchSize       int           `yaml:"batch_size"`
	MinReadmeLength int           `yaml:"min_readme_length"`
	FreshnessWindow time.Duration `yaml:"freshness_window"`
	ItemDelay       time.Duration `yaml:"item_delay"`
	LanguageDelay   time.Duration `yaml:"language_delay"`
	Interval        time.Duration `yaml:"interval"`
	Version         string        `yaml:"version"`
}

// Default 默认配置
func Default() *Config {
	return &Config{
		ListenAddr: ":8080",
		LogLevel:   "info",
		PrettyLog:  false,
		GitHub: GitHubConfig{
			RequestTimeout:    30 * time.Second,
			RequestsPerSecond: 5,
		},
		Cache: CacheConfig{TTL: 10 * time.Minute},
		Auth:  AuthConfig{TokenTTL: 24 * time.Hour},
		Scan: ScanConfig{
			Languages:       []string{"JavaScript", "TypeScript", "Python", "Go", "Rust", "Java"},
			MinStars:        50,
			BatchSize:       100,
			MinReadmeLength: 100,
			FreshnessWindow: 12 * time.Hour,
			ItemDelay:       500 * time.Millisecond,
			LanguageDelay:   2 * time.Second,
			Interval:        12 * time.Hour,
			Version:         "v2",
		},
	}
}

// Load 依次加载 .env、YAML 文件(path 为空时跳过)和环境变量, 最后做校验
func Load(path string) (*Config, error) {
	// .env 不存在不是错误
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("读取 .env 失败: %w", err)
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv("GITRADAR_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	setString(&cfg.ListenAddr, "GITRADAR_LISTEN_ADDR")
	setString(&cfg.LogLevel, "GITRADAR_LOG_LEVEL")
	collect(setBool(&cfg.PrettyLog, "GITRADAR_PRETTY_LOG"))

	setString(&cfg.GitHub.Token, "GITHUB_TOKEN")
	collect(setInt64(&cfg.GitHub.AppID, "GITHUB_APP_ID"))
	collect(setInt64(&cfg.GitHub.InstallationID, "GITHUB_INSTALLATION_ID"))
	setString(&cfg.GitHub.PrivateKeyPath, "GITHUB_PRIVATE_KEY_PATH")
	collect(setDuration(&cfg.GitHub.RequestTimeout, "GITHUB_REQUEST_TIMEOUT"))
	collect(setFloat(&cfg.GitHub.RequestsPerSecond, "GITHUB_REQUESTS_PER_SECOND"))

	setString(&cfg.Database.ReposDSN, "REPOS_DATABASE_URL")
	setString(&cfg.Database.UsersDSN, "USERS_DATABASE_URL")

	setString(&cfg.Cache.RedisURL, "REDIS_URL")
	collect(setDuration(&cfg.Cache.TTL, "CACHE_TTL"))

	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	collect(setDuration(&cfg.Auth.TokenTTL, "JWT_TTL"))

	if v := os.Getenv("SCAN_LANGUAGES"); v != "" {
		cfg.Scan.Languages = splitAndTrim(v)
	}
	collect(setInt(&cfg.Scan.MinStars, "SCAN_MIN_STARS"))
	collect(setInt(&cfg.Scan.BatchSize, "SCAN_BATCH_SIZE"))
	collect(setInt(&cfg.Scan.MinReadmeLength, "SCAN_MIN_README_LENGTH"))
	collect(setDuration(&cfg.Scan.FreshnessWindow, "SCAN_FRESHNESS_WINDOW"))
	collect(setDuration(&cfg.Scan.ItemDelay, "SCAN_ITEM_DELAY"))
	collect(setDuration(&cfg.Scan.LanguageDelay, "SCAN_LANGUAGE_DELAY"))
	collect(setDuration(&cfg.Scan.Interval, "SCAN_INTERVAL"))
	setString(&cfg.Scan.Version, "SCAN_VERSION")

	return errors.Join(errs...)
}

// Validate 启动前的快速失败检查
func (c *Config) Validate() error {
	var errs []error
	if len(c.Scan.Languages) == 0 {
		errs = append(errs, errors.New("scan.languages 不能为空"))
	}
	if c.Scan.BatchSize < 1 || c.Scan.BatchSize > 100 {
		errs = append(errs, fmt.Errorf("scan.batch_size 必须在 1..100 之间, 当前 %d", c.Scan.BatchSize))
	}
	if c.Scan.MinStars < 0 {
		errs = append(errs, fmt.Errorf("scan.min_stars 不能为负数, 当前 %d", c.Scan.MinStars))
	}
	if c.Scan.FreshnessWindow <= 0 {
		errs = append(errs, errors.New("scan.freshness_window 必须 > 0"))
	}
	if c.Scan.Interval <= 0 {
		errs = append(errs, errors.New("scan.interval 必须 > 0"))
	}
	if c.Scan.ItemDelay < 0 || c.Scan.LanguageDelay < 0 {
		errs = append(errs, errors.New("扫描间隔不能为负数"))
	}
	if c.GitHub.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("github.requests_per_second 必须 > 0"))
	}
	if c.GitHub.AppID != 0 && (c.GitHub.InstallationID == 0 || c.GitHub.PrivateKeyPath == "") {
		errs = append(errs, errors.New("使用 GitHub App 认证时必须同时配置 installation_id 和 private_key_path"))
	}
	return errors.Join(errs...)
}

// Redacted 打日志用, 隐藏敏感字段
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "***REDACTED***"
	}
	c.GitHub.Token = mask(c.GitHub.Token)
	c.Database.ReposDSN = mask(c.Database.ReposDSN)
	c.Database.UsersDSN = mask(c.Database.UsersDSN)
	c.Cache.RedisURL = mask(c.Cache.RedisURL)
	c.Auth.JWTSecret = mask(c.Auth.JWTSecret)
	return c
}

// helpers

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s 不是合法整数: %q", key, v)
	}
	*dst = i
	return nil
}

func setInt64(dst *int64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("%s 不是合法整数: %q", key, v)
	}
	*dst = i
	return nil
}

func setFloat(dst *float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s 不是合法数字: %q", key, v)
	}
	*dst = f
	return nil
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s 不是合法布尔值: %q", key, v)
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s 不是合法时长: %q", key, v)
	}
	*dst = d
	return nil
}

func splitAndTrim(s string) []string {
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.Trim(strings.TrimSpace(part), `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
