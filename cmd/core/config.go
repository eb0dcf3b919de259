package main

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/JoeShih716/go-funds-ledger/pkg/logger"
	"github.com/JoeShih716/go-funds-ledger/pkg/mysql"
)

// StoreType 選擇儲存層實作
type StoreType string

const (
	StoreMySQL  StoreType = "mysql"
	StoreMemory StoreType = "memory"
)

type Config struct {
	Store   StoreType     `yaml:"store"`
	GRPC    GRPCConfig    `yaml:"grpc"`
	Metrics MetricsConfig `yaml:"metrics"`
	Auth    AuthConfig    `yaml:"auth"`
	Accrual AccrualConfig `yaml:"accrual"`
	Log     logger.Config `yaml:"log"`
	MySQL   mysql.Config  `yaml:"mysql"`
}

type GRPCConfig struct {
	Addr          string  `yaml:"addr"`
	RatePerSecond float64 `yaml:"rate_per_second"` // 每個呼叫者每秒可用的請求數
	Burst         int     `yaml:"burst"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type AuthConfig struct {
	Secret       string        `yaml:"secret"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
	PasswordCost int           `yaml:"password_cost"` // bcrypt cost
}

type AccrualConfig struct {
	Period     time.Duration `yaml:"period"`
	GrowthRate string        `yaml:"growth_rate"`
}

// Rate 解析成長倍率
func (c AccrualConfig) Rate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(c.GrowthRate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("accrual.growth_rate %q: %w", c.GrowthRate, err)
	}
	if !rate.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("accrual.growth_rate must be greater than 1, got %s", rate)
	}
	return rate, nil
}

// loadConfig 讀取 yaml 設定檔並補上預設值
func loadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.setDefaults()
	return cfg, cfg.validate()
}

func (c *Config) setDefaults() {
	if c.Store == "" {
		c.Store = StoreMySQL
	}
	if c.GRPC.Addr == "" {
		c.GRPC.Addr = ":50051"
	}
	if c.GRPC.RatePerSecond <= 0 {
		c.GRPC.RatePerSecond = 200
	}
	if c.GRPC.Burst <= 0 {
		c.GRPC.Burst = 400
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9090"
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = time.Hour
	}
	if c.Auth.PasswordCost == 0 {
		c.Auth.PasswordCost = bcrypt.DefaultCost
	}
	if c.Accrual.Period <= 0 {
		c.Accrual.Period = time.Minute
	}
	if c.Accrual.GrowthRate == "" {
		c.Accrual.GrowthRate = "1.05"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

func (c *Config) validate() error {
	switch c.Store {
	case StoreMySQL, StoreMemory:
	default:
		return fmt.Errorf("unknown store %q (want mysql or memory)", c.Store)
	}
	if c.Auth.Secret == "" {
		return fmt.Errorf("auth.secret is required")
	}
	if c.Auth.PasswordCost < bcrypt.MinCost || c.Auth.PasswordCost > bcrypt.MaxCost {
		return fmt.Errorf("auth.password_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	_, err := c.Accrual.Rate()
	return err
}
