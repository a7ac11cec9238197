// Package config 负责加载与热更新引擎配置
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/lt-one/mindora-quote/market"
)

// Config 引擎配置文件结构
type Config struct {
	Source         string `yaml:"source"`          // 默认数据源：sina / eastmoney
	TimeoutSeconds int    `yaml:"timeout_seconds"` // 单次上游调用超时

	Kline struct {
		Count int `yaml:"count"`
	} `yaml:"kline"`

	Volatility struct {
		Window int `yaml:"window"`
	} `yaml:"volatility"`

	Cache struct {
		QuoteTTLMinutes    int `yaml:"quote_ttl_minutes"`
		KlineTTLMinutes    int `yaml:"kline_ttl_minutes"`
		IndexTTLMinutes    int `yaml:"index_ttl_minutes"`
		SymbolListTTLHours int `yaml:"symbol_list_ttl_hours"`
	} `yaml:"cache"`

	HotStocks []string `yaml:"hot_stocks"`
	Indices   []string `yaml:"indices"`

	Refresh struct {
		IntervalSeconds int `yaml:"interval_seconds"`
	} `yaml:"refresh"`

	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
	} `yaml:"log"`
}

// Default 内置默认配置，配置文件缺失时可直接运行
func Default() *Config {
	c := &Config{
		Source:         "eastmoney",
		TimeoutSeconds: 10,
	}
	c.Kline.Count = 90
	c.Volatility.Window = 20
	c.Cache.QuoteTTLMinutes = 5
	c.Cache.KlineTTLMinutes = 60
	c.Cache.IndexTTLMinutes = 5
	c.Cache.SymbolListTTLHours = 24
	c.HotStocks = []string{
		"sh600519", "sh601318", "sh600036", "sz000858", "sz300750",
		"sh600030", "sh601888", "sz000333", "sh600276", "sh601166",
	}
	c.Indices = []string{"sh000001", "sz399001", "sz399006", "sh000300"}
	c.Refresh.IntervalSeconds = 60
	c.Log.Level = "info"
	return c
}

// Load 读取 YAML 配置文件，未设置的字段落到默认值
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// EngineOptions 转换为引擎运行参数
func (c *Config) EngineOptions() market.Options {
	return market.Options{
		DefaultSource:    c.Source,
		FetchTimeout:     time.Duration(c.TimeoutSeconds) * time.Second,
		KlineCount:       c.Kline.Count,
		VolatilityWindow: c.Volatility.Window,
		HotStocks:        c.HotStocks,
		Indices:          c.Indices,
		TTL: market.TTLPolicy{
			Quote:      time.Duration(c.Cache.QuoteTTLMinutes) * time.Minute,
			Kline:      time.Duration(c.Cache.KlineTTLMinutes) * time.Minute,
			Indices:    time.Duration(c.Cache.IndexTTLMinutes) * time.Minute,
			SymbolList: time.Duration(c.Cache.SymbolListTTLHours) * time.Hour,
		},
	}
}
