package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"FinTrader/pkg/util"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Trading struct {
		Symbols               []string `yaml:"symbols"`
		InitialPortfolioValue float64  `yaml:"initial_portfolio_value"`
		Weights               struct {
			Technical float64 `yaml:"technical"`
			Ownership float64 `yaml:"ownership"`
			Sentiment float64 `yaml:"sentiment"`
			Risk      float64 `yaml:"risk"`
		} `yaml:"weights"`
		SignalThreshold         float64 `yaml:"signal_threshold"`          // |score| above which BUY/SELL fires
		SentimentScoreGate      float64 `yaml:"sentiment_score_gate"`      // |sentiment| required to count
		SentimentConfidenceGate float64 `yaml:"sentiment_confidence_gate"`
	} `yaml:"trading"`
	Risk struct {
		MaxPositionSize  float64 `yaml:"max_position_size"` // fraction of portfolio per position
		MaxDailyLoss     float64 `yaml:"max_daily_loss"`    // fraction of portfolio
		StopLossPct      float64 `yaml:"stop_loss_pct"`
		TakeProfitPct    float64 `yaml:"take_profit_pct"`
		MaxOpenPositions int     `yaml:"max_open_positions"`
		MinVolume        float64 `yaml:"min_volume"`
		MinConfidence    float64 `yaml:"min_confidence"`
		MinRiskReward    float64 `yaml:"min_risk_reward"`
		MaxHoldDays      int     `yaml:"max_hold_days"`
	} `yaml:"risk"`
	Narrative struct {
		ServiceURL string        `yaml:"service_url"`
		Timeout    time.Duration `yaml:"timeout"`
		Retries    int           `yaml:"retries"`
		CacheTTL   struct {
			Summary time.Duration `yaml:"summary"`
		} `yaml:"cache_ttl"`
		Redis struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"narrative"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		EventsTopic  string   `yaml:"events_topic"`
		TicksTopic   string   `yaml:"ticks_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Trading.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TICKS_TOPIC"); v != "" {
		c.Kafka.TicksTopic = v
	}
	if v := os.Getenv("NARRATIVE_SERVICE_URL"); v != "" {
		c.Narrative.ServiceURL = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Narrative.Redis.Addr = v
	}

	return c, nil
}

// applyDefaults fills the tunables that have documented defaults. The scoring
// weights and risk limits carry their production values so a minimal config
// file stays valid.
func (c *Config) applyDefaults() {
	if c.Trading.InitialPortfolioValue == 0 {
		c.Trading.InitialPortfolioValue = 100000
	}
	w := &c.Trading.Weights
	if w.Technical == 0 && w.Ownership == 0 && w.Sentiment == 0 && w.Risk == 0 {
		w.Technical, w.Ownership, w.Sentiment, w.Risk = 0.40, 0.30, 0.20, 0.10
	}
	if c.Trading.SignalThreshold == 0 {
		c.Trading.SignalThreshold = 0.6
	}
	if c.Trading.SentimentScoreGate == 0 {
		c.Trading.SentimentScoreGate = 0.3
	}
	if c.Trading.SentimentConfidenceGate == 0 {
		c.Trading.SentimentConfidenceGate = 0.6
	}
	r := &c.Risk
	if r.MaxPositionSize == 0 {
		r.MaxPositionSize = 0.05
	}
	if r.MaxDailyLoss == 0 {
		r.MaxDailyLoss = 0.02
	}
	if r.StopLossPct == 0 {
		r.StopLossPct = 0.03
	}
	if r.TakeProfitPct == 0 {
		r.TakeProfitPct = 0.06
	}
	if r.MaxOpenPositions == 0 {
		r.MaxOpenPositions = 10
	}
	if r.MinVolume == 0 {
		r.MinVolume = 1000000
	}
	if r.MinConfidence == 0 {
		r.MinConfidence = 0.6
	}
	if r.MinRiskReward == 0 {
		r.MinRiskReward = 1.5
	}
	if r.MaxHoldDays == 0 {
		r.MaxHoldDays = 7
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Trading.Symbols) == 0 {
		return fmt.Errorf("trading.symbols cannot be empty")
	}
	if c.Risk.MaxPositionSize > 0.2 {
		return fmt.Errorf("risk.max_position_size too high (>20%%): %v", c.Risk.MaxPositionSize)
	}
	if c.Risk.StopLossPct > c.Risk.TakeProfitPct {
		return fmt.Errorf("risk.stop_loss_pct %v exceeds take_profit_pct %v", c.Risk.StopLossPct, c.Risk.TakeProfitPct)
	}
	sum := c.Trading.Weights.Technical + c.Trading.Weights.Ownership + c.Trading.Weights.Sentiment + c.Trading.Weights.Risk
	if sum <= 0 {
		return fmt.Errorf("trading.weights must sum to a positive value")
	}
	return nil
}
