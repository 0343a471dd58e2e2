package config

import (
	"fmt"
	"os"
	"strings"
	"time"

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
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		SignalTopic  string   `yaml:"signal_topic"`
		TradeTopic   string   `yaml:"trade_topic"`
		SamplesTopic string   `yaml:"samples_topic"`
		LogTopic     string   `yaml:"log_topic"`
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
			Enabled    bool          `yaml:"enabled"`
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
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Pipeline struct {
		Cadence          string        `yaml:"cadence"`
		BuyThreshold     float64       `yaml:"buy_threshold"`
		SellThreshold    float64       `yaml:"sell_threshold"`
		HysteresisBand   float64       `yaml:"hysteresis_band"`
		DirectionEpsilon float64       `yaml:"direction_epsilon"`
		Quantity         float64       `yaml:"quantity"`
		ShortingEnabled  bool          `yaml:"shorting_enabled"`
		TTLSafetyFactor  float64       `yaml:"ttl_safety_factor"`
		CycleTimeout     time.Duration `yaml:"cycle_timeout"`
		FetchRetries     int           `yaml:"fetch_retries"`
		FetchBackoff     time.Duration `yaml:"fetch_backoff"`
		BufferSize       int           `yaml:"buffer_size"`
	} `yaml:"pipeline"`
	Scoring struct {
		URL        string        `yaml:"url"`
		Timeout    time.Duration `yaml:"timeout"`
		MaxRetries int           `yaml:"max_retries"`
	} `yaml:"scoring"`
	Feeds struct {
		Sources []FeedSource  `yaml:"sources"`
		Timeout time.Duration `yaml:"timeout"`
		Burst   float64       `yaml:"burst"`
		PerSec  float64       `yaml:"per_sec"`
	} `yaml:"feeds"`
	PriceFeed struct {
		WebSocketURL   string        `yaml:"websocket_url"`
		APIKey         string        `yaml:"api_key"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		StaleAfter     time.Duration `yaml:"stale_after"`
	} `yaml:"price_feed"`
	Instruments []Instrument              `yaml:"instruments"`
	Calendars   map[string]CalendarConfig `yaml:"calendars"`
}

// FeedSource is one upstream text feed endpoint.
type FeedSource struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Instrument names a tracked symbol and an optional calendar key. An empty
// calendar key falls through to the default calendar.
type Instrument struct {
	Symbol   string `yaml:"symbol"`
	Calendar string `yaml:"calendar"`
}

// CalendarConfig describes market hours for a calendar key. The "default" key
// applies to instruments without an explicit calendar.
type CalendarConfig struct {
	Timezone string            `yaml:"timezone"`
	Sessions []CalendarSession `yaml:"sessions"`
	Holidays []string          `yaml:"holidays"` // "2006-01-02"
}

// CalendarSession is one open interval, clock times in the calendar timezone.
type CalendarSession struct {
	Weekday string `yaml:"weekday"` // "Monday".."Sunday"
	Open    string `yaml:"open"`    // "15:04"
	Close   string `yaml:"close"`
}

// Symbols returns the tracked symbols in config order.
func (c *Config) Symbols() []string {
	out := make([]string, 0, len(c.Instruments))
	for _, in := range c.Instruments {
		out = append(out, in.Symbol)
	}
	return out
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
		c.Instruments = c.Instruments[:0]
		for _, s := range strings.Split(v, ",") {
			c.Instruments = append(c.Instruments, Instrument{Symbol: strings.TrimSpace(s)})
		}
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SCORING_URL"); v != "" {
		c.Scoring.URL = v
	}
	if v := os.Getenv("PRICE_FEED_API_KEY"); v != "" {
		c.PriceFeed.APIKey = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Enabled = true
		c.Redis.Addr = v
	}
	if v := os.Getenv("CADENCE"); v != "" {
		c.Pipeline.Cadence = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Instruments) == 0 {
		return fmt.Errorf("instruments cannot be empty")
	}
	for _, in := range c.Instruments {
		if in.Symbol == "" {
			return fmt.Errorf("instrument symbol is required")
		}
	}
	if c.Scoring.URL == "" {
		return fmt.Errorf("scoring.url is required")
	}
	if c.Pipeline.BuyThreshold != 0 && c.Pipeline.SellThreshold != 0 &&
		c.Pipeline.BuyThreshold <= c.Pipeline.SellThreshold {
		return fmt.Errorf("pipeline.buy_threshold must be above sell_threshold")
	}
	if c.Pipeline.HysteresisBand < 0 {
		return fmt.Errorf("pipeline.hysteresis_band cannot be negative")
	}
	if c.Pipeline.TTLSafetyFactor < 0 {
		return fmt.Errorf("pipeline.ttl_safety_factor cannot be negative")
	}
	return nil
}
