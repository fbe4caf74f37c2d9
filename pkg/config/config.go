// Package config loads and validates application configuration from YAML
// files with environment-variable overrides. The Data Node and Gateway each
// get a typed config struct; domain settings (shard ID, data file, ports,
// timeouts) follow the exact environment variable names the services have
// always used, while ambient settings (logging, metrics, cache, analytics)
// layer YAML defaults with SP_-prefixed overrides in the platform's usual
// style.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// RedisConfig holds Redis connection and caching parameters for the
// Gateway's response cache.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
	Timeout  time.Duration `yaml:"timeout"`
}

// KafkaConfig holds Kafka broker and topic settings for the Gateway's
// fire-and-forget query analytics stream.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// DataNodeAddr is one shard's RPC endpoint, as configured on the Gateway.
type DataNodeAddr struct {
	ShardID int
	Address string
}

// DataNodeConfig configures a single Data Node process: which shard it
// owns, where its CSV data file lives, and which port it serves RPC on.
type DataNodeConfig struct {
	ShardID      int           `yaml:"shardId"`
	DataFilePath string        `yaml:"dataFilePath"`
	GRPCPort     int           `yaml:"grpcPort"`
	Logging      LoggingConfig `yaml:"logging"`
	Metrics      MetricsConfig `yaml:"metrics"`
}

// GatewayConfig configures the Gateway: its HTTP port, the Data Node shards
// it fans out to, and the per-shard RPC deadline.
type GatewayConfig struct {
	HTTPPort      int            `yaml:"httpPort"`
	DataNodes     []DataNodeAddr `yaml:"-"`
	GRPCTimeoutMS int            `yaml:"grpcTimeoutMs"`
	MaxResults    int            `yaml:"maxResults"`
	Logging       LoggingConfig  `yaml:"logging"`
	Metrics       MetricsConfig  `yaml:"metrics"`
	Redis         RedisConfig    `yaml:"redis"`
	Kafka         KafkaConfig    `yaml:"kafka"`
}

// GRPCTimeout returns the configured per-shard RPC deadline as a
// time.Duration.
func (g GatewayConfig) GRPCTimeout() time.Duration {
	return time.Duration(g.GRPCTimeoutMS) * time.Millisecond
}

// LoadDataNodeConfig reads an optional YAML file for ambient defaults, then
// applies the Data Node's environment variables (SHARD_ID, DATA_FILE_PATH,
// GRPC_PORT) and the shared SP_* ambient overrides.
func LoadDataNodeConfig(path string) (*DataNodeConfig, error) {
	cfg := defaultDataNodeConfig()
	if path != "" {
		if err := loadYAML(path, cfg); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv("SHARD_ID"); v != "" {
		shardID, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parsing SHARD_ID=%q: %w", v, err)
		}
		cfg.ShardID = shardID
	}
	if v := os.Getenv("DATA_FILE_PATH"); v != "" {
		cfg.DataFilePath = v
	} else if cfg.DataFilePath == "" {
		cfg.DataFilePath = fmt.Sprintf("data/shard_%d_data_demo.csv", cfg.ShardID)
	}
	if v := os.Getenv("GRPC_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parsing GRPC_PORT=%q: %w", v, err)
		}
		cfg.GRPCPort = port
	} else if cfg.GRPCPort == 0 {
		cfg.GRPCPort = 50051 + cfg.ShardID
	}

	applyAmbientEnvOverrides(&cfg.Logging, &cfg.Metrics)
	return cfg, nil
}

// LoadGatewayConfig reads an optional YAML file for ambient defaults, then
// applies the Gateway's environment variables (HTTP_PORT, DATA_NODE_0,
// DATA_NODE_1, ..., GRPC_TIMEOUT_MS) and the shared SP_* ambient overrides.
func LoadGatewayConfig(path string) (*GatewayConfig, error) {
	cfg := defaultGatewayConfig()
	if path != "" {
		if err := loadYAML(path, cfg); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv("HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parsing HTTP_PORT=%q: %w", v, err)
		}
		cfg.HTTPPort = port
	}
	if v := os.Getenv("GRPC_TIMEOUT_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parsing GRPC_TIMEOUT_MS=%q: %w", v, err)
		}
		cfg.GRPCTimeoutMS = ms
	}
	if cfg.GRPCTimeoutMS <= 0 {
		return nil, fmt.Errorf("grpc timeout must be positive, got %d ms", cfg.GRPCTimeoutMS)
	}

	var nodes []DataNodeAddr
	for shardID := 0; ; shardID++ {
		addr := os.Getenv(fmt.Sprintf("DATA_NODE_%d", shardID))
		if addr == "" {
			break
		}
		nodes = append(nodes, DataNodeAddr{ShardID: shardID, Address: addr})
	}
	if len(nodes) > 0 {
		cfg.DataNodes = nodes
	}

	applyAmbientEnvOverrides(&cfg.Logging, &cfg.Metrics)
	if v := os.Getenv("SP_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SP_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SP_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}

	return cfg, nil
}

func loadYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func applyAmbientEnvOverrides(logging *LoggingConfig, metrics *MetricsConfig) {
	if v := os.Getenv("SP_LOGGING_LEVEL"); v != "" {
		logging.Level = v
	}
	if v := os.Getenv("SP_LOGGING_FORMAT"); v != "" {
		logging.Format = v
	}
	if v := os.Getenv("SP_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			metrics.Port = port
		}
	}
}

func defaultDataNodeConfig() *DataNodeConfig {
	return &DataNodeConfig{
		ShardID: 0,
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Metrics: MetricsConfig{Enabled: true, Port: 9090},
	}
}

func defaultGatewayConfig() *GatewayConfig {
	return &GatewayConfig{
		HTTPPort:      18080,
		GRPCTimeoutMS: 5000,
		MaxResults:    5,
		Logging:       LoggingConfig{Level: "info", Format: "json"},
		Metrics:       MetricsConfig{Enabled: true, Port: 9090},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
			Timeout:  200 * time.Millisecond,
		},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			Topic:   "address-query-events",
		},
	}
}
