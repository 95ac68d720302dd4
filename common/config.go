package common

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds engine options. Zero values fall back to DefaultConfig.
type Config struct {
	// PoolSize is the number of frames in the buffer pool.
	PoolSize int `yaml:"pool_size"`
	// DBFile is the path of the database file. The disk manager creates it if
	// it does not exist yet.
	DBFile string `yaml:"db_file"`
	// WalDisabled marks write ahead logging as off. ReadConfig only records
	// it; nothing in this package wires a log manager from it. A buffer pool
	// built with a nil log manager uses the no-op one and its flushes skip
	// the log barrier.
	WalDisabled bool `yaml:"wal_disabled"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func DefaultConfig() Config {
	return Config{
		PoolSize:  64,
		DBFile:    "tinydb.db",
		LogLevel:  "info",
		LogFormat: "console",
	}
}

// ReadConfig loads a yaml config file, filling unset fields with defaults.
func ReadConfig(path string) (Config, error) {
	c := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return c, WrapError(IO, "cannot read config file", err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, WrapError(Conversion, "cannot parse config file", err)
	}
	if c.PoolSize <= 0 {
		c.PoolSize = DefaultConfig().PoolSize
	}
	return c, nil
}

// NewLogger builds a zap logger from config. It is meant to be called once at
// startup; components receive the logger through their constructors.
func NewLogger(c Config) *zap.Logger {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level.SetLevel(zap.InfoLevel)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	var encoder zapcore.Encoder
	if strings.ToLower(c.LogFormat) == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), level)
	return zap.New(core)
}
