package defs

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

const DefaultDB = "librelink"

// Intervals.
const (
	DefaultCurrentTTL = 1 * time.Minute
	DefaultHistoryTTL = 5 * time.Minute
	PollerInterval    = 5 * time.Minute
	TimeoutInterval   = 2 * time.Second
)

// Supported target range bounds, mg/dL.
const (
	MinTargetLow  = 50
	MaxTargetLow  = 150
	MinTargetHigh = 100
	MaxTargetHigh = 300
)

type Config struct {
	LibreLink LibreLinkConfig `yaml:"librelink"`
	Mongo     MongoConfig     `yaml:"mongo"`
	Glucose   GlucoseConfig   `yaml:"glucose"`
	Cache     CacheConfig     `yaml:"cache"`
	Server    ServerConfig    `yaml:"server"`
	Timezone  string          `yaml:"timezone"`
	Logger    *zap.Logger     `yaml:"_,omitempty"`
}

type LibreLinkConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Region   string `yaml:"region"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type GlucoseConfig struct {
	TargetLow  float64 `yaml:"targetLow"`
	TargetHigh float64 `yaml:"targetHigh"`
}

func (gc GlucoseConfig) Range() TargetRange {
	return TargetRange{Low: gc.TargetLow, High: gc.TargetHigh}
}

func (gc GlucoseConfig) Validate() error {
	if gc.TargetLow >= gc.TargetHigh {
		return fmt.Errorf("target low %.1f must be below target high %.1f", gc.TargetLow, gc.TargetHigh)
	}
	if gc.TargetLow < MinTargetLow || gc.TargetLow > MaxTargetLow {
		return fmt.Errorf("target low %.1f outside supported bounds [%d, %d]", gc.TargetLow, MinTargetLow, MaxTargetLow)
	}
	if gc.TargetHigh < MinTargetHigh || gc.TargetHigh > MaxTargetHigh {
		return fmt.Errorf("target high %.1f outside supported bounds [%d, %d]", gc.TargetHigh, MinTargetHigh, MaxTargetHigh)
	}
	return nil
}

type CacheConfig struct {
	CurrentTTLSeconds int `yaml:"currentTTLSeconds"`
	HistoryTTLSeconds int `yaml:"historyTTLSeconds"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}
