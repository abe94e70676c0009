package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// InfluxConfig holds the InfluxDB export settings.
type InfluxConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Token  string `json:"token" mapstructure:"token"`
	Org    string `json:"org" mapstructure:"org"`
	Bucket string `json:"bucket" mapstructure:"bucket"`
}

type Config struct {
	Log struct {
		Level      string `json:"level" mapstructure:"level"`
		Pretty     bool   `json:"pretty" mapstructure:"pretty"`
		TimeFormat string `json:"timeFormat" mapstructure:"timeFormat"`
	} `json:"log" mapstructure:"log"`

	Parse struct {
		FieldErrors string `json:"fieldErrors" mapstructure:"fieldErrors"`
		FrameBudget int    `json:"frameBudget" mapstructure:"frameBudget"` // 0 is unlimited.
		Positions   bool   `json:"positions" mapstructure:"positions"`
		Parallel    int    `json:"parallel" mapstructure:"parallel"`
	} `json:"parse" mapstructure:"parse"`

	Demo struct {
		Dir     string        `json:"dir" mapstructure:"dir"`
		Refresh time.Duration `json:"refresh" mapstructure:"refresh"`
	} `json:"demo" mapstructure:"demo"`

	Export struct {
		Kind   string       `json:"kind" mapstructure:"kind"` // json, sqlite, influx or empty.
		Path   string       `json:"path" mapstructure:"path"`
		Influx InfluxConfig `json:"influx" mapstructure:"influx"`
	} `json:"export" mapstructure:"export"`

	HTTP struct {
		Addr string `json:"addr" mapstructure:"addr"`
	} `json:"http" mapstructure:"http"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
	v.SetDefault("log.timeFormat", "15:04:05.000")

	v.SetDefault("parse.fieldErrors", "continue")
	v.SetDefault("parse.frameBudget", 0)
	v.SetDefault("parse.positions", true)
	v.SetDefault("parse.parallel", 4)

	v.SetDefault("demo.dir", "demos")
	v.SetDefault("demo.refresh", "30s")

	v.SetDefault("export.kind", "")
	v.SetDefault("export.path", "")
	v.SetDefault("export.influx.url", "http://localhost:8086")
	v.SetDefault("export.influx.token", "")
	v.SetDefault("export.influx.org", "srcdemo")
	v.SetDefault("export.influx.bucket", "demos")

	v.SetDefault("http.addr", ":8080")
}

// Load reads the config file at path on top of the default values.
// Empty path means defaults only. The file type follows its extension.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %v", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %v", err)
	}
	if cfg.Parse.Parallel < 1 {
		cfg.Parse.Parallel = 1
	}
	return cfg, nil
}
