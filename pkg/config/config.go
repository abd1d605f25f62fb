// Copyright 2025-2026 YieldRay
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the server configuration from a TOML file and the
// environment. Environment variables win over the file.
package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// Config is the complete server configuration.
type Config struct {
	Port   int          `mapstructure:"port"`
	Log    LogConfig    `mapstructure:"log"`
	DB     DBConfig     `mapstructure:"db"`
	Webdav WebdavConfig `mapstructure:"webdav"`
}

// LogConfig configures the zerolog output.
type LogConfig struct {
	Level string `mapstructure:"level"`
	Mode  string `mapstructure:"mode"`
}

// DBConfig selects the database the filesystem table lives in.
type DBConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Table  string `mapstructure:"table"`
}

// WebdavConfig configures the WebDAV surface.
type WebdavConfig struct {
	Browser  string `mapstructure:"browser"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Realm    string `mapstructure:"realm"`
}

func defaults() *Config {
	return &Config{
		Port: 3000,
		Log: LogConfig{
			Level: "info",
			Mode:  "console",
		},
		DB: DBConfig{
			Driver: "sqlite3",
			DSN:    "wedbav.db",
			Table:  "filesystem",
		},
		Webdav: WebdavConfig{
			Browser: "disabled",
		},
	}
}

// Load reads the configuration. fn may be empty, then only defaults and the
// environment apply; a missing file at the default location is not an error.
func Load(fn string) (*Config, error) {
	c := defaults()

	if fn != "" {
		var raw map[string]interface{}
		if _, err := toml.DecodeFile(fn, &raw); err != nil {
			if !os.IsNotExist(err) {
				return nil, errors.Wrapf(err, "config: error reading %s", fn)
			}
		} else {
			dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
				Result:           c,
				WeaklyTypedInput: true,
			})
			if err != nil {
				return nil, errors.Wrap(err, "config: error creating decoder")
			}
			if err := dec.Decode(raw); err != nil {
				return nil, errors.Wrapf(err, "config: error decoding %s", fn)
			}
		}
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	return c, nil
}

// applyEnv overlays the documented environment variables.
func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("PORT"); ok {
		p, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "config: invalid PORT")
		}
		c.Port = p
	}
	if v, ok := os.LookupEnv("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := os.LookupEnv("DB_DRIVER"); ok {
		c.DB.Driver = v
	}
	if v, ok := os.LookupEnv("DB_DSN"); ok {
		c.DB.DSN = v
	}
	if v, ok := os.LookupEnv("TABLE_NAME"); ok {
		c.DB.Table = v
	}
	if v, ok := os.LookupEnv("BROWSER"); ok {
		c.Webdav.Browser = v
	}
	if v, ok := os.LookupEnv("USERNAME"); ok {
		c.Webdav.Username = v
	}
	if v, ok := os.LookupEnv("PASSWORD"); ok {
		c.Webdav.Password = v
	}
	return nil
}
