package core

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type Config struct {
	Debug    bool
	TestMode bool
	AppName  string
	Env      string
	Build    string
	WorkDir  string

	Server struct {
		Host            string
		DebugHost       string
		ShutdownTimeout time.Duration
	}

	Database struct {
		Path    string
		Timeout time.Duration
	}

	Promotion struct {
		Month    time.Month
		Day      int
		Schedule string
	}

	Kiosk struct {
		StationID string
	}

	RollbarToken string

	location *time.Location
}

// Location is the time zone used to derive local calendar dates.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

func newViper() *viper.Viper {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Library Kiosk")
	v.SetDefault("build", "develop")
	v.SetDefault("server.host", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("database.path", "kiosk.db")
	v.SetDefault("database.timeout", time.Second)
	v.SetDefault("timezone", "Local")
	v.SetDefault("promotion.month", int(time.June))
	v.SetDefault("promotion.day", 1)
	v.SetDefault("promotion.schedule", "@hourly")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("kiosk.stationID", "kiosk-1")
	v.SetDefault("testMode", false)

	// server.host -> <ENV>_SERVER_HOST
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

// NewConfig loads the configuration from the environment and the optional `config/.env.<env>` file.
func NewConfig() (*Config, error) {
	v := newViper()

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "config.godotenv(%s)", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "config.os.Stat(%s)", dotEnvPath)
	}
	v.AutomaticEnv()

	conf := &Config{
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		AppName:      v.GetString("appName"),
		Env:          env,
		Build:        v.GetString("build"),
		WorkDir:      wd,
		RollbarToken: v.GetString("rollbarToken"),
	}
	conf.Server.Host = v.GetString("server.host")
	conf.Server.DebugHost = v.GetString("server.debugHost")
	conf.Server.ShutdownTimeout = v.GetDuration("server.shutdownTimeout")
	conf.Database.Path = v.GetString("database.path")
	conf.Database.Timeout = v.GetDuration("database.timeout")
	conf.Promotion.Month = time.Month(v.GetInt("promotion.month"))
	conf.Promotion.Day = v.GetInt("promotion.day")
	conf.Promotion.Schedule = v.GetString("promotion.schedule")
	conf.Kiosk.StationID = v.GetString("kiosk.stationID")

	if conf.Promotion.Month < time.January || conf.Promotion.Month > time.December {
		return nil, errors.Errorf("config: invalid promotion.month %d", conf.Promotion.Month)
	}
	if conf.Promotion.Day < 1 || conf.Promotion.Day > 31 {
		return nil, errors.Errorf("config: invalid promotion.day %d", conf.Promotion.Day)
	}

	loc, err := time.LoadLocation(v.GetString("timezone"))
	if err != nil {
		return nil, errors.Wrap(err, "config: loading timezone")
	}
	conf.location = loc

	if !filepath.IsAbs(conf.Database.Path) {
		conf.Database.Path = filepath.Join(wd, conf.Database.Path)
	}
	return conf, nil
}

// NewTestConfig returns a Config suitable for tests.
func NewTestConfig(loc *time.Location) *Config {
	conf := &Config{
		TestMode: true,
		AppName:  "Library Kiosk",
		Env:      "TEST",
		Build:    "test",
		location: loc,
	}
	conf.Server.ShutdownTimeout = time.Second
	conf.Promotion.Month = time.June
	conf.Promotion.Day = 1
	conf.Promotion.Schedule = "@hourly"
	conf.Kiosk.StationID = "kiosk-test"
	return conf
}
