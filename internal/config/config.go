// Package config reads runtime settings from .env and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"geomap/internal/cluster"
)

type Config struct {
	DBPath   string
	LogFile  string
	Autoload bool
	Grouping cluster.Config
}

func Default() Config {
	return Config{
		DBPath:   "data/geomap.db",
		LogFile:  "geomap.log",
		Grouping: cluster.DefaultConfig(),
	}
}

// Load reads the given .env files (missing ones are ignored) and then the
// environment. Variables already set in the environment win over .env.
func Load(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	cfg := Default()
	cfg.DBPath = getEnv("GEOMAP_DB", cfg.DBPath)
	cfg.LogFile = getEnv("LOG_FILE", cfg.LogFile)

	var errs []error
	floatVar := func(key string, dst *float64) {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			return
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = f
	}
	floatVar("GEOMAP_EPSILON", &cfg.Grouping.Epsilon)
	floatVar("GEOMAP_CIRCLE_RADIUS", &cfg.Grouping.Layout.CircleRadius)
	floatVar("GEOMAP_SPIRAL_START", &cfg.Grouping.Layout.SpiralStartRadius)
	floatVar("GEOMAP_SPIRAL_INCREMENT", &cfg.Grouping.Layout.SpiralIncrement)

	if v := strings.TrimSpace(os.Getenv("GEOMAP_CIRCLE_SWITCHOVER")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("GEOMAP_CIRCLE_SWITCHOVER: %w", err))
		} else {
			cfg.Grouping.Layout.CircleSwitchover = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("GEOMAP_AUTOLOAD")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("GEOMAP_AUTOLOAD: %w", err))
		} else {
			cfg.Autoload = b
		}
	}
	if err := errors.Join(errs...); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Grouping.Epsilon <= 0 {
		errs = append(errs, errors.New("GEOMAP_EPSILON must be positive"))
	}
	l := c.Grouping.Layout
	if l.CircleRadius <= 0 || l.SpiralStartRadius <= 0 || l.SpiralIncrement <= 0 {
		errs = append(errs, errors.New("layout radii must be positive"))
	}
	if l.CircleSwitchover < 1 {
		errs = append(errs, errors.New("GEOMAP_CIRCLE_SWITCHOVER must be at least 1"))
	}
	if strings.TrimSpace(c.DBPath) == "" {
		errs = append(errs, errors.New("GEOMAP_DB must not be empty"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
