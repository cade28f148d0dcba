package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

type config struct {
	Width    int    `toml:"width"`
	Height   int    `toml:"height"`
	Rate     int    `toml:"rate"`
	Color    string `toml:"color"`
	Image    string `toml:"image"`
	Flip     bool   `toml:"flip"`
	LogLevel string `toml:"log_level"`
}

const configFile = "config.toml"

func defaultConfig() config {
	return config{
		Width:    640,
		Height:   480,
		Rate:     60,
		Color:    "steelblue",
		Flip:     true,
		LogLevel: "info",
	}
}

func configDir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, "xwlpresent")
}

// readConfig decodes the file at path over the defaults. A missing
// file is only an error if required is set.
func readConfig(path string, required bool) (config, error) {
	conf := defaultConfig()
	_, err := toml.DecodeFile(path, &conf)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return conf, nil
		}
		return conf, fmt.Errorf("read config %q: %w", path, err)
	}
	return conf, nil
}

// parseOptions reads the config file and then applies any flags that
// were set explicitly on the command line.
func parseOptions() (config, error) {
	def := defaultConfig()

	var opt config
	path := flag.String("config", filepath.Join(configDir(), configFile), "path to the configuration file")
	flag.IntVar(&opt.Width, "width", def.Width, "window width")
	flag.IntVar(&opt.Height, "height", def.Height, "window height")
	flag.IntVar(&opt.Rate, "rate", def.Rate, "presentations per second to attempt")
	flag.StringVar(&opt.Color, "color", def.Color, "background color name (SVG 1.1 names)")
	flag.StringVar(&opt.Image, "image", def.Image, "image file to show instead of a plain background")
	flag.BoolVar(&opt.Flip, "flip", def.Flip, "allow pixmaps to be flipped instead of copied")
	flag.StringVar(&opt.LogLevel, "log", def.LogLevel, "log level (debug, info, warn, error)")
	flag.Parse()

	explicit := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			explicit = true
		}
	})

	conf, err := readConfig(*path, explicit)
	if err != nil {
		return conf, err
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "width":
			conf.Width = opt.Width
		case "height":
			conf.Height = opt.Height
		case "rate":
			conf.Rate = opt.Rate
		case "color":
			conf.Color = opt.Color
		case "image":
			conf.Image = opt.Image
		case "flip":
			conf.Flip = opt.Flip
		case "log":
			conf.LogLevel = opt.LogLevel
		}
	})

	if (conf.Width <= 0) || (conf.Height <= 0) {
		return conf, fmt.Errorf("invalid window size %vx%v", conf.Width, conf.Height)
	}
	if conf.Rate <= 0 {
		return conf, fmt.Errorf("invalid rate %v", conf.Rate)
	}
	return conf, nil
}

func (conf config) level() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(conf.LogLevel))
	if err != nil {
		return level, fmt.Errorf("parse log level: %w", err)
	}
	return level, nil
}
