package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/gwillem/dxlmotion/internal/log"
	"github.com/gwillem/dxlmotion/pkg/robot"
)

type Options struct {
	Config   string `short:"c" long:"config" default:"dxlmotion.json" description:"Configuration file"`
	LogLevel string `long:"log-level" default:"info" choice:"debug" choice:"info" choice:"warn" choice:"error" description:"Log level"`
	LogFile  string `long:"log-file" default:"dxlmotion.log" description:"Log file (the terminal UI owns stdout)"`

	Setup SetupCommand `command:"setup" description:"Scan for a servo bus and calibrate its motors"`
	Scan  ScanCommand  `command:"scan" description:"List serial ports and the servo IDs on them"`
	Info  InfoCommand  `command:"info" description:"Show configuration and live state of every motor"`
	Play  PlayCommand  `command:"play" description:"Play a trajectory on the configured motors"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "dxlmotion - servo motion control CLI"
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		if err := log.Init(opts.LogLevel, opts.LogFile); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
		}
		defer log.Sync()
		if cmd == nil {
			return nil
		}
		return cmd.Execute(args)
	}

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}

// loadConfig reads the configuration named by --config.
func loadConfig() (*robot.Config, error) {
	if !robot.ConfigExists(opts.Config) {
		return nil, fmt.Errorf("no configuration at %s, run 'dxlmotion setup' first", opts.Config)
	}
	cfg, err := robot.LoadConfigFrom(opts.Config)
	if err != nil {
		return nil, err
	}
	log.L().Debugw("loaded config", "path", opts.Config, "motors", len(cfg.Motors))
	return cfg, nil
}
