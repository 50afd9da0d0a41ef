// Command forgeml trains regression models from CSV data, predicts with
// stored models and serves both over HTTP.
//
// Usage:
//
//	forgeml train   -data plant.csv -target yield_pct[,tap_temp] [-features a,b] [-models linear,gbm]
//	forgeml predict -id <model-id> -values '{"oxygen_flow": 21.5, "power_mwh": 98}'
//	forgeml serve   [-config forgeml.yaml]
//
// train and predict write JSON lines to stdout; logs go to stderr or to the
// file configured under log.file.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/plantops/forgeml/internal/config"
	"github.com/plantops/forgeml/pkg/log"
)

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "train":
		err = runTrain(os.Args[2:], os.Stdout)
	case "predict":
		err = runPredict(os.Args[2:], os.Stdin, os.Stdout)
	case "serve":
		err = runServe(os.Args[2:])
	case "-h", "--help", "help":
		usage(os.Stdout)
		return
	default:
		usage(os.Stderr)
		os.Exit(2)
	}
	if err != nil {
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: forgeml <train|predict|serve> [flags]")
}

// setup loads the configuration and installs the logger it describes.
// The returned closer releases the log file, if any.
func setup(path, level string) (*config.Config, io.Closer, error) {
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, nil, err
	}
	if level != "" {
		cfg.Log.Level = level
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
	}

	var (
		w      io.Writer = os.Stderr
		closer io.Closer = io.NopCloser(nil)
	)
	if cfg.Log.File != "" {
		rw := log.NewRotatingWriter(cfg.Log.File, cfg.Log.MaxSizeMB, cfg.Log.MaxBackups)
		w, closer = rw, rw
	}
	log.SetProvider(log.NewZerologProvider(log.ToLogLevel(cfg.Log.Level), w))
	if path != "" {
		log.GetLoggerWithName("cli").Debug("configuration loaded", log.ConfigPathKey, path)
	}
	return cfg, closer, nil
}
