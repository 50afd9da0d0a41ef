package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"strings"

	"github.com/plantops/forgeml/core/model"
	"github.com/plantops/forgeml/pkg/errors"
	"github.com/plantops/forgeml/storage"
	"github.com/plantops/forgeml/trainer"
)

type predictOutput struct {
	Prediction *float64 `json:"prediction,omitempty"`
	Error      string   `json:"error,omitempty"`
}

func runPredict(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("predict", flag.ContinueOnError)
	var (
		configPath = fs.String("config", "", "YAML configuration file")
		storePath  = fs.String("store", "", "SQLite database (default: storage.path)")
		id         = fs.String("id", "", "stored model ID")
		modelPath  = fs.String("model", "", "model artifact JSON file, instead of -id")
		values     = fs.String("values", "", "JSON object of feature values (default: read stdin)")
		level      = fs.String("log-level", "", "log level override")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	pred, err := predict(*configPath, *storePath, *id, *modelPath, *values, *level, stdin)
	if err != nil {
		_ = enc.Encode(predictOutput{Error: err.Error()})
		return err
	}
	return enc.Encode(predictOutput{Prediction: &pred})
}

func predict(configPath, storePath, id, modelPath, values, level string, stdin io.Reader) (float64, error) {
	cfg, closer, err := setup(configPath, level)
	if err != nil {
		return 0, err
	}
	defer closer.Close()

	var p *trainer.Predictor
	switch {
	case modelPath != "":
		var tm trainer.TrainedModel
		if err := model.LoadJSON(modelPath, &tm); err != nil {
			return 0, err
		}
		if p, err = trainer.NewPredictor(&tm); err != nil {
			return 0, err
		}
	case id != "":
		store, err := storage.OpenSQLite(firstNonEmpty(storePath, cfg.Storage.Path))
		if err != nil {
			return 0, err
		}
		defer store.Close()
		data, err := store.Load(context.Background(), id)
		if err != nil {
			return 0, err
		}
		if p, err = trainer.Reconstruct(data); err != nil {
			return 0, err
		}
	default:
		return 0, errors.NewValidationError("args", "-id or -model is required", nil)
	}

	var r io.Reader = stdin
	if values != "" {
		r = strings.NewReader(values)
	}
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var in map[string]any
	if err := dec.Decode(&in); err != nil {
		return 0, errors.Wrap(err, "decode feature values")
	}
	return p.PredictValues(in)
}
