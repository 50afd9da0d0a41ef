package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/plantops/forgeml/core/model"
	"github.com/plantops/forgeml/core/parallel"
	"github.com/plantops/forgeml/internal/protocol"
	"github.com/plantops/forgeml/pkg/errors"
	"github.com/plantops/forgeml/pkg/log"
	"github.com/plantops/forgeml/preprocessing"
	"github.com/plantops/forgeml/report"
	"github.com/plantops/forgeml/storage"
	"github.com/plantops/forgeml/trainer"
)

// lineWriter serializes JSON lines from concurrent runs.
type lineWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func (l *lineWriter) emit(v any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enc.Encode(v)
}

// targetMessage tags a message with its target when several targets run.
type targetMessage struct {
	Target  string `json:"target"`
	Message any    `json:"message"`
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func runTrain(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	var (
		configPath = fs.String("config", "", "YAML configuration file")
		dataPath   = fs.String("data", "", "CSV file with a header row")
		targets    = fs.String("target", "", "target column, or a comma-separated list")
		features   = fs.String("features", "", "feature columns (default: every other numeric column)")
		models     = fs.String("models", "", "model kinds (default: from configuration)")
		testSplit  = fs.Float64("test-split", 0, "held-out fraction (default: from configuration)")
		storePath  = fs.String("store", "", "SQLite database to save models in (default: storage.path, \"-\" to skip)")
		reportDir  = fs.String("report", "", "directory for the evaluation report")
		exportDir  = fs.String("export", "", "directory to write each model artifact to as <id>.json")
		level      = fs.String("log-level", "", "log level override")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	out := &lineWriter{enc: json.NewEncoder(stdout)}
	fail := func(err error) error {
		_ = out.emit(protocol.NewError(err))
		return err
	}

	cfg, closer, err := setup(*configPath, *level)
	if err != nil {
		return fail(err)
	}
	defer closer.Close()

	if *dataPath == "" || *targets == "" {
		return fail(errors.NewValidationError("args", "-data and -target are required", args))
	}
	f, err := os.Open(*dataPath)
	if err != nil {
		return fail(errors.Wrapf(err, "open %s", *dataPath))
	}
	rows, header, err := preprocessing.ReadCSV(f)
	f.Close()
	if err != nil {
		return fail(err)
	}

	targetList := splitList(*targets)
	featureList := splitList(*features)
	if len(featureList) == 0 {
		featureList = defaultFeatures(header, rows, targetList)
	}

	runs := make([]trainer.Config, len(targetList))
	for i, target := range targetList {
		runs[i] = cfg.TrainingFor(target, featureList)
		if *models != "" {
			runs[i].Models = splitList(*models)
		}
		if *testSplit != 0 {
			runs[i].TestSplit = *testSplit
		}
	}

	var store *storage.SQLiteStore
	if path := firstNonEmpty(*storePath, cfg.Storage.Path); path != "-" {
		if store, err = storage.OpenSQLite(path); err != nil {
			return fail(err)
		}
		defer store.Close()
	}
	reportTo := firstNonEmpty(*reportDir, cfg.Training.ReportDir)

	multi := len(runs) > 1
	results := make([][]*trainer.TrainedModel, len(runs))
	err = parallel.ForEach(context.Background(), len(runs), cfg.Training.Workers, func(ctx context.Context, i int) error {
		emit := out.emit
		if multi {
			target := runs[i].Target
			emit = func(v any) error { return out.emit(targetMessage{Target: target, Message: v}) }
		}

		logger := log.GetLoggerWithName("trainer").With(log.WorkerIDKey, i)
		job := trainer.Start(rows, runs[i], trainer.WithParams(cfg.Engine), trainer.WithLogger(logger))
		trained, err := protocol.Relay(job, emit)
		if err == nil && store != nil {
			err = store.SaveAll(ctx, trained)
		}
		if err == nil && *exportDir != "" {
			err = export(*exportDir, trained)
		}
		if err != nil {
			_ = emit(protocol.NewError(err))
			return errors.Wrapf(err, "target %s", runs[i].Target)
		}
		results[i] = trained
		return emit(protocol.NewResult(trained))
	})
	if err != nil {
		return err
	}

	if reportTo != "" {
		var all []*trainer.TrainedModel
		for _, r := range results {
			all = append(all, r...)
		}
		if _, err := report.WriteAll(reportTo, all); err != nil {
			return fail(err)
		}
	}
	return nil
}

// export writes each artifact to dir as <id>.json.
func export(dir string, models []*trainer.TrainedModel) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", dir)
	}
	for _, m := range models {
		if err := model.SaveJSON(m, filepath.Join(dir, m.ID+".json")); err != nil {
			return err
		}
	}
	return nil
}

// defaultFeatures returns the non-target columns that parse as a number in
// a majority of rows, in header order.
func defaultFeatures(header []string, rows []preprocessing.Row, targets []string) []string {
	skip := make(map[string]bool, len(targets))
	for _, t := range targets {
		skip[t] = true
	}
	var out []string
	for _, h := range header {
		if skip[h] {
			continue
		}
		numeric := 0
		for _, row := range rows {
			if _, ok := preprocessing.ParseValue(row[h]); ok {
				numeric++
			}
		}
		if numeric*2 > len(rows) {
			out = append(out, h)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
