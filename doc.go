// Package forgeml trains regression models that predict production KPIs
// (yield, tap temperature, energy per tonne) from tabular plant data.
//
// One training session cleans and shuffles the rows once, then fits every
// requested model kind on the same split:
//
//   - linear: least-squares regression on standardized features
//   - random_forest: extremely-randomized trees
//   - gradient_boosting: boosted depth-1 regression stumps
//
// Each model is scored on the held-out rows, explained with permutation
// importance and cross-validated with 5 folds. The result is a
// self-contained JSON artifact that can be reconstructed for inference
// without retraining.
//
// # Quick Start
//
//	rows, _, err := preprocessing.ReadCSV(f)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	models, err := trainer.Train(rows, trainer.Config{
//	    Target:    "yield_pct",
//	    Features:  []string{"oxygen_flow", "power_mwh"},
//	    TestSplit: 0.2,
//	    Models:    []string{"linear", "gradient_boosting"},
//	}, trainer.WithProgress(func(p trainer.Progress) {
//	    fmt.Println(p.Label, p.Percent)
//	}))
//
//	data, _ := models[0].Marshal()
//	p, err := trainer.Reconstruct(data)
//	y, err := p.PredictValues(map[string]any{"oxygen_flow": 15, "power_mwh": 70})
//
// # Packages
//
//   - trainer: training sessions, artifacts, progress and reconstruction
//   - preprocessing: row cleaning, shuffling, splitting, CSV input, StandardScaler
//   - linear: LinearRegression
//   - sklearn/ensemble: DecisionStump, GradientBoostingRegressor, ExtraTreesRegressor
//   - sklearn/inspection: permutation importance
//   - sklearn/model_selection: KFold and cross-validation
//   - metrics: RMSE, MAE, R², MAPE, accuracy and fold summaries
//   - storage: SQLite artifact store and an LRU predictor cache
//   - report: CSV, text and PNG evaluation reports
//   - core/model, core/parallel, core/random: shared interfaces and helpers
//   - pkg/errors, pkg/log: error types and structured logging
//
// The forgeml command (cmd/forgeml) wraps these as the train, predict and
// serve subcommands.
package forgeml
