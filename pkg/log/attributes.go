// Package log defines standard attribute keys for forgeml training runs.
//
// Keys follow a hierarchical naming convention (e.g. "model.name",
// "data.samples") so that log lines from the trainer, the CLI and the HTTP
// server can be filtered the same way.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the model kind.
	// Examples: "linear", "random_forest", "gradient_boosting"
	ModelNameKey = "model.name"

	// EstimatorIDKey carries the artifact ID of a trained model.
	EstimatorIDKey = "estimator.id"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "score"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component is logging.
	// Examples: "trainer", "storage", "server"
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of a training run.
	PhaseKey = "ml.phase"

	// TargetKey names the target column of a training run.
	TargetKey = "model.target"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of rows.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of feature columns.
	FeaturesKey = "data.features"

	// DroppedKey is the number of rows discarded during preparation.
	DroppedKey = "data.dropped"

	// FoldKey is the zero-based cross-validation fold.
	FoldKey = "data.fold"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// AccuracyKey records the accuracy percentage of a regression model.
	AccuracyKey = "metrics.accuracy"

	// LossKey records RMSE or another loss value.
	LossKey = "metrics.loss"

	// R2ScoreKey records the coefficient of determination.
	R2ScoreKey = "metrics.r2_score"

	// IterationKey records a boosting round or tree index.
	IterationKey = "training.iteration"

	// ProgressKey records the overall progress percentage.
	ProgressKey = "training.progress"
)

// Error and Warning Context
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"

	// StacktraceKey contains stack trace information.
	// Populated automatically when an error is the first field.
	StacktraceKey = "error.stacktrace"

	// SuggestionKey provides a hint for resolving the issue.
	SuggestionKey = "error.suggestion"
)

// Hyperparameters and Configuration
const (
	LearningRateKey = "hyperparams.learning_rate"
	RandomSeedKey   = "config.random_seed"
	ConfigPathKey   = "config.path"
)

// Infrastructure
const (
	// AddrKey is the listen address of the HTTP server.
	AddrKey = "infra.addr"

	// WorkerIDKey identifies a concurrent training job.
	WorkerIDKey = "infra.worker_id"
)

// Standard attribute values.
const (
	OperationFit     = "fit"
	OperationPredict = "predict"
	OperationScore   = "score"

	PhasePreparation = "preparation"
	PhaseTraining    = "training"
	PhaseValidation  = "validation"
	PhaseImportance  = "importance"
	PhaseInference   = "inference"

	ErrorNotFitted         = "NOT_FITTED"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorInsufficientData  = "INSUFFICIENT_DATA"
	ErrorInvalidInput      = "INVALID_INPUT"
	ErrorInvalidArtifact   = "INVALID_ARTIFACT"
)
