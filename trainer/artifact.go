package trainer

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/plantops/forgeml/metrics"
	"github.com/plantops/forgeml/pkg/errors"
	"github.com/plantops/forgeml/preprocessing"
	"github.com/plantops/forgeml/sklearn/inspection"
)

// modelNamespace scopes the name-based model IDs.
var modelNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://plantops.dev/forgeml/models"))

// TrainedModel is the durable, JSON-serializable form of one fitted model.
//
// Params holds the structural representation for Type: linear coefficients,
// an extra-trees forest or a gradient boosting stump list. Scaler is only set
// for linear models.
type TrainedModel struct {
	ID          string                         `json:"id"`
	Type        ModelKind                      `json:"type"`
	Target      string                         `json:"target"`
	Features    []string                       `json:"features"`
	Metrics     metrics.ModelMetrics           `json:"metrics"`
	CVMetrics   *metrics.CVMetrics             `json:"cv_metrics,omitempty"`
	Importances []inspection.FeatureImportance `json:"feature_importances"`
	Params      json.RawMessage                `json:"params"`
	Scaler      *preprocessing.ScalerState     `json:"scaler,omitempty"`
	Config      Config                         `json:"config"`
	TrainRows   int                            `json:"train_rows"`
	TestRows    int                            `json:"test_rows"`
}

// modelID derives a deterministic identity from the model's inputs and its
// fitted parameters, so retraining on different data yields a new ID.
func modelID(kind ModelKind, cfg Config, rows int, params json.RawMessage, scaler *preprocessing.ScalerState) (string, error) {
	var scalerJSON []byte
	if scaler != nil {
		var err error
		if scalerJSON, err = json.Marshal(scaler); err != nil {
			return "", errors.Wrap(err, "encode scaler state")
		}
	}
	name := strings.Join([]string{
		string(kind),
		cfg.Target,
		strings.Join(cfg.Features, ","),
		strconv.FormatFloat(cfg.TestSplit, 'g', -1, 64),
		strconv.Itoa(rows),
		string(params),
		string(scalerJSON),
	}, "|")
	return uuid.NewSHA1(modelNamespace, []byte(name)).String(), nil
}

// Marshal returns the JSON encoding of m.
func (m *TrainedModel) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// TopImportances returns at most n importances, highest first.
func (m *TrainedModel) TopImportances(n int) []inspection.FeatureImportance {
	if n < 0 || n > len(m.Importances) {
		n = len(m.Importances)
	}
	return m.Importances[:n]
}

// Decode parses a serialized TrainedModel. Malformed data is ErrInvalidArtifact.
func Decode(data []byte, m *TrainedModel) error {
	if err := json.Unmarshal(data, m); err != nil {
		return errors.Mark(errors.Wrap(err, "decode model artifact"), errors.ErrInvalidArtifact)
	}
	return nil
}
