package preprocessing

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/plantops/forgeml/core/random"
	"github.com/plantops/forgeml/pkg/errors"
)

// MinRows is the minimum number of clean rows required to train.
const MinRows = 10

// Row is one raw record keyed by column name.
type Row map[string]any

// Columns names the target and the ordered feature columns.
// The feature order is fixed for the lifetime of every model built from it.
type Columns struct {
	Target   string
	Features []string
}

// Dataset is the cleaned, shuffled and split training data.
type Dataset struct {
	XTrain *mat.Dense
	YTrain *mat.VecDense
	XTest  *mat.Dense
	YTest  *mat.VecDense

	// XAll/YAll は分割前のシャッフル済み全データ（交差検証用）
	XAll *mat.Dense
	YAll *mat.VecDense

	// Total is the number of raw rows, Dropped how many were discarded.
	Total   int
	Dropped int
}

// Rows returns the number of clean rows.
func (d *Dataset) Rows() int {
	n, _ := d.XAll.Dims()
	return n
}

// ParseValue converts a raw cell to a finite float64.
// 数値型、json.Number、前後の空白を許容する数値文字列を受け付ける。
func ParseValue(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int8:
		f = float64(x)
	case int16:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint8:
		f = float64(x)
	case uint16:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Clean keeps the rows whose target and every feature parse to a finite
// number, in input order. Fewer than MinRows clean rows is an
// InsufficientDataError carrying the actual count.
func Clean(rows []Row, cols Columns) (*mat.Dense, *mat.VecDense, error) {
	p := len(cols.Features)
	if p == 0 {
		return nil, nil, errors.NewValidationError("features", "at least one feature is required", cols.Features)
	}

	data := make([]float64, 0, len(rows)*p)
	target := make([]float64, 0, len(rows))
	values := make([]float64, p)
	for _, row := range rows {
		yv, ok := ParseValue(row[cols.Target])
		if !ok {
			continue
		}
		clean := true
		for j, name := range cols.Features {
			v, ok := ParseValue(row[name])
			if !ok {
				clean = false
				break
			}
			values[j] = v
		}
		if !clean {
			continue
		}
		data = append(data, values...)
		target = append(target, yv)
	}

	n := len(target)
	if n < MinRows {
		return nil, nil, errors.NewInsufficientDataError(n, MinRows)
	}
	if dropped := len(rows) - n; dropped > 0 {
		errors.Warn(errors.NewDroppedRowsWarning(len(rows), dropped))
	}
	return mat.NewDense(n, p, data), mat.NewVecDense(n, target), nil
}

// Shuffle permutes the rows of X and y in place with a Fisher–Yates shuffle
// driven by rng.
func Shuffle(X *mat.Dense, y *mat.VecDense, rng *random.LCG) {
	n, p := X.Dims()
	tmp := make([]float64, p)
	rng.Shuffle(n, func(i, j int) {
		if i == j {
			return
		}
		ri, rj := X.RawRowView(i), X.RawRowView(j)
		copy(tmp, ri)
		copy(ri, rj)
		copy(rj, tmp)

		yi, yj := y.AtVec(i), y.AtVec(j)
		y.SetVec(i, yj)
		y.SetVec(j, yi)
	})
}

// SplitIndex returns the number of training rows for testSplit.
func SplitIndex(n int, testSplit float64) int {
	return int(math.Floor(float64(n) * (1 - testSplit)))
}

// Split partitions X and y at ⌊n·(1−testSplit)⌋: the leading rows train,
// the rest test. The training partition needs at least 2 rows and the test
// partition at least 1.
func Split(X *mat.Dense, y *mat.VecDense, testSplit float64) (XTrain *mat.Dense, yTrain *mat.VecDense, XTest *mat.Dense, yTest *mat.VecDense, err error) {
	if !(testSplit > 0 && testSplit < 1) {
		return nil, nil, nil, nil, errors.NewValidationError("test_split", "must be in (0, 1)", testSplit)
	}
	n, p := X.Dims()
	k := SplitIndex(n, testSplit)
	if k < 2 || n-k < 1 {
		return nil, nil, nil, nil, errors.NewValidationError("test_split",
			"leaves fewer than 2 training rows or no test rows", testSplit)
	}

	XTrain = mat.DenseCopyOf(X.Slice(0, k, 0, p))
	XTest = mat.DenseCopyOf(X.Slice(k, n, 0, p))
	yTrain = mat.NewVecDense(k, nil)
	yTrain.CopyVec(y.SliceVec(0, k))
	yTest = mat.NewVecDense(n-k, nil)
	yTest.CopyVec(y.SliceVec(k, n))
	return XTrain, yTrain, XTest, yTest, nil
}

// Prepare cleans, shuffles (seed 42) and splits rows.
func Prepare(rows []Row, cols Columns, testSplit float64) (*Dataset, error) {
	X, y, err := Clean(rows, cols)
	if err != nil {
		return nil, err
	}
	Shuffle(X, y, random.NewLCG(random.DefaultSeed))

	XTrain, yTrain, XTest, yTest, err := Split(X, y, testSplit)
	if err != nil {
		return nil, err
	}
	n, _ := X.Dims()
	return &Dataset{
		XTrain:  XTrain,
		YTrain:  yTrain,
		XTest:   XTest,
		YTest:   yTest,
		XAll:    X,
		YAll:    y,
		Total:   len(rows),
		Dropped: len(rows) - n,
	}, nil
}
