package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/plantops/forgeml/pkg/errors"
)

// ModelMetrics はテストデータ上の回帰評価指標
// すべての値は有限であることが保証される（非有限値は0に置き換える）
type ModelMetrics struct {
	RMSE     float64 `json:"rmse"`
	MAE      float64 `json:"mae"`
	R2       float64 `json:"r2"`
	MAPE     float64 `json:"mape"`
	Accuracy float64 `json:"accuracy"`
}

// CVMetrics は交差検証の各フォールドの指標の平均と母標準偏差
type CVMetrics struct {
	Mean  ModelMetrics `json:"mean"`
	Std   ModelMetrics `json:"std"`
	Folds int          `json:"folds"`
}

func checkInputs(op string, yTrue, yPred *mat.VecDense) (int, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkInputs("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	// MSE = (1/n) * Σ(yTrue - yPred)²
	var sum float64
	for i := 0; i < n; i++ {
		diff := yTrue.AtVec(i) - yPred.AtVec(i)
		sum += diff * diff
	}
	return sum / float64(n), nil
}

// RMSE は平方根平均二乗誤差（Root Mean Squared Error）を計算する
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkInputs("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	// MAE = (1/n) * Σ|yTrue - yPred|
	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(yTrue.AtVec(i) - yPred.AtVec(i))
	}
	return sum / float64(n), nil
}

// R2Score は決定係数（R²）を計算する
//
// 結果は [0, 1] に切り詰められる（負の値は0）。yTrueに分散がない場合は
// UndefinedMetricWarning を発生させて0を返す。
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkInputs("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	yMean := mat.Sum(yTrue) / float64(n)

	// 全変動（TSS）と残差変動（RSS）を計算
	var tss, rss float64
	for i := 0; i < n; i++ {
		yTrueVal := yTrue.AtVec(i)
		yPredVal := yPred.AtVec(i)
		tss += (yTrueVal - yMean) * (yTrueVal - yMean)
		rss += (yTrueVal - yPredVal) * (yTrueVal - yPredVal)
	}

	// 全変動が0の場合（すべてのyTrueが同じ値）
	if tss == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("r2", "no variance in y_true", 0))
		return 0, nil
	}
	return math.Max(0, 1-rss/tss), nil
}

// MAPE は平均絶対パーセンテージ誤差を計算する
//
// 実測値が0の行は分子から除外するが、分母は全行数 n のまま
// （0を含むデータではMAPEが小さめに出る。既存の評価結果との互換性のため維持）。
func MAPE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkInputs("MAPE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		yTrueVal := yTrue.AtVec(i)
		if yTrueVal != 0 {
			sum += math.Abs((yTrueVal - yPred.AtVec(i)) / yTrueVal)
		}
	}
	return sum / float64(n) * 100, nil
}

// Accuracy は 100 − MAPE を [0, 100] に切り詰めた値
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	mape, err := MAPE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return accuracyFrom(mape), nil
}

// accuracyFrom clamps 100 − mape to [0, 100] before sanitizing, so an
// overflowing MAPE gives 0 rather than a perfect score.
func accuracyFrom(mape float64) float64 {
	return errors.Sanitize(errors.ClipValue(100-mape, 0, 100))
}

// Evaluate は5つの評価指標をまとめて計算する
func Evaluate(yTrue, yPred *mat.VecDense) (ModelMetrics, error) {
	rmse, err := RMSE(yTrue, yPred)
	if err != nil {
		return ModelMetrics{}, err
	}
	mae, err := MAE(yTrue, yPred)
	if err != nil {
		return ModelMetrics{}, err
	}
	r2, err := R2Score(yTrue, yPred)
	if err != nil {
		return ModelMetrics{}, err
	}
	mape, err := MAPE(yTrue, yPred)
	if err != nil {
		return ModelMetrics{}, err
	}
	return ModelMetrics{
		RMSE:     rmse,
		MAE:      mae,
		R2:       r2,
		MAPE:     mape,
		Accuracy: accuracyFrom(mape),
	}.Sanitized(), nil
}

// Sanitized は非有限値を0に置き換えたコピーを返す
func (m ModelMetrics) Sanitized() ModelMetrics {
	return ModelMetrics{
		RMSE:     errors.Sanitize(m.RMSE),
		MAE:      errors.Sanitize(m.MAE),
		R2:       errors.Sanitize(m.R2),
		MAPE:     errors.Sanitize(m.MAPE),
		Accuracy: errors.Sanitize(m.Accuracy),
	}
}

func (m ModelMetrics) values() [5]float64 {
	return [5]float64{m.RMSE, m.MAE, m.R2, m.MAPE, m.Accuracy}
}

func fromValues(v [5]float64) ModelMetrics {
	return ModelMetrics{RMSE: v[0], MAE: v[1], R2: v[2], MAPE: v[3], Accuracy: v[4]}.Sanitized()
}

// Summarize は各フォールドの指標の平均と母標準偏差を計算する
func Summarize(folds []ModelMetrics) (CVMetrics, error) {
	n := len(folds)
	if n == 0 {
		return CVMetrics{}, errors.NewValueError("Summarize", "no folds")
	}

	var mean, std [5]float64
	col := make([]float64, n)
	for k := 0; k < 5; k++ {
		for i, f := range folds {
			col[i] = f.values()[k]
		}
		mu := stat.Mean(col, nil)
		ss := 0.0
		for _, v := range col {
			ss += (v - mu) * (v - mu)
		}
		mean[k] = mu
		std[k] = math.Sqrt(ss / float64(n))
	}
	return CVMetrics{Mean: fromValues(mean), Std: fromValues(std), Folds: n}, nil
}
