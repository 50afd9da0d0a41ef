package linear

// Option is a function that configures LinearRegression
type Option func(*LinearRegression)

// WithRCond sets the relative cutoff below which singular values are treated
// as zero. Values <= 0 select machine epsilon times the larger dimension.
func WithRCond(rcond float64) Option {
	return func(lr *LinearRegression) {
		lr.rcond = rcond
	}
}

// WithParallelThreshold sets the row count above which the design matrix is
// assembled in parallel.
func WithParallelThreshold(rows int) Option {
	return func(lr *LinearRegression) {
		lr.parallelThreshold = rows
	}
}
