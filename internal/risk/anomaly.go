// Package risk implements the multi-factor instrument risk pipeline:
// statistical anomaly detection, quantitative scoring, ESG mapping, oracle
// sentiment, weighted aggregation and streaming delivery.
package risk

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/bobmcallan/argus/internal/models"
)

// Anomaly detection thresholds
const (
	majorReturnThreshold = 0.15 // absolute daily return, always flagged
	sigmaMultiplier      = 3.0  // moderate outliers beyond 3 clean sigmas
	iqrFence             = 1.5  // IQR fence for the clean subset
	minSamplesForSigma   = 10   // below this, only the absolute threshold applies
	volumeSpikeSigmas    = 2.0
	bearishWindow        = 5
	bearishMinDownDays   = 4
	maxFlagsBeforeScale  = 3
)

// AnomalyDetector runs statistical outlier and pattern detection over a
// price/volume series. It is a pure function over its input: any degenerate
// input yields an empty report, never an error.
type AnomalyDetector struct{}

// NewAnomalyDetector creates a new detector
func NewAnomalyDetector() *AnomalyDetector {
	return &AnomalyDetector{}
}

// Detect analyzes the series and returns an AnomalyReport. Bars may arrive in
// any order; they are sorted chronologically before analysis.
func (d *AnomalyDetector) Detect(bars []models.EODBar) *models.AnomalyReport {
	report := &models.AnomalyReport{
		Flags:     []models.AnomalyFlag{},
		UpdatedAt: time.Now(),
	}
	if len(bars) < 2 {
		return report
	}

	series := make([]models.EODBar, len(bars))
	copy(series, bars)
	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })

	returns := dailyReturns(series)

	report.Flags = append(report.Flags, d.priceGapFlags(series, returns)...)
	report.Flags = append(report.Flags, d.volumeSpikeFlags(series)...)
	report.Flags = append(report.Flags, d.bearishRunFlags(series)...)

	report.AnomalyScore = scoreFlags(report.Flags)
	report.Series = toPricePoints(series)

	return report
}

// dailyReturns computes close-to-close percentage returns, chronological.
// Index i of the result corresponds to bar i+1 of the series.
func dailyReturns(series []models.EODBar) []float64 {
	returns := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		prev := series[i-1].Close
		if prev == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (series[i].Close-prev)/prev)
	}
	return returns
}

// priceGapFlags flags major outliers on the absolute threshold and, with
// enough samples, moderate outliers beyond 3 sigmas of the IQR-cleaned series.
func (d *AnomalyDetector) priceGapFlags(series []models.EODBar, returns []float64) []models.AnomalyFlag {
	sigmaClean := cleanStdDev(returns)

	var flags []models.AnomalyFlag
	for i, r := range returns {
		abs := math.Abs(r)
		bar := series[i+1]

		switch {
		case abs > majorReturnThreshold:
			flags = append(flags, models.AnomalyFlag{
				Type:        models.AnomalyPriceGap,
				Date:        bar.Date,
				Description: fmt.Sprintf("Major price change of %.1f%% in one day", r*100),
				Severity:    math.Min(10, abs*10),
			})
		case sigmaClean > 0 && abs > sigmaMultiplier*sigmaClean:
			flags = append(flags, models.AnomalyFlag{
				Type:        models.AnomalyPriceGap,
				Date:        bar.Date,
				Description: fmt.Sprintf("Statistically unusual move of %.1f%% (beyond 3 sigma)", r*100),
				Severity:    math.Min(10, abs*10),
			})
		}
	}
	return flags
}

// cleanStdDev returns the standard deviation of the return series after
// dropping points outside the 1.5*IQR fences. Returns 0 when the sample is
// too small for a robust estimate.
func cleanStdDev(returns []float64) float64 {
	if len(returns) < minSamplesForSigma {
		return 0
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	q1 := stat.Quantile(0.25, stat.Empirical, sorted, nil)
	q3 := stat.Quantile(0.75, stat.Empirical, sorted, nil)
	iqr := q3 - q1
	lo := q1 - iqrFence*iqr
	hi := q3 + iqrFence*iqr

	clean := make([]float64, 0, len(returns))
	for _, r := range returns {
		if r >= lo && r <= hi {
			clean = append(clean, r)
		}
	}
	if len(clean) < 2 {
		return 0
	}

	return stat.StdDev(clean, nil)
}

// volumeSpikeFlags flags days where volume exceeds mean + 2*stddev.
func (d *AnomalyDetector) volumeSpikeFlags(series []models.EODBar) []models.AnomalyFlag {
	volumes := make([]float64, len(series))
	for i, bar := range series {
		volumes[i] = float64(bar.Volume)
	}

	mean := stat.Mean(volumes, nil)
	if mean == 0 || len(volumes) < 2 {
		return nil
	}
	std := stat.StdDev(volumes, nil)
	threshold := mean + volumeSpikeSigmas*std

	var flags []models.AnomalyFlag
	for _, bar := range series {
		v := float64(bar.Volume)
		if v > threshold {
			ratio := v / mean
			flags = append(flags, models.AnomalyFlag{
				Type:        models.AnomalyVolumeSpike,
				Date:        bar.Date,
				Description: fmt.Sprintf("Volume %.1fx the period average", ratio),
				Severity:    math.Min(10, (ratio-1)/2),
			})
		}
	}
	return flags
}

// bearishRunFlags emits at most one flag for a concentration of down-days in
// a rolling window, anchored at the end of the densest window.
func (d *AnomalyDetector) bearishRunFlags(series []models.EODBar) []models.AnomalyFlag {
	if len(series) < bearishWindow {
		return nil
	}

	down := make([]int, len(series))
	for i := 1; i < len(series); i++ {
		if series[i].Close < series[i-1].Close {
			down[i] = 1
		}
	}

	maxDownDays := 0
	var endDate time.Time
	for i := bearishWindow - 1; i < len(series); i++ {
		count := 0
		for j := i - bearishWindow + 1; j <= i; j++ {
			count += down[j]
		}
		if count > maxDownDays {
			maxDownDays = count
			endDate = series[i].Date
		}
	}

	if maxDownDays < bearishMinDownDays {
		return nil
	}

	return []models.AnomalyFlag{{
		Type:        models.AnomalyBearishPattern,
		Date:        endDate,
		Description: fmt.Sprintf("%d down days within a %d-day window", maxDownDays, bearishWindow),
		Severity:    math.Min(10, float64(maxDownDays)*2),
	}}
}

// scoreFlags derives the anomaly score: the maximum flag severity, scaled up
// when more than three flags cluster together.
func scoreFlags(flags []models.AnomalyFlag) float64 {
	if len(flags) == 0 {
		return 0
	}

	maxSeverity := 0.0
	for _, f := range flags {
		if f.Severity > maxSeverity {
			maxSeverity = f.Severity
		}
	}

	score := maxSeverity
	if len(flags) > maxFlagsBeforeScale {
		score = math.Min(10, score*(1+0.1*float64(len(flags)-maxFlagsBeforeScale)))
	}
	return score
}

func toPricePoints(series []models.EODBar) []models.PricePoint {
	points := make([]models.PricePoint, len(series))
	for i, bar := range series {
		points[i] = models.PricePoint{Date: bar.Date, Close: bar.Close, Volume: bar.Volume}
	}
	return points
}
