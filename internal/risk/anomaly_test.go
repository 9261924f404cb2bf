package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bobmcallan/argus/internal/models"
)

// flatBarsWithJump builds n quiet days (alternating +1%/-1%) with a single
// +50% close on the day at jumpIndex.
func flatBarsWithJump(n, jumpIndex int) []models.EODBar {
	closes := make([]float64, n)
	price := 100.0
	for i := 0; i < n; i++ {
		if i > 0 {
			if i%2 == 0 {
				price *= 1.01
			} else {
				price *= 0.99
			}
		}
		closes[i] = price
	}
	if jumpIndex > 0 && jumpIndex < n {
		closes[jumpIndex] = closes[jumpIndex-1] * 1.5
		// settle back so only one day carries the jump upward
		for i := jumpIndex + 1; i < n; i++ {
			closes[i] = closes[jumpIndex]
		}
	}
	return generateBars(closes)
}

func TestDetectEmptyAndDegenerateInput(t *testing.T) {
	d := NewAnomalyDetector()

	tests := []struct {
		name string
		bars []models.EODBar
	}{
		{name: "nil series", bars: nil},
		{name: "empty series", bars: []models.EODBar{}},
		{name: "single bar", bars: generateBars([]float64{100})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := d.Detect(tt.bars)
			assert.NotNil(t, report)
			assert.Empty(t, report.Flags)
			assert.Equal(t, 0.0, report.AnomalyScore)
		})
	}
}

func TestDetectMajorPriceGap(t *testing.T) {
	d := NewAnomalyDetector()

	// Quiet series except one +50% day. The jump must be flagged with
	// severity 5.0 (|0.5| * 10).
	report := d.Detect(flatBarsWithJump(30, 15))

	var gaps []models.AnomalyFlag
	for _, f := range report.Flags {
		if f.Type == models.AnomalyPriceGap {
			gaps = append(gaps, f)
		}
	}

	assert.NotEmpty(t, gaps)

	var major *models.AnomalyFlag
	for i := range gaps {
		if gaps[i].Severity > 4.9 {
			major = &gaps[i]
		}
	}
	if assert.NotNil(t, major, "the +50%% day must produce a severity-5 flag") {
		assert.InDelta(t, 5.0, major.Severity, 0.01)
		assert.Contains(t, major.Description, "Major price change")
	}

	assert.GreaterOrEqual(t, report.AnomalyScore, 5.0)
}

func TestDetectQuietSeriesHasNoMajorFlags(t *testing.T) {
	d := NewAnomalyDetector()

	report := d.Detect(flatBarsWithJump(30, 0))

	for _, f := range report.Flags {
		assert.NotContains(t, f.Description, "Major price change")
	}
}

func TestDetectSigmaOutlierNeedsEnoughSamples(t *testing.T) {
	d := NewAnomalyDetector()

	// 6 bars: below the 10-sample floor, so a 10% move (under the 15%
	// absolute threshold) must not be flagged as a sigma outlier.
	bars := generateBars([]float64{100, 100.1, 100, 100.1, 100, 110})
	report := d.Detect(bars)

	for _, f := range report.Flags {
		assert.NotEqual(t, models.AnomalyPriceGap, f.Type)
	}
}

func TestDetectVolumeSpike(t *testing.T) {
	d := NewAnomalyDetector()

	bars := generateBars([]float64{100, 101, 100, 101, 100, 101, 100, 101, 100, 101})
	// One day at 10x the baseline volume
	bars[5].Volume = 10_000_000

	report := d.Detect(bars)

	var spike *models.AnomalyFlag
	for i := range report.Flags {
		if report.Flags[i].Type == models.AnomalyVolumeSpike {
			spike = &report.Flags[i]
		}
	}
	if assert.NotNil(t, spike) {
		assert.Equal(t, bars[5].Date, spike.Date)
		assert.Greater(t, spike.Severity, 0.0)
	}
}

func TestDetectBearishPattern(t *testing.T) {
	d := NewAnomalyDetector()

	// Strictly declining closes: every 5-day window holds 5 down days.
	report := d.Detect(generateBars([]float64{100, 99, 98, 97, 96, 95, 94}))

	var bearish []models.AnomalyFlag
	for _, f := range report.Flags {
		if f.Type == models.AnomalyBearishPattern {
			bearish = append(bearish, f)
		}
	}

	// At most one bearish flag per report, anchored at the densest window.
	if assert.Len(t, bearish, 1) {
		assert.InDelta(t, 10.0, bearish[0].Severity, 0.01) // 5 down days * 2
	}
}

func TestDetectBearishPatternOnMinimalSeries(t *testing.T) {
	d := NewAnomalyDetector()

	// Exactly five bars, four of them down: the single complete window must
	// still be evaluated.
	report := d.Detect(generateBars([]float64{100, 99, 98, 97, 96}))

	var bearish []models.AnomalyFlag
	for _, f := range report.Flags {
		if f.Type == models.AnomalyBearishPattern {
			bearish = append(bearish, f)
		}
	}

	if assert.Len(t, bearish, 1) {
		assert.InDelta(t, 8.0, bearish[0].Severity, 0.01) // 4 down days * 2
		assert.Contains(t, bearish[0].Description, "4 down days")
	}
}

func TestDetectNoBearishPatternOnUptrend(t *testing.T) {
	d := NewAnomalyDetector()

	report := d.Detect(generateBars([]float64{100, 101, 102, 103, 104, 105, 106}))

	for _, f := range report.Flags {
		assert.NotEqual(t, models.AnomalyBearishPattern, f.Type)
	}
}

func TestDetectSortsUnorderedBars(t *testing.T) {
	d := NewAnomalyDetector()

	bars := generateBars([]float64{100, 99, 98, 97, 96, 95})
	// Shuffle: reverse the slice
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}

	report := d.Detect(bars)

	// Series comes back chronological regardless of input order
	for i := 1; i < len(report.Series); i++ {
		assert.True(t, report.Series[i-1].Date.Before(report.Series[i].Date))
	}
}

func TestScoreFlags(t *testing.T) {
	now := time.Now()
	flag := func(sev float64) models.AnomalyFlag {
		return models.AnomalyFlag{Type: models.AnomalyPriceGap, Date: now, Severity: sev}
	}

	tests := []struct {
		name     string
		flags    []models.AnomalyFlag
		expected float64
	}{
		{name: "no flags", flags: nil, expected: 0},
		{name: "single flag is its severity", flags: []models.AnomalyFlag{flag(4)}, expected: 4},
		{name: "max severity wins", flags: []models.AnomalyFlag{flag(2), flag(7), flag(3)}, expected: 7},
		{
			name:     "more than three flags scales up",
			flags:    []models.AnomalyFlag{flag(5), flag(1), flag(1), flag(1), flag(1)},
			expected: 5 * 1.2, // 2 extra flags, +10% each
		},
		{
			name:     "scaling caps at 10",
			flags:    []models.AnomalyFlag{flag(9.5), flag(9), flag(9), flag(9), flag(9), flag(9)},
			expected: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, scoreFlags(tt.flags), 0.001)
		})
	}
}

func TestCleanStdDevIgnoresOutliers(t *testing.T) {
	// 19 small returns and one huge outlier; the IQR fence must drop the
	// outlier so the clean sigma stays near the quiet-regime sigma.
	returns := make([]float64, 0, 20)
	for i := 0; i < 19; i++ {
		if i%2 == 0 {
			returns = append(returns, 0.01)
		} else {
			returns = append(returns, -0.01)
		}
	}
	returns = append(returns, 0.5)

	sigma := cleanStdDev(returns)
	assert.Greater(t, sigma, 0.0)
	assert.Less(t, sigma, 0.02)
}
