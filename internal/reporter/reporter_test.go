package reporter

import (
	"bytes"
	"strings"
	"testing"

	"paper-quant-bot-go/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestMonteCarloReportShowsPercentReturns(t *testing.T) {
	var buf bytes.Buffer
	PrintMonteCarloReport(&buf, &models.MonteCarloResult{
		Simulations:       500,
		MedianReturn:      3.21,
		ProfitProbability: 0.64,
		Confidence:        0.95,
		PercentileLow:     -8.5,
		PercentileHigh:    12.4,
	})

	out := buf.String()
	// The distribution values are percent returns, not account currency.
	assert.Contains(t, out, "3.21%")
	assert.Contains(t, out, "-8.50%")
	assert.Contains(t, out, "12.40%")
	assert.False(t, strings.Contains(out, "USDT"))
}
