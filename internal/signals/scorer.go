package signals

import (
	"regexp"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/aristath/harrier/internal/domain"
)

// minStrength is the qualification threshold: a signal is emitted only
// when its strength strictly exceeds it.
const minStrength = 0.6

// tickerPattern matches the first cashtag-shaped token in a text body.
var tickerPattern = regexp.MustCompile(`\$([A-Z]{2,10})\b`)

// keywordWeights maps sentiment keywords to their bullishness weight.
// Strength is the mean weight of the keywords present in the text, so a
// body of strongly bullish language qualifies while mixed or bearish
// language stays below the threshold.
var keywordWeights = map[string]float64{
	"surge":         0.90,
	"soar":          0.90,
	"all-time high": 0.95,
	"rally":         0.80,
	"breakout":      0.80,
	"bullish":       0.85,
	"moon":          0.75,
	"pump":          0.70,
	"adoption":      0.65,
	"partnership":   0.60,
	"upgrade":       0.60,
	"dip":           0.35,
	"bearish":       0.15,
	"selloff":       0.15,
	"dump":          0.10,
	"crash":         0.05,
	"exploit":       0.05,
	"hack":          0.05,
}

// scoreText computes the sentiment strength of a text body: the mean
// weight of all distinct keywords found, or 0 when none match.
func scoreText(text string) float64 {
	lower := strings.ToLower(text)

	var weights []float64
	for keyword, weight := range keywordWeights {
		if strings.Contains(lower, keyword) {
			weights = append(weights, weight)
		}
	}
	if len(weights) == 0 {
		return 0
	}

	return stat.Mean(weights, nil)
}

// extractSignal derives at most one signal from a text body. The body
// qualifies when its strength exceeds the threshold and it contains a
// cashtag; the first cashtag wins.
func extractSignal(text string) (domain.Signal, bool) {
	strength := scoreText(text)
	if strength <= minStrength {
		return domain.Signal{}, false
	}

	match := tickerPattern.FindStringSubmatch(text)
	if match == nil {
		return domain.Signal{}, false
	}

	return domain.Signal{Ticker: match[1], Strength: strength}, true
}
