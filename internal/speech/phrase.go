// Package speech turns predictions into sentences and reads them aloud.
package speech

import (
	"fmt"
	"strings"

	"github.com/Brownie44l1/currency-api/internal/model"
)

// DefaultNames are the spoken forms of the Indian rupee denominations the
// bundled model was trained on.
var DefaultNames = map[string]string{
	"2000_rupees": "two thousand Indian rupees",
	"500_rupees":  "five hundred Indian rupees",
	"200_rupees":  "two hundred Indian rupees",
	"100_rupees":  "one hundred Indian rupees",
	"50_rupees":   "fifty Indian rupees",
	"20_rupees":   "twenty Indian rupees",
	"10_rupees":   "ten Indian rupees",
}

const (
	noCurrencyDisplay = "No currency recognized"
	noCurrencySpeech  = "No currency detected"
)

type Phraser struct {
	names map[string]string
}

// NewPhraser merges extra spoken names over DefaultNames.
func NewPhraser(extra map[string]string) *Phraser {
	names := make(map[string]string, len(DefaultNames)+len(extra))
	for k, v := range DefaultNames {
		names[k] = v
	}
	for k, v := range extra {
		names[k] = v
	}
	return &Phraser{names: names}
}

// Name is how label should sound when spoken.
func (p *Phraser) Name(label string) string {
	if name, ok := p.names[label]; ok {
		return name
	}
	return strings.TrimSpace(strings.ReplaceAll(label, "_", " "))
}

// Display is the short status line shown alongside a result.
func (p *Phraser) Display(pred model.Prediction) string {
	if !pred.Recognized {
		return noCurrencyDisplay
	}
	return fmt.Sprintf("%s detected with %d%% confidence", pred.Label, pred.Percent())
}

// Speech is the sentence handed to the synthesizer.
func (p *Phraser) Speech(pred model.Prediction) string {
	if !pred.Recognized {
		return noCurrencySpeech
	}
	return fmt.Sprintf("%s, detected with %d percent confidence", p.Name(pred.Label), pred.Percent())
}
