package openai

import (
	"sort"
	"strings"

	"github.com/cloo-solutions/ragpipe/internal/domain"
)

// Price is the USD price per 1K tokens.
type Price struct {
	Input  float64
	Output float64
}

var prices = map[string]Price{
	"gpt-3.5-turbo":          {Input: 0.0015, Output: 0.002},
	"gpt-4o-mini":            {Input: 0.00015, Output: 0.0006},
	"gpt-4o":                 {Input: 0.0025, Output: 0.01},
	"gpt-4-turbo":            {Input: 0.01, Output: 0.03},
	"gpt-4":                  {Input: 0.03, Output: 0.06},
	"text-embedding-ada-002": {Input: 0.0001},
	"text-embedding-3-small": {Input: 0.00002},
	"text-embedding-3-large": {Input: 0.00013},
}

// longest first so "gpt-4o-mini" wins over "gpt-4o" and "gpt-4".
var priceKeys = func() []string {
	keys := make([]string, 0, len(prices))
	for k := range prices {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}()

// PriceFor looks up a model, accepting dated variants such as
// gpt-3.5-turbo-0125.
func PriceFor(model string) (Price, bool) {
	if p, ok := prices[model]; ok {
		return p, true
	}
	for _, k := range priceKeys {
		if strings.HasPrefix(model, k) {
			return prices[k], true
		}
	}
	return Price{}, false
}

// CompletionCost prices a completion. Unknown models cost 0.
func CompletionCost(model string, usage domain.TokenUsage) float64 {
	p, ok := PriceFor(model)
	if !ok {
		return 0
	}
	return float64(usage.PromptTokens)/1000*p.Input + float64(usage.CompletionTokens)/1000*p.Output
}

// EmbeddingCost prices embedding the given number of tokens.
func EmbeddingCost(model string, tokens int) float64 {
	p, ok := PriceFor(model)
	if !ok {
		return 0
	}
	return float64(tokens) / 1000 * p.Input
}
