// Package imagegen submits customer photos to an external AI stylization
// provider and tracks the resulting generation tasks until they produce
// final image URLs.
//
// variants.go holds the style variant catalog and the sampling primitive
// used to pick distinct variants for one generation batch.
package imagegen

import (
	"fmt"
	"math/rand"
)

// BasePrompt is the shared stylization prompt. Each batch appends a
// background variant to it for cosmetic variety between the results.
const BasePrompt = "Professional digital art portrait in a beautiful painterly style. " +
	"Artistic rendering with smooth brushstrokes, soft volume, and elegant lighting. " +
	"Expressive artistic eyes, simplified clothing with painterly textures. " +
	"A masterpiece of digital painting. Avoid photorealism."

// StyleVariant describes one background treatment for the portrait.
type StyleVariant string

// DefaultStyleVariants returns the built-in background catalog.
func DefaultStyleVariants() []StyleVariant {
	return []StyleVariant{
		"Pastel gradient with soft light",
		"Watercolor washes, light and airy",
		"Abstract brushstrokes",
		"Soft colored mist",
		"Canvas texture with light strokes",
	}
}

// BuildPrompt assembles the full generation prompt for a variant.
func BuildPrompt(variant StyleVariant) string {
	return fmt.Sprintf("%s Background: %s. Artistic, masterpiece, high quality.", BasePrompt, variant)
}

// SampleVariants picks k distinct variants from the catalog without
// replacement using the provided random source. The randomness only
// affects cosmetic variety; distinctness is guaranteed.
//
// Returns an error if the catalog holds fewer than k entries.
func SampleVariants(r *rand.Rand, catalog []StyleVariant, k int) ([]StyleVariant, error) {
	if k < 0 {
		return nil, fmt.Errorf("imagegen: sample size %d is negative", k)
	}
	if k > len(catalog) {
		return nil, fmt.Errorf("imagegen: cannot sample %d variants from a catalog of %d", k, len(catalog))
	}

	// Partial Fisher-Yates over a copy; the first k slots end up holding
	// the sample.
	pool := make([]StyleVariant, len(catalog))
	copy(pool, catalog)
	for i := 0; i < k; i++ {
		j := i + r.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k], nil
}
