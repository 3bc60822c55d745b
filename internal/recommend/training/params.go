// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

package training

import (
	"fmt"

	"github.com/tomtom215/contentrank/internal/validation"
)

// DefaultSeed is used when Params.Seed is zero.
const DefaultSeed = 42

// Params are the trainer's hyperparameters.
type Params struct {
	// Days is the lookback window for TrainFromSource. Zero means unbounded.
	Days int `koanf:"days" validate:"gte=0"`

	// Epochs is the number of passes over the weighted triple set.
	// Default: 10.
	Epochs int `koanf:"epochs" validate:"gte=1,lte=1000"`

	// EmbeddingDim is the width of user and item embeddings.
	// Default: 64.
	EmbeddingDim int `koanf:"embedding_dim" validate:"gte=2,lte=1024"`

	// ContentEmbeddingDim is the width of tag embeddings. The content term
	// uses the first ContentEmbeddingDim entries of the user vector, so it
	// must not exceed EmbeddingDim.
	// Default: 16.
	ContentEmbeddingDim int `koanf:"content_embedding_dim" validate:"gte=1,ltefield=EmbeddingDim"`

	// LearningRate is the SGD step size.
	// Default: 0.05.
	LearningRate float64 `koanf:"learning_rate" validate:"gt=0,lte=1"`

	// BatchSize is the number of weighted samples per mini-batch.
	// Default: 256.
	BatchSize int `koanf:"batch_size" validate:"gte=1,lte=1000000"`

	// Margin of the pairwise ranking loss.
	// Default: 1.0.
	Margin float64 `koanf:"margin" validate:"gt=0"`

	// DropoutRate is the embedding dropout probability.
	// Default: 0.1.
	DropoutRate float64 `koanf:"dropout_rate" validate:"gte=0,lt=1"`

	// WeightDecay is the L2 penalty applied on every update.
	// Default: 1e-4.
	WeightDecay float64 `koanf:"weight_decay" validate:"gte=0"`

	// Seed makes training deterministic. Zero uses DefaultSeed.
	Seed int64 `koanf:"seed"`
}

// DefaultParams returns the default hyperparameters.
func DefaultParams() Params {
	return Params{
		Epochs:              10,
		EmbeddingDim:        64,
		ContentEmbeddingDim: 16,
		LearningRate:        0.05,
		BatchSize:           256,
		Margin:              1.0,
		DropoutRate:         0.1,
		WeightDecay:         1e-4,
		Seed:                DefaultSeed,
	}
}

// Validate checks the parameters against their struct tags.
func (p Params) Validate() error {
	if err := validation.ValidateStruct(p); err != nil {
		return fmt.Errorf("invalid training parameters: %w", err)
	}
	return nil
}

func (p Params) seed() int64 {
	if p.Seed == 0 {
		return DefaultSeed
	}
	return p.Seed
}
