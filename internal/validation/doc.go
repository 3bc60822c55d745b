// Contentrank - Fallback-Resilient Content Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contentrank

// Package validation provides struct validation using go-playground/validator v10.
//
// Configuration sections and training parameters declare their numeric
// bounds with `validate` tags and call ValidateStruct:
//
//	type Params struct {
//	    Epochs       int `validate:"gte=1,lte=1000"`
//	    EmbeddingDim int `validate:"gte=2,lte=1024"`
//	}
//
//	if err := validation.ValidateStruct(p); err != nil {
//	    return fmt.Errorf("invalid training parameters: %w", err)
//	}
//
// The returned *StructError lists every failing field with a readable message.
package validation
