/*
Copyright 2025 Tally Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package tally

import (
	"context"

	"github.com/korede-labs/tally/config"
)

// Embedder converts free text into fixed-length numeric vectors. The
// embedding call is the engine's only I/O; implementations batch and retry as
// they see fit but must return exactly one vector per input text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Tally is the reconciliation engine. It holds only configuration and the
// optional embedding port; no state survives across Reconcile calls.
type Tally struct {
	config   *config.Configuration
	embedder Embedder
}

// NewTally creates a reconciliation engine. The embedder may be nil, in which
// case the semantic matching tier is unavailable.
//
// Parameters:
// - configuration: The engine configuration (use config.Default() for stock settings).
// - embedder: The embedding provider port, or nil.
//
// Returns:
// - *Tally: The engine instance.
func NewTally(configuration *config.Configuration, embedder Embedder) *Tally {
	if configuration == nil {
		configuration = config.Default()
	}
	return &Tally{config: configuration, embedder: embedder}
}
