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

	"github.com/stretchr/testify/mock"
)

// MockEmbedder is a testify mock of the Embedder port for use in tests.
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	args := m.Called(ctx, texts)
	if vectors := args.Get(0); vectors != nil {
		return vectors.([][]float64), args.Error(1)
	}
	return nil, args.Error(1)
}
