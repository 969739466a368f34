// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package obstrace

import (
	"context"
	"testing"
)

func TestInitDisabledInstallsNoopProvider(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer shutdown(context.Background())

	_, span := Tracer("bookrag.test").Start(context.Background(), SpanRoute)
	span.End()
}

func TestWithDefaultsFillsServiceNameAndSamplingRate(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.ServiceName != "bookrag" {
		t.Errorf("ServiceName = %q, want bookrag", cfg.ServiceName)
	}
	if cfg.SamplingRate != 1.0 {
		t.Errorf("SamplingRate = %v, want 1.0", cfg.SamplingRate)
	}
}
