// Copyright 2025 Magnus Pierre
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

package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lines(buf *bytes.Buffer) []string {
	s := strings.TrimSpace(buf.String())
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func TestVerbosity(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: 1, Output: &buf}).WithName("test")
	log.Info("always")
	log.V(1).Info("summary", "rows", 3)
	log.V(4).Info("chunk")
	log.Error(errors.New("boom"), "failed")

	out := lines(&buf)
	require.Len(t, out, 3)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out[1]), &entry))
	assert.Equal(t, "summary", entry["msg"])
	assert.Equal(t, "test", entry["logger"])
	assert.EqualValues(t, 3, entry["rows"])
	assert.Contains(t, out[2], "boom")
}

func TestDevelopmentConsole(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Development: true, Output: &buf}).Info("hello", "k", "v")
	out := lines(&buf)
	require.Len(t, out, 1)
	assert.Contains(t, out[0], "hello")
	assert.Contains(t, out[0], `"k": "v"`)
}
