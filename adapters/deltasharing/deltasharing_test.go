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

package deltasharing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTableName(t *testing.T) {
	share, schema, table, err := ParseTableName("sales.emea.orders")
	require.NoError(t, err)
	assert.Equal(t, []string{"sales", "emea", "orders"}, []string{share, schema, table})

	for _, bad := range []string{"", "orders", "a.b", "a..c", "a.b.c.d"} {
		_, _, _, err := ParseTableName(bad)
		assert.Error(t, err, bad)
	}
}

func TestCreateTimeoutContext(t *testing.T) {
	ctx, cancel := createTimeoutContext(context.Background(), 0)
	defer cancel()
	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(DefaultTimeoutSeconds*time.Second), deadline, 5*time.Second)

	parent, stop := context.WithCancel(context.Background())
	ctx, cancel = createTimeoutContext(parent, 5)
	defer cancel()
	stop()
	<-ctx.Done()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestIsProfile(t *testing.T) {
	assert.True(t, IsProfile([]byte(`{"shareCredentialsVersion": 1, "endpoint": "https://sharing.example.com/delta-sharing/", "bearerToken": "t0k3n"}`)))
	assert.False(t, IsProfile([]byte(`{"endpoint": "https://sharing.example.com/"}`)))
	assert.False(t, IsProfile([]byte(`[{"shareCredentialsVersion": 1}]`)))
	assert.False(t, IsProfile([]byte("name,age\nAnn,34\n")))
}
