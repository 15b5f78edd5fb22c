// Copyright Project Contour Authors
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

package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/heptio-dds/ddscore/internal/duration"
	"github.com/heptio-dds/ddscore/internal/history"
	"github.com/heptio-dds/ddscore/internal/qos"
)

// TestWriterPublishFansOutToEveryMatchedReader exercises the
// golang.org/x/sync/errgroup fan-out in Writer.Publish against two
// independently matched readers, confirming both caches observe the
// sample rather than just the first one registered.
func TestWriterPublishFansOutToEveryMatchedReader(t *testing.T) {
	d, p := newTestParticipant(t)

	topic, err := d.CreateTopic("Square", "ShapeType", nil, qos.Default())
	require.NoError(t, err)
	topic.Enable()

	pub, err := p.CreatePublisher(qos.Default(), true)
	require.NoError(t, err)
	sub, err := p.CreateSubscriber(qos.Default(), true)
	require.NoError(t, err)

	w, err := pub.CreateWriter(topic, qos.Default(), nil, true)
	require.NoError(t, err)
	r1, err := sub.CreateReader(topic, qos.Default(), nil, true)
	require.NoError(t, err)
	r2, err := sub.CreateReader(topic, qos.Default(), nil, true)
	require.NoError(t, err)

	ok, _ := MatchEndpoints(w, r1)
	require.True(t, ok)
	ok, _ = MatchEndpoints(w, r2)
	require.True(t, ok)

	now := time.Now()
	readers, err := w.Publish([]byte("key-1"), []byte("payload"), now)
	require.NoError(t, err)
	require.Len(t, readers, 2)

	for _, r := range []*Reader{r1, r2} {
		samples := r.Cache.Get(0, history.AnyMask, false, duration.Finite(0))
		require.Lenf(t, samples, 1, "reader %v did not receive the fanned-out sample", r.EntityId)
		require.Equal(t, []byte("payload"), samples[0].Data)
	}
}
