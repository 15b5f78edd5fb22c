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
	"time"

	"golang.org/x/sync/errgroup"
)

// Publish registers keyBytes as an instance and adds data to it in w's
// own cache, then fans the same register-and-add out to every matched
// reader's cache concurrently, per spec.md §4.6's writer-to-matched-
// readers delivery. The matched readers are returned so the caller
// can take newly available samples and post per-reader notifications;
// internal/entity cannot import internal/dispatch (dispatch already
// imports entity to recognize *Writer and *Reader), so posting stays
// the caller's responsibility.
func (w *Writer) Publish(keyBytes, data []byte, now time.Time) ([]*Reader, error) {
	_, whci, err := w.Cache.Register(keyBytes, now)
	if err != nil {
		return nil, err
	}
	if err := w.Cache.AddInst(whci, data, now, now); err != nil {
		return nil, err
	}

	w.mu.Lock()
	readers := make([]*Reader, 0, len(w.matchedReaders))
	for _, r := range w.matchedReaders {
		readers = append(readers, r)
	}
	w.mu.Unlock()

	var g errgroup.Group
	for _, r := range readers {
		r := r
		g.Go(func() error {
			_, rhci, err := r.Cache.Register(keyBytes, now)
			if err != nil {
				return err
			}
			return r.Cache.AddInst(rhci, data, now, now)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return readers, nil
}
