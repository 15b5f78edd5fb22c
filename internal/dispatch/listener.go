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

package dispatch

// Listener is notified of status changes on the entity it is attached
// to, the generalization of the teacher's zero-argument
// internal/contour.Observer to a Notification-carrying callback.
type Listener interface {
	Notify(Notification)
}

// ListenerFunc adapts a plain function to a Listener, mirroring
// internal/contour.ObserverFunc.
type ListenerFunc func(Notification)

func (f ListenerFunc) Notify(n Notification) { f(n) }

// registration pairs a Listener with the Mask of NotificationTypes it
// asked to be called back for (spec.md §4.9's set_listener mask
// argument).
type registration struct {
	listener Listener
	mask     Mask
}
