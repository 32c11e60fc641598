/*
Copyright The TRDP-Go Authors.

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

package session

import (
	"fmt"
	"sync"

	"github.com/tcnopen/trdp-go/trdperr"
)

// Handle identifies a Session opened through a Registry.
type Handle uint32

// Registry is the process-wide object tracking every open Session, so a
// host application has one place to enumerate and close them (e.g. on
// shutdown, or when walking sessions to call Process on each).
type Registry struct {
	mu       sync.Mutex
	sessions map[Handle]*Session
	next     Handle
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[Handle]*Session)}
}

// Open stands up a new Session from cfg and registers it under a fresh
// Handle.
func (r *Registry) Open(cfg Config) (Handle, *Session, error) {
	s := Open(cfg)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	h := r.next
	r.sessions[h] = s
	return h, s, nil
}

// Session returns the Session registered under h, if any.
func (r *Registry) Session(h Handle) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[h]
	return s, ok
}

// Close closes and unregisters the Session at h.
func (r *Registry) Close(h Handle) error {
	r.mu.Lock()
	s, ok := r.sessions[h]
	if ok {
		delete(r.sessions, h)
	}
	r.mu.Unlock()

	if !ok {
		return trdperr.New("registry.Close", trdperr.ParamError, fmt.Errorf("unknown handle %d", h))
	}
	return s.Close()
}

// Each calls fn for every currently registered session, in no particular
// order. fn must not call back into Open or Close on this Registry.
func (r *Registry) Each(fn func(Handle, *Session)) {
	r.mu.Lock()
	snapshot := make(map[Handle]*Session, len(r.sessions))
	for h, s := range r.sessions {
		snapshot[h] = s
	}
	r.mu.Unlock()

	for h, s := range snapshot {
		fn(h, s)
	}
}

// Len returns the number of currently registered sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
