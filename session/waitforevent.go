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
	"time"

	"golang.org/x/sys/unix"

	"github.com/tcnopen/trdp-go/socket"
)

// WaitForEvent blocks until a datagram is ready to read on one of this
// session's sockets, or budget elapses, whichever comes first. It is the
// only blocking call this package exposes; a host application's main
// loop is expected to alternate GetInterval, WaitForEvent and Process.
//
// The returned slice lists the endpoints that are readable; a caller
// reads each with its own ReadFrom and routes the result to DispatchPD
// or DispatchMD (or DispatchFrame, if it cannot tell which family a
// socket carries).
func (s *Session) WaitForEvent(budget time.Duration) ([]*socket.Endpoint, error) {
	eps := s.pool.Endpoints()
	if len(eps) == 0 {
		time.Sleep(budget)
		return nil, nil
	}

	fds := make([]unix.PollFd, len(eps))
	for i, ep := range eps {
		fds[i] = unix.PollFd{Fd: int32(ep.Fd()), Events: unix.POLLIN}
	}

	timeoutMS := int(budget / time.Millisecond)
	if budget > 0 && timeoutMS == 0 {
		timeoutMS = 1
	}

	n, err := unix.Poll(fds, timeoutMS)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, fmt.Errorf("session: WaitForEvent: poll: %w", err)
	}
	if n == 0 {
		return nil, nil
	}

	ready := make([]*socket.Endpoint, 0, n)
	for i, fd := range fds {
		if fd.Revents&unix.POLLIN != 0 {
			ready = append(ready, eps[i])
		}
	}
	return ready, nil
}
