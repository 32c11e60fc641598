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

/*
Package trdperr defines the result code taxonomy shared by the wire codec,
marshaller, PD engine, MD engine and session façade, and the Error type
that wraps a ResultCode for use with errors.As / errors.Is.
*/
package trdperr

import (
	"errors"
	"fmt"
)

// ResultCode is the taxonomy of outcomes a TRDP operation can report,
// either as a direct return value or as the ResultCode field of a
// pdReceived/mdEvent callback.
type ResultCode int

// Taxonomy from the error handling design: ok, param-error, init-error,
// no-init, mem-error, io-error, no-data, timeout, crc-error, wire-error,
// topo-error, comid-error, no-publish, no-subscribe, no-listener,
// block-error, already-published, confirm-timeout.
const (
	OK ResultCode = iota
	ParamError
	InitError
	NoInit
	MemError
	IOError
	NoData
	Timeout
	CRCError
	WireError
	TopoError
	ComIDError
	NoPublish
	NoSubscribe
	NoListener
	BlockError
	AlreadyPublished
	ConfirmTimeout
)

var names = map[ResultCode]string{
	OK:               "ok",
	ParamError:       "param-error",
	InitError:        "init-error",
	NoInit:           "no-init",
	MemError:         "mem-error",
	IOError:          "io-error",
	NoData:           "no-data",
	Timeout:          "timeout",
	CRCError:         "crc-error",
	WireError:        "wire-error",
	TopoError:        "topo-error",
	ComIDError:       "comid-error",
	NoPublish:        "no-publish",
	NoSubscribe:      "no-subscribe",
	NoListener:       "no-listener",
	BlockError:       "block-error",
	AlreadyPublished: "already-published",
	ConfirmTimeout:   "confirm-timeout",
}

func (r ResultCode) String() string {
	if s, ok := names[r]; ok {
		return s
	}
	return fmt.Sprintf("ResultCode(%d)", int(r))
}

// Error wraps a ResultCode and a context message so callers can recover the
// taxonomy code with errors.As while still getting a readable message from
// Error().
type Error struct {
	Code ResultCode
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error for op failing with code, optionally wrapping cause.
func New(op string, code ResultCode, cause error) *Error {
	return &Error{Code: code, Op: op, Err: cause}
}

// CodeOf extracts the ResultCode from err if it (or something it wraps) is
// an *Error, otherwise returns OK, false.
func CodeOf(err error) (ResultCode, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return OK, false
}
