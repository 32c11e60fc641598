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

package wire

import "fmt"

// MsgType is the two-ASCII-character frame type field, carried on the wire
// as a big-endian uint16 of the two bytes (e.g. 'P','d' -> 0x5064).
type MsgType uint16

func msgType(hi, lo byte) MsgType { return MsgType(uint16(hi)<<8 | uint16(lo)) }

var (
	PD        = msgType('P', 'd') // process data
	PDError   = msgType('P', 'e')
	PDRequest = msgType('P', 'r')
	MDNotify  = msgType('M', 'n')
	MDRequest = msgType('M', 'r')
	MDReply   = msgType('M', 'p')
	MDReplyQ  = msgType('M', 'q') // reply with requested confirmation
	MDConfirm = msgType('M', 'c')
	MDError   = msgType('M', 'e')
)

var msgTypeNames = map[MsgType]string{
	PD:        "Pd",
	PDError:   "Pe",
	PDRequest: "Pr",
	MDNotify:  "Mn",
	MDRequest: "Mr",
	MDReply:   "Mp",
	MDReplyQ:  "Mq",
	MDConfirm: "Mc",
	MDError:   "Me",
}

func (m MsgType) String() string {
	if s, ok := msgTypeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("MsgType(0x%04x)", uint16(m))
}

func (m MsgType) Valid() bool {
	_, ok := msgTypeNames[m]
	return ok
}

// Kind classifies a msgType as belonging to the PD or MD frame family,
// which in turn determines header layout and size.
type Kind int

const (
	KindUnknown Kind = iota
	KindPD
	KindMD
)

func (m MsgType) Kind() Kind {
	switch m {
	case PD, PDError, PDRequest:
		return KindPD
	case MDNotify, MDRequest, MDReply, MDReplyQ, MDConfirm, MDError:
		return KindMD
	default:
		return KindUnknown
	}
}
