package core

import "fmt"

// MessageKind tags the variant carried by a dataplane Payload.
type MessageKind int

const (
	// KindCast is fire-and-forget.
	KindCast MessageKind = iota
	// KindCall expects a CallRet reply on the same channel.
	KindCall
	// KindCallRet is the reply to an earlier call.
	KindCallRet
	// KindControl covers dataplane control traffic that is never forwarded.
	KindControl
)

func (k MessageKind) String() string {
	switch k {
	case KindCast:
		return "cast"
	case KindCall:
		return "call"
	case KindCallRet:
		return "call_ret"
	case KindControl:
		return "control"
	default:
		return fmt.Sprintf("MessageKind(%d)", int(k))
	}
}

// CallRetKind tags the variant carried by a CallRet.
type CallRetKind int

const (
	RetReply CallRetKind = iota
	RetNoReply
	RetErr
)

func (k CallRetKind) String() string {
	switch k {
	case RetReply:
		return "reply"
	case RetNoReply:
		return "noreply"
	case RetErr:
		return "err"
	default:
		return fmt.Sprintf("CallRetKind(%d)", int(k))
	}
}

// CallRet is the outcome of a call.
type CallRet struct {
	Kind CallRetKind
	Data []byte
}

// Reply returns a successful CallRet carrying data.
func Reply(data []byte) CallRet { return CallRet{Kind: RetReply, Data: data} }

// ReplyErr returns a failed CallRet carrying the error text.
func ReplyErr(err error) CallRet { return CallRet{Kind: RetErr, Data: []byte(err.Error())} }

// Payload is the tagged content of a dataplane Event.
type Payload struct {
	Kind MessageKind
	Data []byte
	Ret  CallRet
}

// Cast builds a cast message.
func Cast(data []byte) Payload { return Payload{Kind: KindCast, Data: data} }

// Call builds a call message.
func Call(data []byte) Payload { return Payload{Kind: KindCall, Data: data} }

// Event is one inbound dataplane delivery.
type Event struct {
	Source  InstanceID
	Channel uint64
	Message Payload
}
