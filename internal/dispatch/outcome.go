package dispatch

import "encoding/json"

// Kind discriminates dispatch outcomes. Exactly one outcome is produced per
// call; none implies partial execution.
type Kind int

const (
	// KindSuccess carries the invoked method's result verbatim.
	KindSuccess Kind = iota
	// KindUnauthenticated means no valid session accompanied the call.
	KindUnauthenticated
	// KindForbidden means the profile lacks the (object, method) grant.
	KindForbidden
	// KindNotFound means the object or method name is not registered.
	KindNotFound
	// KindInternalError means the invocation failed; detail stays in logs.
	KindInternalError
)

// String names the kind for logs and metric labels.
func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	default:
		return "internal_error"
	}
}

// Outcome is the tagged result of one dispatch.
type Outcome struct {
	Kind    Kind
	Message string
	Payload any
}

// Success wraps a business result.
func Success(payload any) Outcome {
	return Outcome{Kind: KindSuccess, Payload: payload}
}

// Unauthenticated is the outcome for callers without a session.
func Unauthenticated() Outcome {
	return Outcome{Kind: KindUnauthenticated, Message: "debe hacer login..."}
}

// Forbidden is the outcome for callers lacking permission.
func Forbidden(msg string) Outcome {
	return Outcome{Kind: KindForbidden, Message: msg}
}

// NotFound is the outcome for unknown objects or methods.
func NotFound(msg string) Outcome {
	return Outcome{Kind: KindNotFound, Message: msg}
}

// InternalError is the outcome for failures inside an invocation.
func InternalError() Outcome {
	return Outcome{Kind: KindInternalError, Message: "error interno"}
}

// envelope is the wire shape shared with the original clients.
type envelope struct {
	Sts  bool   `json:"sts"`
	Msg  string `json:"msg,omitempty"`
	Data any    `json:"data,omitempty"`
}

// MarshalJSON serializes the outcome as {sts, msg?, data?}. A successful
// dispatch whose payload is already an envelope-shaped value is passed
// through untouched so business objects keep control of their responses.
func (o Outcome) MarshalJSON() ([]byte, error) {
	if o.Kind == KindSuccess {
		if o.Payload != nil {
			return json.Marshal(o.Payload)
		}
		return json.Marshal(envelope{Sts: true})
	}
	return json.Marshal(envelope{Sts: false, Msg: o.Message})
}
