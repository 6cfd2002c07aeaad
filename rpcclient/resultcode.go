package rpcclient

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ResultCode is the closed transport-status enum named in spec.md §4.7: the
// client's view of a call outcome after translating the underlying RPC
// framework's status code.
type ResultCode int

const (
	OK ResultCode = iota
	Canceled
	Failure
	InvalidArgument
	DeadlineExceeded
	NotFound
	AlreadyExists
	AccessDenied
	Unauthenticated
	ResourceExhausted
	FailedPrecondition
	Aborted
	OutOfRange
	Unimplemented
	Internal
	Unavailable
	DataLoss
)

func (r ResultCode) String() string {
	switch r {
	case OK:
		return "OK"
	case Canceled:
		return "Canceled"
	case Failure:
		return "Failure"
	case InvalidArgument:
		return "InvalidArgument"
	case DeadlineExceeded:
		return "DeadlineExceeded"
	case NotFound:
		return "NotFound"
	case AlreadyExists:
		return "AlreadyExists"
	case AccessDenied:
		return "AccessDenied"
	case Unauthenticated:
		return "Unauthenticated"
	case ResourceExhausted:
		return "ResourceExhausted"
	case FailedPrecondition:
		return "FailedPrecondition"
	case Aborted:
		return "Aborted"
	case OutOfRange:
		return "OutOfRange"
	case Unimplemented:
		return "Unimplemented"
	case Internal:
		return "Internal"
	case Unavailable:
		return "Unavailable"
	case DataLoss:
		return "DataLoss"
	default:
		return "Failure"
	}
}

// codeTable is the closed translation from codes.Code to ResultCode named in
// spec.md §4.7. Every codes.Code value grpc-go defines has an entry; a code
// added to a future grpc-go release falls back to Failure via Translate.
var codeTable = map[codes.Code]ResultCode{
	codes.OK:                 OK,
	codes.Canceled:           Canceled,
	codes.Unknown:            Failure,
	codes.InvalidArgument:    InvalidArgument,
	codes.DeadlineExceeded:   DeadlineExceeded,
	codes.NotFound:           NotFound,
	codes.AlreadyExists:      AlreadyExists,
	codes.PermissionDenied:   AccessDenied,
	codes.ResourceExhausted:  ResourceExhausted,
	codes.FailedPrecondition: FailedPrecondition,
	codes.Aborted:            Aborted,
	codes.OutOfRange:         OutOfRange,
	codes.Unimplemented:      Unimplemented,
	codes.Internal:           Internal,
	codes.Unavailable:        Unavailable,
	codes.DataLoss:           DataLoss,
	codes.Unauthenticated:    Unauthenticated,
}

// Translate maps a transport-layer error (as returned by a Stub call) to a
// ResultCode. A nil err translates to OK.
func Translate(err error) ResultCode {
	if err == nil {
		return OK
	}
	st, ok := status.FromError(err)
	if !ok {
		return Failure
	}
	if rc, ok := codeTable[st.Code()]; ok {
		return rc
	}
	return Failure
}
