package datalog

import "errors"

// Definition and configuration errors. They abort compilation of the
// offending unit; callers match them with errors.Is.
var (
	ErrUnsupportedArity        = errors.New("unsupported arity")
	ErrSubsumptiveHeadMismatch = errors.New("subsumptive head refers to a different relation")
	ErrMalformedPlan           = errors.New("malformed execution plan")
	ErrUnstratifiable          = errors.New("program is not stratifiable")
	ErrUngroundedVariable      = errors.New("ungrounded variable")
	ErrUnknownFunctor          = errors.New("unknown functor")
	ErrUnknownRelation         = errors.New("unknown relation")
	ErrArityMismatch           = errors.New("arity mismatch")
	ErrTypeMismatch            = errors.New("type mismatch")
)
