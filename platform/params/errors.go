package params

import "errors"

var (
	ErrUnsupportedType   = errors.New("unsupported parameter type")
	ErrInvalidDescriptor = errors.New("invalid parameter descriptor")
	ErrDecode            = errors.New("unable to decode parameter value")
	ErrUnknownParameter  = errors.New("unknown parameter")
	ErrInvalidVector     = errors.New("invalid vector")
)
