package passphrase

import (
	"context"
	"fmt"
)

type Op string

const (
	OpEncode Op = "encode"
	OpDecode Op = "decode"
)

// Request is a single encode or decode call expressed as a value.
// A nil Passphrase on decode means the passphrase was not supplied.
type Request struct {
	Op         Op
	Method     Method
	Data       string
	Passphrase *string
}

type Response struct {
	Result string
	Err    error
}

// Handle runs the request against the cipher.
func (c *Cipher) Handle(ctx context.Context, req Request) Response {
	switch req.Op {
	case OpEncode:
		var passphrase string
		if req.Passphrase != nil {
			passphrase = *req.Passphrase
		}

		result, err := c.Encode(ctx, req.Method, req.Data, passphrase)
		return Response{Result: result, Err: err}
	case OpDecode:
		result, err := c.Decode(ctx, req.Method, req.Data, req.Passphrase)
		return Response{Result: result, Err: err}
	default:
		return Response{Err: fmt.Errorf("unknown operation %q", req.Op)}
	}
}
