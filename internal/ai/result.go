package ai

// Result is the outcome of one gateway call: either a reply or the
// reason the call could not produce one.
type Result struct {
	Reply string
	Err   error
}

// Ok wraps a successful reply.
func Ok(reply string) Result {
	return Result{Reply: reply}
}

// Err wraps a failure.
func Err(reason error) Result {
	return Result{Err: reason}
}

// IsOk reports whether the call produced a reply.
func (r Result) IsOk() bool {
	return r.Err == nil
}
