package pipeline

// Request is one unit of transform work. Seq is unique per Controller.
type Request struct {
	Seq     uint64
	Payload string
}

// Response answers the Request with the same Seq. Err == nil means Output
// holds the transformed text; otherwise Err is a *TransformError.
type Response struct {
	Seq    uint64
	Output string
	Err    error
}

func Succeeded(seq uint64, output string) Response {
	return Response{Seq: seq, Output: output}
}

// Failed answers req with err, keeping the original payload on the error.
func Failed(req Request, err error) Response {
	return Response{Seq: req.Seq, Err: &TransformError{Seq: req.Seq, Payload: req.Payload, Err: err}}
}

func (r Response) OK() bool { return r.Err == nil }
