package frame

import swrnet "github.com/j256/goswrnet"

// A Response is the logical result of one command, reassembled from one
// or more telegram fragments.
type Response struct {
	Src     uint16
	Dst     uint16
	Ctrl    swrnet.Control
	Command swrnet.Command
	Payload []byte
}

// A Reassembler concatenates the user payload of successive fragments
// belonging to one logical response. The packet counter counts down and
// the fragment carrying counter zero is the last one. Addressing,
// control and command must be identical across fragments.
type Reassembler struct {
	started bool
	counter uint8
	resp    Response
}

// Add feeds one decoded fragment. It reports true once the response is
// complete; the response is then available from Response.
func (r *Reassembler) Add(f Frame) (bool, error) {
	if !r.started {
		r.started = true
		r.resp = Response{
			Src:     f.Src,
			Dst:     f.Dst,
			Ctrl:    f.Ctrl,
			Command: f.Command,
			Payload: append([]byte(nil), f.Payload...),
		}
	} else {
		if f.Src != r.resp.Src || f.Dst != r.resp.Dst ||
			f.Ctrl != r.resp.Ctrl || f.Command != r.resp.Command {
			return false, ErrFragmentMismatch
		}
		r.resp.Payload = append(r.resp.Payload, f.Payload...)
	}
	r.counter = f.Counter
	return f.Counter == 0, nil
}

// Started reports whether at least one fragment has been added.
func (r *Reassembler) Started() bool {
	return r.started
}

// Response returns the reassembled response. Only valid after Add has
// reported completion.
func (r *Reassembler) Response() Response {
	return r.resp
}
