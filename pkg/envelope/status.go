package envelope

// Status is the outcome carried by a response frame. On the wire it lives
// under the "ok" key, whose value is itself "ok" or "error".
type Status int

const (
	// StatusNone means the frame carries no recognized status.
	StatusNone Status = iota
	StatusOK
	StatusError
)

const (
	wireStatusOK    = "ok"
	wireStatusError = "error"
)

func (s Status) String() string {
	return [...]string{"none", wireStatusOK, wireStatusError}[s]
}

func parseStatus(s string) Status {
	switch s {
	case wireStatusOK:
		return StatusOK
	case wireStatusError:
		return StatusError
	}
	return StatusNone
}
