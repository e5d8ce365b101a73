package transport

// ErrKind discriminates the ways a shard transport call can fail, so the
// write/read pipelines can aggregate failures without raising (spec §7:
// "shard-transport errors are collected, never raised").
type ErrKind int

const (
	ErrTimeout ErrKind = iota
	ErrConnectionRefused
	ErrHTTPStatus
	ErrOther
)

// Result is the discriminated Ok(body)/Err(kind) union of spec §4.3 — no
// retries happen at this layer, and a Result is never turned into a Go
// error unless the caller explicitly decides to abort.
type Result struct {
	OK         bool
	Body       []byte
	Kind       ErrKind
	StatusCode int // set when Kind == ErrHTTPStatus
	Message    string
}

func ok(body []byte) Result {
	return Result{OK: true, Body: body}
}

func errResult(kind ErrKind, status int, msg string) Result {
	return Result{OK: false, Kind: kind, StatusCode: status, Message: msg}
}
