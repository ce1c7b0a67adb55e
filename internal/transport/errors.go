package transport

import "fmt"

// ConnectionError is returned for any failure of the socket itself. The
// session it came from is unusable and must be replaced.
type ConnectionError struct {
	Op  string
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("gateway %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ProtocolError is returned for a message that arrived intact but could not
// be decoded. The connection is still usable.
type ProtocolError struct {
	Payload []byte
	Err     error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("malformed gateway payload (%d bytes): %v", len(e.Payload), e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}
