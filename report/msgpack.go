package report

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// WriteMsgpack writes r as MessagePack.
func WriteMsgpack(w io.Writer, r *Report) error {
	enc := msgpack.NewEncoder(w)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("report: failed to encode msgpack: %w", err)
	}
	return nil
}

// ReadMsgpack decodes a report written by WriteMsgpack.
func ReadMsgpack(r io.Reader) (*Report, error) {
	var rep Report
	dec := msgpack.NewDecoder(r)
	if err := dec.Decode(&rep); err != nil {
		return nil, fmt.Errorf("report: failed to decode msgpack: %w", err)
	}
	return &rep, nil
}
