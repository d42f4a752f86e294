package transport

import (
	"bytes"
	"encoding/json"
	"io"
)

// RecordScanner frames newline-delimited JSON records from a stream. A
// single read may carry zero, one, or several complete records, and a
// record may span multiple reads; the incomplete trailing fragment is
// carried over to the next read. A fragment left unterminated when the
// stream ends is surfaced as the final record.
type RecordScanner struct {
	reader  io.Reader
	carry   []byte
	pending [][]byte
	err     error
}

func NewRecordScanner(reader io.Reader) *RecordScanner {
	return &RecordScanner{reader: reader}
}

// Next returns the next complete record. It returns io.EOF once the stream
// ends cleanly; any other error terminates the sequence the same way.
func (s *RecordScanner) Next() (json.RawMessage, error) {
	for {
		if len(s.pending) > 0 {
			record := s.pending[0]
			s.pending = s.pending[1:]
			return json.RawMessage(record), nil
		}
		if s.err != nil {
			return nil, s.err
		}
		s.fill()
	}
}

func (s *RecordScanner) fill() {
	buf := make([]byte, 4096)
	n, err := s.reader.Read(buf)
	if n > 0 {
		s.carry = append(s.carry, buf[:n]...)
		for {
			idx := bytes.IndexByte(s.carry, '\n')
			if idx < 0 {
				break
			}
			line := bytes.TrimSpace(s.carry[:idx])
			s.carry = s.carry[idx+1:]
			if len(line) > 0 {
				record := make([]byte, len(line))
				copy(record, line)
				s.pending = append(s.pending, record)
			}
		}
	}
	if err != nil {
		if err == io.EOF {
			// the stream ended without a final newline; the fragment is
			// still a record
			if line := bytes.TrimSpace(s.carry); len(line) > 0 {
				record := make([]byte, len(line))
				copy(record, line)
				s.pending = append(s.pending, record)
			}
			s.carry = nil
		}
		s.err = err
	}
}
