package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// wireEnvelope mirrors Envelope with pointer fields so that Decode can tell
// a missing field or a null element from a zero value.
type wireEnvelope struct {
	Typ    *string    `json:"typ"`
	Data   *[]*string `json:"data"`
	Serial *int64     `json:"serial"`
}

// Encode serializes e as one line of JSON terminated by a single '\n'.
// A nil Data slice is written as an empty array.
func Encode(e Envelope) []byte {
	if e.Data == nil {
		e.Data = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// string, []string and int64 fields cannot fail to marshal.
	_ = enc.Encode(e) //nolint:errchkjson // see above
	return buf.Bytes()
}

// Decode parses one line into an Envelope. The line terminator (and a
// trailing '\r') is optional. Tags outside the known set are accepted:
// deciding what to do with them is the dispatcher's job.
func Decode(line []byte) (Envelope, error) {
	body := bytes.TrimRight(line, "\r\n")
	if len(bytes.TrimSpace(body)) == 0 {
		return Envelope{}, &DecodeError{Line: string(body), Reason: "empty line"}
	}

	var w wireEnvelope
	if err := json.Unmarshal(body, &w); err != nil {
		return Envelope{}, &DecodeError{Line: string(body), Reason: "malformed envelope", Err: err}
	}

	switch {
	case w.Typ == nil:
		return Envelope{}, &DecodeError{Line: string(body), Reason: `missing "typ"`}
	case *w.Typ == "":
		return Envelope{}, &DecodeError{Line: string(body), Reason: `empty "typ"`}
	case w.Data == nil:
		return Envelope{}, &DecodeError{Line: string(body), Reason: `missing "data"`}
	case w.Serial == nil:
		return Envelope{}, &DecodeError{Line: string(body), Reason: `missing "serial"`}
	}

	data := make([]string, len(*w.Data))
	for i, item := range *w.Data {
		if item == nil {
			return Envelope{}, &DecodeError{Line: string(body), Reason: fmt.Sprintf(`null in "data" at index %d`, i)}
		}
		data[i] = *item
	}

	return Envelope{Tag: Tag(*w.Typ), Data: data, Serial: *w.Serial}, nil
}
