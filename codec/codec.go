// Package codec converts instructions to and from their one-line text form.
//
// An instruction is encoded as a canonical JSON object
// (sorted keys, no insignificant whitespace)
// so that the same instruction always produces the same bytes:
//
//	{"index":3,"size":4100,"type":"reference"}
//	{"data":"aGVsbG8=","index":4,"size":4100,"type":"literal"}
//
// The payload of a literal is base64-encoded,
// so an encoded instruction never contains a newline.
package codec

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/gibson042/canonicaljson-go"
	"github.com/pkg/errors"

	"github.com/bobg/bsync"
)

// Variant tags.
const (
	TypeReference = "reference"
	TypeLiteral   = "literal"
)

// wire is the decoded form of an instruction.
// Pointer fields distinguish missing values from zero values.
type wire struct {
	Type  string  `json:"type"`
	Index *int    `json:"index"`
	Size  *int64  `json:"size"`
	Data  *[]byte `json:"data,omitempty"`
}

// Encode produces the text form of an instruction.
func Encode(inst bsync.Instruction) (string, error) {
	obj := map[string]interface{}{
		"index": inst.BlockIndex(),
		"size":  inst.FileSize(),
	}

	switch inst := inst.(type) {
	case bsync.Reference:
		obj["type"] = TypeReference

	case bsync.Literal:
		obj["type"] = TypeLiteral
		data := inst.Data
		if data == nil {
			data = []byte{}
		}
		obj["data"] = data

	default:
		return "", errors.Errorf("cannot encode instruction of type %T", inst)
	}

	b, err := canonicaljson.Marshal(obj)
	if err != nil {
		return "", errors.Wrap(err, "marshaling instruction")
	}
	return string(b), nil
}

// Decode parses the text form of an instruction.
// Any structural problem produces an error wrapping bsync.ErrMalformedInstruction.
func Decode(line string) (bsync.Instruction, error) {
	if strings.ContainsAny(line, "\r\n") {
		return nil, malformed("embedded line break")
	}

	var w wire
	dec := json.NewDecoder(strings.NewReader(line))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&w); err != nil {
		return nil, errors.Wrapf(bsync.ErrMalformedInstruction, "%s", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, malformed("trailing data")
	}

	if w.Index == nil {
		return nil, malformed("missing index")
	}
	if *w.Index < 0 {
		return nil, malformed("negative index %d", *w.Index)
	}
	if w.Size == nil {
		return nil, malformed("missing size")
	}
	if *w.Size < 0 {
		return nil, malformed("negative size %d", *w.Size)
	}

	switch w.Type {
	case TypeReference:
		if w.Data != nil {
			return nil, malformed("reference with data")
		}
		return bsync.Reference{Index: *w.Index, Size: *w.Size}, nil

	case TypeLiteral:
		if w.Data == nil {
			return nil, malformed("literal without data")
		}
		return bsync.Literal{Index: *w.Index, Size: *w.Size, Data: *w.Data}, nil

	case "":
		return nil, malformed("missing type")
	}
	return nil, malformed("unknown type %q", w.Type)
}

func malformed(format string, args ...interface{}) error {
	return errors.Wrapf(bsync.ErrMalformedInstruction, format, args...)
}
