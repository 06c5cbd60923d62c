package lego

import (
	"bytes"
	"encoding/gob"
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
)

type Marshaler interface {
	Marshal(v any) (data []byte, err error)
}

type Unmarshaler interface {
	Unmarshal(data []byte, v any) error
}

type MarshalUnmarshaler interface {
	Marshaler
	Unmarshaler
}

var (
	JsonMaUn    MarshalUnmarshaler = jsonMarshalUnmarshaler{}
	GobMaUn     MarshalUnmarshaler = gobMarshalUnmarshaler{}
	MsgpackMaUn MarshalUnmarshaler = msgpackMarshalUnmarshaler{}
)

type jsonMarshalUnmarshaler struct{}

func (jsonMarshalUnmarshaler) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonMarshalUnmarshaler) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

type gobMarshalUnmarshaler struct{}

func (gobMarshalUnmarshaler) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	encoder := gob.NewEncoder(&buf)
	err := encoder.Encode(v)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobMarshalUnmarshaler) Unmarshal(data []byte, v any) error {
	buf := bytes.NewBuffer(data)
	decoder := gob.NewDecoder(buf)
	return decoder.Decode(v)
}

// msgpackMarshalUnmarshaler decodes dynamic numbers loosely: every signed
// integer becomes int64, every unsigned integer uint64 and every float
// float64.
type msgpackMarshalUnmarshaler struct{}

func (msgpackMarshalUnmarshaler) Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (msgpackMarshalUnmarshaler) Unmarshal(data []byte, v any) error {
	decoder := msgpack.NewDecoder(bytes.NewReader(data))
	decoder.UseLooseInterfaceDecoding(true)
	return decoder.Decode(v)
}

// EncodeCollection serializes c with maUn.
func EncodeCollection(maUn MarshalUnmarshaler, c Collection) ([]byte, error) {
	if c == nil {
		c = Collection{}
	}
	return maUn.Marshal(c)
}

// DecodeCollection parses a collection serialized with maUn.
func DecodeCollection(maUn MarshalUnmarshaler, data []byte) (Collection, error) {
	var c Collection
	if err := maUn.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	if c == nil {
		c = Collection{}
	}
	return c, nil
}
