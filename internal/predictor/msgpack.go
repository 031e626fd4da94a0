package predictor

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
)

const maxMsgpackLen = 1 << 24

type msgpackDecoder struct {
	r     *bufio.Reader
	depth int
}

func decodeMsgpack(r io.Reader) (any, error) {
	dec := msgpackDecoder{r: bufio.NewReader(r)}
	v, err := dec.decodeValue()
	if err != nil {
		return nil, err
	}
	if _, err := dec.r.ReadByte(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("trailing data after msgpack value")
	}
	return v, nil
}

func (d *msgpackDecoder) decodeValue() (any, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		return nil, err
	}

	switch {
	case b <= 0x7f:
		return int64(b), nil
	case b >= 0xe0:
		return int64(int8(b)), nil
	case b >= 0xa0 && b <= 0xbf:
		return d.readString(int(b & 0x1f))
	case b >= 0x90 && b <= 0x9f:
		return d.readArray(int(b & 0x0f))
	case b >= 0x80 && b <= 0x8f:
		return d.readMap(int(b & 0x0f))
	}

	switch b {
	case 0xc0:
		return nil, nil
	case 0xc2:
		return false, nil
	case 0xc3:
		return true, nil
	case 0xca:
		val, err := d.readUint(4)
		if err != nil {
			return nil, err
		}
		return float64(math.Float32frombits(uint32(val))), nil
	case 0xcb:
		val, err := d.readUint(8)
		if err != nil {
			return nil, err
		}
		return math.Float64frombits(val), nil
	case 0xcc, 0xcd, 0xce, 0xcf:
		val, err := d.readUint(1 << (b - 0xcc))
		if err != nil {
			return nil, err
		}
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("msgpack uint %d overflows int64", val)
		}
		return int64(val), nil
	case 0xd0:
		val, err := d.readUint(1)
		return int64(int8(val)), err
	case 0xd1:
		val, err := d.readUint(2)
		return int64(int16(val)), err
	case 0xd2:
		val, err := d.readUint(4)
		return int64(int32(val)), err
	case 0xd3:
		val, err := d.readUint(8)
		return int64(val), err
	case 0xd9, 0xda, 0xdb:
		length, err := d.readUint(1 << (b - 0xd9))
		if err != nil {
			return nil, err
		}
		return d.readString(int(length))
	case 0xdc, 0xdd:
		length, err := d.readUint(2 << (b - 0xdc))
		if err != nil {
			return nil, err
		}
		return d.readArray(int(length))
	case 0xde, 0xdf:
		length, err := d.readUint(2 << (b - 0xde))
		if err != nil {
			return nil, err
		}
		return d.readMap(int(length))
	default:
		return nil, fmt.Errorf("unsupported msgpack prefix 0x%x", b)
	}
}

func (d *msgpackDecoder) enter(length int) error {
	if length < 0 || length > maxMsgpackLen {
		return fmt.Errorf("invalid length %d", length)
	}
	d.depth++
	if d.depth > 32 {
		return fmt.Errorf("msgpack nesting too deep")
	}
	return nil
}

func (d *msgpackDecoder) readArray(length int) ([]any, error) {
	if err := d.enter(length); err != nil {
		return nil, err
	}
	defer func() { d.depth-- }()
	out := make([]any, 0, min(length, 1024))
	for i := 0; i < length; i++ {
		val, err := d.decodeValue()
		if err != nil {
			return nil, err
		}
		out = append(out, val)
	}
	return out, nil
}

func (d *msgpackDecoder) readMap(length int) (map[string]any, error) {
	if err := d.enter(length); err != nil {
		return nil, err
	}
	defer func() { d.depth-- }()
	out := make(map[string]any, min(length, 64))
	for i := 0; i < length; i++ {
		key, err := d.decodeValue()
		if err != nil {
			return nil, err
		}
		name, ok := key.(string)
		if !ok {
			return nil, fmt.Errorf("msgpack map key %v is not a string", key)
		}
		val, err := d.decodeValue()
		if err != nil {
			return nil, err
		}
		out[name] = val
	}
	return out, nil
}

func (d *msgpackDecoder) readString(length int) (string, error) {
	if length < 0 || length > maxMsgpackLen {
		return "", fmt.Errorf("invalid length %d", length)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func (d *msgpackDecoder) readUint(size int) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(d.r, buf[8-size:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

func encodeMsgpack(buf *bytes.Buffer, value any) error {
	switch v := value.(type) {
	case nil:
		buf.WriteByte(0xc0)
	case bool:
		if v {
			buf.WriteByte(0xc3)
		} else {
			buf.WriteByte(0xc2)
		}
	case int:
		return encodeMsgpack(buf, int64(v))
	case int64:
		if v >= 0 && v <= 0x7f {
			buf.WriteByte(byte(v))
			return nil
		}
		if v < 0 && v >= -32 {
			buf.WriteByte(byte(int8(v)))
			return nil
		}
		buf.WriteByte(0xd3)
		writeUint(buf, uint64(v), 8)
	case float64:
		buf.WriteByte(0xcb)
		writeUint(buf, math.Float64bits(v), 8)
	case string:
		switch n := len(v); {
		case n <= 31:
			buf.WriteByte(0xa0 | byte(n))
		case n <= math.MaxUint8:
			buf.WriteByte(0xd9)
			writeUint(buf, uint64(n), 1)
		default:
			buf.WriteByte(0xdb)
			writeUint(buf, uint64(n), 4)
		}
		buf.WriteString(v)
	case []any:
		if n := len(v); n <= 15 {
			buf.WriteByte(0x90 | byte(n))
		} else {
			buf.WriteByte(0xdd)
			writeUint(buf, uint64(n), 4)
		}
		for _, item := range v {
			if err := encodeMsgpack(buf, item); err != nil {
				return err
			}
		}
	case map[string]any:
		if n := len(v); n <= 15 {
			buf.WriteByte(0x80 | byte(n))
		} else {
			buf.WriteByte(0xdf)
			writeUint(buf, uint64(n), 4)
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := encodeMsgpack(buf, k); err != nil {
				return err
			}
			if err := encodeMsgpack(buf, v[k]); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unsupported msgpack type %T", value)
	}
	return nil
}

func writeUint(buf *bytes.Buffer, v uint64, size int) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	buf.Write(tmp[8-size:])
}
