package wire

import "encoding/binary"

// putUint16Bytes appends a 2-byte length-prefixed byte slice to dst, per
// §4.1's repeated "length-prefixed" convention for certificates, public
// keys, and signatures.
func putUint16Bytes(dst []byte, data []byte) []byte {
	var length [2]byte
	binary.BigEndian.PutUint16(length[:], uint16(len(data)))
	dst = append(dst, length[:]...)
	return append(dst, data...)
}

// getUint16Bytes reads a 2-byte length-prefixed byte slice from buf,
// returning the slice and the number of bytes consumed from buf.
func getUint16Bytes(buf []byte) (data []byte, consumed int, err error) {
	if len(buf) < 2 {
		return nil, 0, ErrTruncatedPayload
	}
	length := int(binary.BigEndian.Uint16(buf[:2]))
	if len(buf)-2 < length {
		return nil, 0, ErrTruncatedPayload
	}
	return buf[2 : 2+length], 2 + length, nil
}

// putUint8List appends a 1-byte-count-prefixed list of single-byte values.
func putUint8List(dst []byte, values []byte) []byte {
	dst = append(dst, uint8(len(values)))
	return append(dst, values...)
}

// getUint8List reads a 1-byte-count-prefixed list of single-byte values.
func getUint8List(buf []byte) (values []byte, consumed int, err error) {
	if len(buf) < 1 {
		return nil, 0, ErrTruncatedPayload
	}
	count := int(buf[0])
	if len(buf)-1 < count {
		return nil, 0, ErrTruncatedPayload
	}
	return buf[1 : 1+count], 1 + count, nil
}
