package pages

import "encoding/binary"

// LSN is a log sequence number. The page header stores it in 4 bytes, so it
// is 32 bits wide everywhere.
type LSN uint32

const ZeroLSN LSN = 0

func PutLSN(dest []byte, l LSN) {
	binary.LittleEndian.PutUint32(dest, uint32(l))
}

func ReadLSN(src []byte) LSN {
	return LSN(binary.LittleEndian.Uint32(src))
}
