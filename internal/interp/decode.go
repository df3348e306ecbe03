package interp

import "github.com/lazypaws/meowvm/internal/chunk"

func readVarU16(code []byte, ip *int) uint16 {
	v, n := chunk.DecodeVarU16(code, *ip)
	*ip += n
	return v
}

func readI64(code []byte, ip *int) int64 {
	v := chunk.DecodeI64(code, *ip)
	*ip += 8
	return v
}

func readF64(code []byte, ip *int) float64 {
	v := chunk.DecodeF64(code, *ip)
	*ip += 8
	return v
}
