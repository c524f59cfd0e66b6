package artnet

import (
	"encoding/binary"

	"github.com/Haba1234/go-artnet"
)

// UniverseAddress converts a 15-bit Port-Address to its art-net address.
// старший байт - Net, младший байт - SubUni.
func UniverseAddress(universe uint16) artnet.Address {
	v := make([]uint8, 2)
	binary.BigEndian.PutUint16(v, universe&0x7fff)

	return artnet.Address{
		Net:    v[0],
		SubUni: v[1],
	}
}

func addressString(universe uint16) string {
	a := UniverseAddress(universe)
	return a.String()
}
