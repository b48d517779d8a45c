package codec

import (
	"errors"
	"fmt"

	"github.com/defistate/flashmint-quote-go/swaproute"
	"github.com/ethereum/go-ethereum/common"
)

const (
	addressLength = common.AddressLength
	markerLength  = 3
	hopLength     = markerLength + addressLength
	maxMarker     = 1<<24 - 1
)

var ErrMalformedPath = errors.New("malformed packed path")

// EncodePackedPath encodes path as token(20) | marker(3) | token(20) ...
// where each marker is a fee tier or a tick spacing.
func EncodePackedPath(path []common.Address, markers []uint32) ([]byte, error) {
	if len(path) < 2 || len(markers) != len(path)-1 {
		return nil, fmt.Errorf("%w: %d tokens with %d markers", ErrMalformedPath, len(path), len(markers))
	}

	out := make([]byte, 0, addressLength+len(markers)*hopLength)
	out = append(out, path[0].Bytes()...)
	for i, m := range markers {
		if m > maxMarker {
			return nil, fmt.Errorf("%w: marker %d does not fit in 24 bits", ErrMalformedPath, m)
		}
		out = append(out, byte(m>>16), byte(m>>8), byte(m))
		out = append(out, path[i+1].Bytes()...)
	}
	return out, nil
}

// DecodePackedPath reverses EncodePackedPath.
func DecodePackedPath(blob []byte) ([]common.Address, []uint32, error) {
	if len(blob) < addressLength+hopLength || (len(blob)-addressLength)%hopLength != 0 {
		return nil, nil, fmt.Errorf("%w: length %d", ErrMalformedPath, len(blob))
	}

	hops := (len(blob) - addressLength) / hopLength
	path := make([]common.Address, 0, hops+1)
	markers := make([]uint32, 0, hops)

	path = append(path, common.BytesToAddress(blob[:addressLength]))
	for offset := addressLength; offset < len(blob); offset += hopLength {
		m := blob[offset : offset+markerLength]
		markers = append(markers, uint32(m[0])<<16|uint32(m[1])<<8|uint32(m[2]))
		path = append(path, common.BytesToAddress(blob[offset+markerLength:offset+hopLength]))
	}
	return path, markers, nil
}

// PackedPath encodes a concentrated-liquidity route. Tick spacings take the
// marker slot when present, as slipstream pools are keyed by spacing.
func PackedPath(route swaproute.SwapRoute) ([]byte, error) {
	if route.Exchange != swaproute.ConcentratedLiquidity {
		return nil, fmt.Errorf("%w: packed paths need a v3 route, got %s", swaproute.ErrInvalidSwapRoute, route.Exchange)
	}
	if err := route.Validate(); err != nil {
		return nil, err
	}

	markers := route.Fees
	if len(route.TickSpacings) > 0 {
		markers = make([]uint32, len(route.TickSpacings))
		for i, ts := range route.TickSpacings {
			markers[i] = uint32(ts) & maxMarker
		}
	}
	return EncodePackedPath(route.Path, markers)
}
