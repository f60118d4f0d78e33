package selector

import (
	"fmt"
	"strconv"
	"strings"
)

// Params identifies the tunable strategy knobs a ledger row was produced
// under. The encoded form is the ledger's ParamsID.
type Params struct {
	NewsBlendWeight float64
	TopN            int
	KillSwitchMode  string
}

// Encode renders a stable, order-fixed identifier.
func (p Params) Encode() string {
	return fmt.Sprintf("blend=%.2f;topn=%d;kill=%s", p.NewsBlendWeight, p.TopN, p.KillSwitchMode)
}

// DecodeParams parses an encoded ParamsID. Unknown keys are rejected so
// a schema drift in the ledger surfaces immediately.
func DecodeParams(id string) (Params, error) {
	var p Params
	for _, part := range strings.Split(id, ";") {
		key, val, ok := strings.Cut(part, "=")
		if !ok {
			return Params{}, fmt.Errorf("malformed params segment %q", part)
		}
		switch key {
		case "blend":
			v, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return Params{}, fmt.Errorf("invalid blend weight %q: %w", val, err)
			}
			p.NewsBlendWeight = v
		case "topn":
			v, err := strconv.Atoi(val)
			if err != nil {
				return Params{}, fmt.Errorf("invalid top_n %q: %w", val, err)
			}
			p.TopN = v
		case "kill":
			p.KillSwitchMode = val
		default:
			return Params{}, fmt.Errorf("unknown params key %q", key)
		}
	}
	return p, nil
}
