package anthropic

// PriceTable is the fixed per-token pricing used to estimate cost from
// token usage, in dollars per million tokens.
type PriceTable struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// DefaultPriceTable returns $3.00 input / $15.00 output per million tokens.
func DefaultPriceTable() PriceTable {
	return PriceTable{
		InputPerMillion:  3.00,
		OutputPerMillion: 15.00,
	}
}

// Estimate returns the dollar cost of the given token counts.
func (p PriceTable) Estimate(input, output int64) float64 {
	return float64(input)/1_000_000*p.InputPerMillion +
		float64(output)/1_000_000*p.OutputPerMillion
}
