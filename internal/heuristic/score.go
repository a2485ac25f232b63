package heuristic

// score combines three signals into [0,1]:
//   - coverage: fraction of lines the tagger classified as something other
//     than noise,
//   - price discipline: fraction of items that closed with exactly one
//     price candidate,
//   - reconciliation: agreement between summed item prices and the printed
//     subtotal/total within the configured tolerance.
//
// Weights 0.4 / 0.3 / 0.3. A receipt with no printed subtotal scores the
// reconciliation component neutrally.
func (p *Parser) score(parse *Parse) float32 {
	if parse.LineCount == 0 {
		return 0
	}

	coverage := float32(parse.LineCount-parse.NoiseCount) / float32(parse.LineCount)

	discipline := float32(1)
	if n := len(parse.Items); n > 0 {
		discipline = float32(n-parse.MultiPriceItems) / float32(n)
	} else {
		discipline = 0
	}

	agreement := float32(0.5)
	if ref, ok := parse.ReferenceTotalCents(); ok {
		delta := parse.ItemSumCents() - ref
		if delta < 0 {
			delta = -delta
		}
		if delta <= p.cfg.SubtotalToleranceCents {
			agreement = 1
		} else {
			agreement = 0
		}
	}

	return 0.4*coverage + 0.3*discipline + 0.3*agreement
}
