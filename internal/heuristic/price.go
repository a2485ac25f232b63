package heuristic

// SelectPrice resolves an item's final price from its candidates.
//
// One candidate wins outright. With two or more, the last candidate in
// source order is authoritative: a discounted price is printed directly
// beneath the original and overrides it. A trailing negative candidate is
// the printed reduction rather than a new price, so it is applied against
// the candidate before it. Zero is a legitimate markdown result and is
// retained. Superseded candidates are returned so the caller can record
// them in processing notes for auditing.
func SelectPrice(c CandidateItem) (cents int64, superseded []int64) {
	n := len(c.PriceCandidates)
	if n == 0 {
		return 0, nil
	}
	if n == 1 {
		return c.PriceCandidates[0], nil
	}

	last := c.PriceCandidates[n-1]
	if last < 0 {
		base := c.PriceCandidates[n-2]
		price := base + last
		if price < 0 {
			price = 0
		}
		return price, append([]int64(nil), c.PriceCandidates[:n-1]...)
	}
	return last, append([]int64(nil), c.PriceCandidates[:n-1]...)
}
