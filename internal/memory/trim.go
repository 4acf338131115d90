package memory

// trimExchanges enforces both history bounds: most-recent-N exchanges, then
// the token budget. Over budget, message bodies are truncated from the
// oldest exchange forward; whole exchanges are dropped only once every
// retained body is already truncated. Returns the retained exchanges and
// their estimated token total.
func trimExchanges(exchanges []Exchange, est *TokenEstimator, maxExchanges, tokenBudget, renderLimit int) ([]Exchange, int) {
	if len(exchanges) > maxExchanges {
		exchanges = exchanges[len(exchanges)-maxExchanges:]
	}

	total := 0
	for _, ex := range exchanges {
		total += est.countExchange(ex)
	}

	for i := 0; total > tokenBudget && i < len(exchanges); i++ {
		ex := &exchanges[i]
		tq := truncate(ex.Question, renderLimit)
		ta := truncate(ex.Answer, renderLimit)
		if tq == ex.Question && ta == ex.Answer {
			continue
		}
		before := est.countExchange(*ex)
		ex.Question, ex.Answer = tq, ta
		total += est.countExchange(*ex) - before
	}

	for total > tokenBudget && len(exchanges) > 0 {
		total -= est.countExchange(exchanges[0])
		exchanges = exchanges[1:]
	}
	return exchanges, total
}
