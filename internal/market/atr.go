package market

// ATR calculates the Average True Range over the given period using a
// simple moving average of true ranges. Returns 0 when there are not
// enough candles to cover the period.
func ATR(candles []Candle, period int) float64 {
	if period <= 0 {
		period = 14
	}
	if len(candles) < period+1 {
		return 0
	}

	start := len(candles) - period
	sum := 0.0
	for i := start; i < len(candles); i++ {
		sum += TrueRange(candles[i], candles[i-1])
	}
	return sum / float64(period)
}

// TrueRange returns the true range of a candle given its predecessor
func TrueRange(current, previous Candle) float64 {
	tr := current.High - current.Low
	if hc := abs(current.High - previous.Close); hc > tr {
		tr = hc
	}
	if lc := abs(current.Low - previous.Close); lc > tr {
		tr = lc
	}
	return tr
}
