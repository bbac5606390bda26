package indicator

import "strconv"

// Catalog builds the fixed indicator set from p. The order is stable and
// determines the order series are computed and merged in.
func Catalog(p Params) ([]Indicator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	inds := make([]Indicator, 0, len(p.SMA)+len(p.EMA)+16)
	for _, period := range p.SMA {
		inds = append(inds, smaIndicator{key: "sma" + strconv.Itoa(period), period: period})
	}
	for _, period := range p.EMA {
		inds = append(inds, emaIndicator{key: "ema" + strconv.Itoa(period), period: period})
	}
	inds = append(inds,
		wmaIndicator{key: "wma", period: p.WMA},
		rsiIndicator{key: "rsi", period: p.RSI},
		macdIndicator{key: "macd", fast: p.MACD.Fast, slow: p.MACD.Slow, signal: p.MACD.Signal},
		bollingerIndicator{key: "bb", period: p.Bollinger.Period, k: p.Bollinger.StdDev},
		atrIndicator{key: "atr", period: p.ATR},
		stochIndicator{key: "stoch", period: p.Stoch.Period, signal: p.Stoch.Signal},
		adxIndicator{key: "adx", period: p.ADX},
		cciIndicator{key: "cci", period: p.CCI},
		wprIndicator{key: "wpr", period: p.WPR},
		obvIndicator{key: "obv"},
		ichimokuIndicator{key: "ichimoku", conversion: p.Ichimoku.Conversion, base: p.Ichimoku.Base, spanB: p.Ichimoku.SpanB},
		psarIndicator{key: "psar", step: p.PSAR.Step, max: p.PSAR.Max},
		mfiIndicator{key: "mfi", period: p.MFI},
		rocIndicator{key: "roc", period: p.ROC},
		trixIndicator{key: "trix", period: p.TRIX},
		keltnerIndicator{key: "keltner", maPeriod: p.Keltner.MAPeriod, atrPeriod: p.Keltner.ATRPeriod, mult: p.Keltner.Multiplier},
	)
	return inds, nil
}

// Keys returns the flattened record keys an indicator populates.
func Keys(ind Indicator) []string { return keysOf(ind.Name(), ind.Fields()) }
