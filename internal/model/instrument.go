package model

// DefaultSymbols is the instrument universe used when none is configured.
// Each symbol owns an independent, continuous price series.
var DefaultSymbols = []string{
	"RELIANCE", "TCS", "HDFCBANK", "INFY", "ICICIBANK",
	"BHARTIARTL", "SBIN", "LICI", "HINDUNILVR", "ITC",
	"KOTAKBANK", "AXISBANK", "LT", "BAJFINANCE", "MARUTI",
	"HCLTECH", "TITAN", "SUNPHARMA", "ASIANPAINT", "ULTRACEMCO",
}

// DefaultSymbol is served by the stocks endpoint when no symbol is given.
const DefaultSymbol = "RELIANCE"
