package orderbook

// SymbolSpecification is the part of the instrument definition the book
// needs.
type SymbolSpecification interface {
	// IsExchangeType reports exchange mode (as opposed to margin mode).
	// Exchange-mode bids are bounded by their reserved bid price.
	IsExchangeType() bool
}

type SymbolSpec struct {
	SymbolID     int32
	ExchangeType bool
}

func (s SymbolSpec) IsExchangeType() bool { return s.ExchangeType }
