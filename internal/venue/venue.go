package venue

var (
	_ OrderEntryClient = (*OKXClient)(nil)
	_ OrderEntryClient = (*BybitClient)(nil)

	_ Protocol = (*KrakenProtocol)(nil)
	_ Protocol = (*BinanceProtocol)(nil)
	_ Protocol = (*CoinbaseProtocol)(nil)
	_ Protocol = (*OKXProtocol)(nil)
	_ Protocol = (*OKXOrdersProtocol)(nil)
	_ Protocol = (*BybitOrdersProtocol)(nil)
)
