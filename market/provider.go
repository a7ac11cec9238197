package market

import "context"

// Provider 数据提供者接口。适配器负责把上游私有报文翻译成统一模型，
// 股票的金额/百分比字段在适配器内还原为自然单位；指数点位×100 异常由归一化流水线处理。
type Provider interface {
	Name() string
	FetchQuote(ctx context.Context, symbol string) (*Quote, error)
	FetchKline(ctx context.Context, symbol string, period Period, count int) ([]KlinePoint, error)
	FetchTimeSeries(ctx context.Context, symbol string) ([]TimeSeriesPoint, error)
	FetchOrderBook(ctx context.Context, symbol string) (*OrderBook, error)
	FetchIndices(ctx context.Context, symbols []string) ([]Quote, error)
	FetchSymbolList(ctx context.Context) ([]SymbolInfo, error)
}
