package market

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// GetOrderBook 获取五档盘口。闭市或停牌导致无实时盘口时回退到该证券
// 最近一次有效快照（IsHistoricalData=true）；从无有效快照则返回空盘口。
// 缺盘口是正常市场状态而非异常，本方法对此不报错。
func (e *Engine) GetOrderBook(ctx context.Context, symbol string, opts ...CallOption) (*OrderBook, error) {
	if _, _, _, err := Resolve(symbol); err != nil {
		return nil, err
	}

	book, err := e.fetchOrderBook(ctx, symbol, opts...)
	if err != nil {
		e.log.Warn("order book fetch failed, falling back to last known good",
			zap.String("symbol", symbol), zap.Error(err))
		return e.lastGoodOrEmpty(symbol), nil
	}

	if len(book.Bids) == 0 && len(book.Asks) == 0 {
		return e.lastGoodOrEmpty(symbol), nil
	}

	// 成功快照覆盖历史槽位，后写覆盖
	e.books.Add(symbol, book)
	return book, nil
}

func (e *Engine) fetchOrderBook(ctx context.Context, symbol string, opts ...CallOption) (*OrderBook, error) {
	var lastErr error
	for _, p := range e.candidates(opts...) {
		fctx, cancel := context.WithTimeout(ctx, e.options().FetchTimeout)
		book, err := p.FetchOrderBook(fctx, symbol)
		cancel()
		if err == nil {
			return book, nil
		}
		lastErr = err
	}
	return nil, WrapErr(ErrAllProvidersFailed, lastErr)
}

func (e *Engine) lastGoodOrEmpty(symbol string) *OrderBook {
	if prev, ok := e.books.Get(symbol); ok {
		return &OrderBook{
			Symbol:           symbol,
			Bids:             prev.Bids,
			Asks:             prev.Asks,
			IsHistoricalData: true,
			Time:             prev.Time,
		}
	}
	return &OrderBook{
		Symbol: symbol,
		Bids:   []OrderBookLevel{},
		Asks:   []OrderBookLevel{},
		Time:   time.Now(),
	}
}
