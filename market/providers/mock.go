package providers

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/lt-one/mindora-quote/market"
)

// MockProvider 本地模拟行情源，用于演示与离线开发。
// 固定种子时输出可复现。
type MockProvider struct {
	basePrices map[string]float64
	mu         sync.Mutex
	rand       *rand.Rand
}

// NewMockProvider 创建模拟行情源，seed 为 0 时取当前时间
func NewMockProvider(seed int64) *MockProvider {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	mp := &MockProvider{
		basePrices: map[string]float64{
			"sh600519": 1800.00,
			"sh600036": 32.00,
			"sh601318": 45.00,
			"sz000858": 150.00,
			"sz300750": 180.00,
			"sh000001": 3200.00,
			"sz399001": 11000.00,
			"sz399006": 2100.00,
			"sh000300": 3800.00,
		},
		rand: rand.New(rand.NewSource(seed)),
	}
	return mp
}

func (mp *MockProvider) Name() string {
	return "mock"
}

func (mp *MockProvider) basePrice(symbol string) float64 {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	base, ok := mp.basePrices[symbol]
	if !ok {
		base = 10.0 + mp.rand.Float64()*90.0
		mp.basePrices[symbol] = base
	}
	return base
}

func (mp *MockProvider) FetchQuote(ctx context.Context, symbol string) (*market.Quote, error) {
	if _, _, _, err := market.Resolve(symbol); err != nil {
		return nil, err
	}
	base := mp.basePrice(symbol)

	mp.mu.Lock()
	drift := (mp.rand.Float64() - 0.5) * 0.04
	spread := mp.rand.Float64() * 0.005
	volume := int64(mp.rand.Float64() * 10000000)
	mp.mu.Unlock()

	price := base * (1 + drift)
	q := &market.Quote{
		Symbol:    symbol,
		Name:      "MOCK " + symbol,
		Price:     price,
		Open:      base,
		High:      math.Max(base, price) * 1.01,
		Low:       math.Min(base, price) * 0.99,
		PrevClose: base,
		Volume:    volume,
		Amount:    price * float64(volume),
		Time:      time.Now(),
		Source:    mp.Name(),
	}
	q.Change = price - base
	q.ChangePercent = q.Change / base * 100
	for i := 0; i < 5; i++ {
		step := float64(i+1) * spread * price
		q.Bids = append(q.Bids, market.OrderBookLevel{Price: price - step, Volume: volume / 50})
		q.Asks = append(q.Asks, market.OrderBookLevel{Price: price + step, Volume: volume / 50})
	}
	return q, nil
}

func (mp *MockProvider) FetchKline(ctx context.Context, symbol string, period market.Period, count int) ([]market.KlinePoint, error) {
	if _, _, _, err := market.Resolve(symbol); err != nil {
		return nil, err
	}
	if count <= 0 {
		count = 90
	}
	price := mp.basePrice(symbol)

	points := make([]market.KlinePoint, 0, count)
	for i := count; i >= 1; i-- {
		mp.mu.Lock()
		drift := (mp.rand.Float64() - 0.48) * 0.08
		volume := int64(mp.rand.Float64() * 10000000)
		mp.mu.Unlock()

		open := price
		closeVal := price * (1 + drift)
		high := math.Max(open, closeVal) * 1.01
		low := math.Min(open, closeVal) * 0.99

		p := market.KlinePoint{
			Date:   time.Now().AddDate(0, 0, -i).Format("2006-01-02"),
			Open:   open,
			Close:  closeVal,
			High:   high,
			Low:    low,
			Volume: volume,
			Amount: closeVal * float64(volume),
		}
		p.Change = closeVal - open
		p.ChangePercent = p.Change / open * 100
		p.Amplitude = (high - low) / open * 100
		points = append(points, p)

		price = closeVal
	}
	return points, nil
}

func (mp *MockProvider) FetchTimeSeries(ctx context.Context, symbol string) ([]market.TimeSeriesPoint, error) {
	q, err := mp.FetchQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	points := make([]market.TimeSeriesPoint, 0, 60)
	price := q.PrevClose
	sumPrice := 0.0
	for i := 0; i < 60; i++ {
		mp.mu.Lock()
		price *= 1 + (mp.rand.Float64()-0.5)*0.002
		volume := int64(mp.rand.Float64() * 100000)
		mp.mu.Unlock()
		sumPrice += price

		p := market.TimeSeriesPoint{
			Time:     fmt.Sprintf("%02d:%02d", 9+(30+i)/60, (30+i)%60),
			Price:    price,
			AvgPrice: sumPrice / float64(i+1),
			Volume:   volume,
			Amount:   price * float64(volume),
		}
		if q.PrevClose > 0 {
			p.Change = price - q.PrevClose
			p.ChangePercent = p.Change / q.PrevClose * 100
		}
		points = append(points, p)
	}
	return points, nil
}

func (mp *MockProvider) FetchOrderBook(ctx context.Context, symbol string) (*market.OrderBook, error) {
	q, err := mp.FetchQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return &market.OrderBook{Symbol: symbol, Bids: q.Bids, Asks: q.Asks, Time: q.Time}, nil
}

func (mp *MockProvider) FetchIndices(ctx context.Context, symbols []string) ([]market.Quote, error) {
	quotes := make([]market.Quote, 0, len(symbols))
	for _, s := range symbols {
		q, err := mp.FetchQuote(ctx, s)
		if err != nil {
			return nil, err
		}
		q.CurrentPoint = q.Price
		quotes = append(quotes, *q)
	}
	return quotes, nil
}

func (mp *MockProvider) FetchSymbolList(ctx context.Context) ([]market.SymbolInfo, error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	list := make([]market.SymbolInfo, 0, len(mp.basePrices))
	for symbol := range mp.basePrices {
		_, code, _, err := market.Resolve(symbol)
		if err != nil {
			continue
		}
		list = append(list, market.SymbolInfo{Symbol: symbol, Code: code, Name: "MOCK " + symbol})
	}
	return list, nil
}
