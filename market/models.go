// Package market 提供统一行情数据模型、代码解析、数据归一化与技术指标计算
package market

import "time"

// Period K线周期
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	Period5Min    Period = "5min"
	Period15Min   Period = "15min"
	Period30Min   Period = "30min"
	Period60Min   Period = "60min"
)

// IsIntraday 是否为日内周期
func (p Period) IsIntraday() bool {
	switch p {
	case Period5Min, Period15Min, Period30Min, Period60Min:
		return true
	}
	return false
}

// Quote 单只证券的实时快照
type Quote struct {
	Symbol               string           `json:"symbol"`
	Name                 string           `json:"name"`
	Price                float64          `json:"price"`
	CurrentPoint         float64          `json:"current_point"` // 指数“当前点位”别名字段，归一后与 Price 一致
	Change               float64          `json:"change"`
	ChangePercent        float64          `json:"change_percent"`
	Open                 float64          `json:"open"`
	High                 float64          `json:"high"`
	Low                  float64          `json:"low"`
	PrevClose            float64          `json:"prev_close"`
	Volume               int64            `json:"volume"`
	Amount               float64          `json:"amount"`
	TurnoverRate         float64          `json:"turnover_rate"`
	PE                   float64          `json:"pe"`
	PB                   float64          `json:"pb"`
	MarketCap            float64          `json:"market_cap"`
	CirculationMarketCap float64          `json:"circulation_market_cap"`
	Bids                 []OrderBookLevel `json:"bids,omitempty"` // 买一到买五
	Asks                 []OrderBookLevel `json:"asks,omitempty"` // 卖一到卖五
	Time                 time.Time        `json:"timestamp"`
	Source               string           `json:"source"`
	IsProcessed          bool             `json:"is_processed"` // 归一化完成标记，区分原始与已处理数据
}

// KlinePoint 一根 OHLCV K线
type KlinePoint struct {
	Date          string  `json:"date"`
	Open          float64 `json:"open"`
	Close         float64 `json:"close"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Volume        int64   `json:"volume"`
	Amount        float64 `json:"amount"`
	Amplitude     float64 `json:"amplitude"`
	ChangePercent float64 `json:"change_percent"`
	Change        float64 `json:"change"`
	TurnoverRate  float64 `json:"turnover_rate"`
}

// TimeSeriesPoint 分时数据点
type TimeSeriesPoint struct {
	Time          string  `json:"time"` // HH:MM
	Price         float64 `json:"price"`
	AvgPrice      float64 `json:"avg_price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Volume        int64   `json:"volume"`
	Amount        float64 `json:"amount"`
}

// OrderBookLevel 盘口单档报价
type OrderBookLevel struct {
	Price  float64 `json:"price"`
	Volume int64   `json:"volume"`
}

// OrderBook 五档盘口，零价档位已被过滤
type OrderBook struct {
	Symbol           string           `json:"symbol"`
	Bids             []OrderBookLevel `json:"bids"`
	Asks             []OrderBookLevel `json:"asks"`
	IsHistoricalData bool             `json:"is_historical_data"`
	Time             time.Time        `json:"timestamp"`
}

// SymbolInfo 证券列表条目
type SymbolInfo struct {
	Symbol string `json:"symbol"`
	Code   string `json:"code"`
	Name   string `json:"name"`
}

// MarketOverview 大盘概览
type MarketOverview struct {
	Indices   []Quote   `json:"indices"`
	HotStocks []Quote   `json:"hot_stocks"`
	Timestamp time.Time `json:"timestamp"`
}
