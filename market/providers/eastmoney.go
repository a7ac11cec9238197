// Package providers 实现新浪与东方财富两套行情源适配器
package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/lt-one/mindora-quote/market"
)

// 东方财富接口地址
const (
	eastmoneyQuoteURL  = "https://push2.eastmoney.com/api/qt/stock/get"
	eastmoneyKlineURL  = "https://push2his.eastmoney.com/api/qt/stock/kline/get"
	eastmoneyTrendsURL = "https://push2his.eastmoney.com/api/qt/stock/trends2/get"
	eastmoneyIndexURL  = "https://push2.eastmoney.com/api/qt/ulist.np/get"
	eastmoneyListURL   = "https://82.push2.eastmoney.com/api/qt/clist/get"

	eastmoneyReferer = "https://quote.eastmoney.com/"
	userAgent        = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	listPageSize = 500
)

// 行情接口字段：f43 最新价 f44 最高 f45 最低 f46 今开 f47 成交量 f48 成交额
// f57 代码 f58 名称 f60 昨收 f116 总市值 f117 流通市值 f162 市盈率(动) f167 市净率
// f168 换手率 f169 涨跌额 f170 涨跌幅；价格/百分比类字段均为 ×100 的整数编码。
// 五档买盘 (f19,f20)买一…(f11,f12)买五，卖盘 (f31,f32)卖一…(f39,f40)卖五。
const eastmoneyQuoteFields = "f43,f44,f45,f46,f47,f48,f57,f58,f60,f116,f117,f162,f167,f168,f169,f170," +
	"f11,f12,f13,f14,f15,f16,f17,f18,f19,f20,f31,f32,f33,f34,f35,f36,f37,f38,f39,f40"

// 指数 ulist 接口：f2 现价 f3 涨跌幅 f4 涨跌额 f12 代码 f13 市场 f14 名称
const eastmoneyIndexFields = "f2,f3,f4,f12,f13,f14"

// K线周期对应 klt 编码
var eastmoneyPeriods = map[market.Period]string{
	market.PeriodDaily:   "101",
	market.PeriodWeekly:  "102",
	market.PeriodMonthly: "103",
	market.Period5Min:    "5",
	market.Period15Min:   "15",
	market.Period30Min:   "30",
	market.Period60Min:   "60",
}

// EastmoneyProvider 东方财富行情源
type EastmoneyProvider struct {
	client *http.Client
}

// NewEastmoneyProvider 创建东方财富适配器，timeout<=0 时默认 10 秒
func NewEastmoneyProvider(timeout time.Duration) *EastmoneyProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &EastmoneyProvider{
		client: &http.Client{Timeout: timeout},
	}
}

func (ep *EastmoneyProvider) Name() string {
	return "eastmoney"
}

// Client 暴露底层 HTTP 客户端，供测试拦截请求
func (ep *EastmoneyProvider) Client() *http.Client {
	return ep.client
}

func (ep *EastmoneyProvider) FetchQuote(ctx context.Context, symbol string) (*market.Quote, error) {
	secID, err := market.SecID(symbol)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s?secid=%s&fields=%s", eastmoneyQuoteURL, secID, eastmoneyQuoteFields)
	body, err := ep.doGet(ctx, url)
	if err != nil {
		return nil, err
	}

	data := gjson.GetBytes(body, "data")
	if !data.Exists() || data.Type == gjson.Null {
		return nil, market.WrapErrf(market.ErrMalformedResponse, "eastmoney quote: missing data envelope for %s", symbol)
	}
	if !data.Get("f43").Exists() {
		return nil, market.WrapErrf(market.ErrMalformedResponse, "eastmoney quote: missing f43 for %s", symbol)
	}

	q := &market.Quote{
		Symbol:               symbol,
		Name:                 data.Get("f58").String(),
		Price:                data.Get("f43").Float() / 100,
		High:                 data.Get("f44").Float() / 100,
		Low:                  data.Get("f45").Float() / 100,
		Open:                 data.Get("f46").Float() / 100,
		Volume:               data.Get("f47").Int(),
		Amount:               data.Get("f48").Float(),
		PrevClose:            data.Get("f60").Float() / 100,
		MarketCap:            data.Get("f116").Float(),
		CirculationMarketCap: data.Get("f117").Float(),
		PE:                   data.Get("f162").Float() / 100,
		PB:                   data.Get("f167").Float() / 100,
		TurnoverRate:         data.Get("f168").Float() / 100,
		Change:               data.Get("f169").Float() / 100,
		ChangePercent:        data.Get("f170").Float() / 100,
		Time:                 time.Now(),
		Source:               ep.Name(),
	}
	q.Bids = parseBookLevels(data, [][2]string{{"f19", "f20"}, {"f17", "f18"}, {"f15", "f16"}, {"f13", "f14"}, {"f11", "f12"}})
	q.Asks = parseBookLevels(data, [][2]string{{"f31", "f32"}, {"f33", "f34"}, {"f35", "f36"}, {"f37", "f38"}, {"f39", "f40"}})
	return q, nil
}

// parseBookLevels 按最优到最差的键对提取盘口档位，零价档位直接丢弃
func parseBookLevels(data gjson.Result, keys [][2]string) []market.OrderBookLevel {
	levels := make([]market.OrderBookLevel, 0, len(keys))
	for _, kv := range keys {
		price := data.Get(kv[0]).Float() / 100
		if price <= 0 {
			continue
		}
		levels = append(levels, market.OrderBookLevel{
			Price:  price,
			Volume: data.Get(kv[1]).Int(),
		})
	}
	return levels
}

func (ep *EastmoneyProvider) FetchKline(ctx context.Context, symbol string, period market.Period, count int) ([]market.KlinePoint, error) {
	secID, err := market.SecID(symbol)
	if err != nil {
		return nil, err
	}
	klt, ok := eastmoneyPeriods[period]
	if !ok {
		return nil, market.WrapErrf(market.ErrUnsupportedPeriod, "eastmoney kline: unknown period %q", period)
	}
	if count <= 0 {
		count = 90
	}
	url := fmt.Sprintf("%s?secid=%s&fields1=f1,f2,f3,f4,f5,f6&fields2=f51,f52,f53,f54,f55,f56,f57,f58,f59,f60,f61&klt=%s&fqt=1&end=20500101&lmt=%d",
		eastmoneyKlineURL, secID, klt, count)
	body, err := ep.doGet(ctx, url)
	if err != nil {
		return nil, err
	}

	rows := gjson.GetBytes(body, "data.klines")
	if !rows.Exists() || !rows.IsArray() {
		return nil, market.WrapErrf(market.ErrMalformedResponse, "eastmoney kline: no data.klines for %s", symbol)
	}

	arr := rows.Array()
	points := make([]market.KlinePoint, 0, len(arr))
	for _, row := range arr {
		// 行格式：日期,开,收,高,低,量,额,振幅,涨跌幅,涨跌额,换手率
		parts := strings.Split(row.String(), ",")
		if len(parts) < 6 {
			continue
		}
		p := market.KlinePoint{Date: parts[0]}
		p.Open = parseF(parts, 1)
		p.Close = parseF(parts, 2)
		p.High = parseF(parts, 3)
		p.Low = parseF(parts, 4)
		p.Volume = parseI(parts, 5)
		p.Amount = parseF(parts, 6)
		p.Amplitude = parseF(parts, 7)
		p.ChangePercent = parseF(parts, 8)
		p.Change = parseF(parts, 9)
		p.TurnoverRate = parseF(parts, 10)
		points = append(points, p)
	}
	return points, nil
}

func (ep *EastmoneyProvider) FetchTimeSeries(ctx context.Context, symbol string) ([]market.TimeSeriesPoint, error) {
	secID, err := market.SecID(symbol)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s?secid=%s&fields1=f1,f2,f3,f8&fields2=f51,f52,f53,f54,f55,f56,f57,f58&ndays=1&iscr=0",
		eastmoneyTrendsURL, secID)
	body, err := ep.doGet(ctx, url)
	if err != nil {
		return nil, err
	}

	data := gjson.GetBytes(body, "data")
	rows := data.Get("trends")
	if !data.Exists() || !rows.IsArray() {
		return nil, market.WrapErrf(market.ErrMalformedResponse, "eastmoney trends: no data.trends for %s", symbol)
	}
	prevClose := data.Get("prePrice").Float()

	arr := rows.Array()
	points := make([]market.TimeSeriesPoint, 0, len(arr))
	for _, row := range arr {
		// 行格式：时间,开,价,高,低,量,额,均价
		parts := strings.Split(row.String(), ",")
		if len(parts) < 8 {
			continue
		}
		p := market.TimeSeriesPoint{
			Time:     clockOf(parts[0]),
			Price:    parseF(parts, 2),
			Volume:   parseI(parts, 5),
			Amount:   parseF(parts, 6),
			AvgPrice: parseF(parts, 7),
		}
		if prevClose > 0 {
			p.Change = p.Price - prevClose
			p.ChangePercent = p.Change / prevClose * 100
		}
		points = append(points, p)
	}
	return points, nil
}

func (ep *EastmoneyProvider) FetchOrderBook(ctx context.Context, symbol string) (*market.OrderBook, error) {
	q, err := ep.FetchQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return &market.OrderBook{
		Symbol: symbol,
		Bids:   q.Bids,
		Asks:   q.Asks,
		Time:   q.Time,
	}, nil
}

func (ep *EastmoneyProvider) FetchIndices(ctx context.Context, symbols []string) ([]market.Quote, error) {
	secIDs := make([]string, 0, len(symbols))
	for _, s := range symbols {
		id, err := market.SecID(s)
		if err != nil {
			return nil, err
		}
		secIDs = append(secIDs, id)
	}
	url := fmt.Sprintf("%s?secids=%s&fields=%s", eastmoneyIndexURL, strings.Join(secIDs, ","), eastmoneyIndexFields)
	body, err := ep.doGet(ctx, url)
	if err != nil {
		return nil, err
	}

	diff := gjson.GetBytes(body, "data.diff")
	if !diff.Exists() || !diff.IsArray() {
		return nil, market.WrapErr(market.ErrMalformedResponse, fmt.Errorf("eastmoney ulist: no data.diff"))
	}

	arr := diff.Array()
	quotes := make([]market.Quote, 0, len(arr))
	for i, v := range arr {
		symbol := ""
		if i < len(symbols) {
			symbol = symbols[i]
		}
		quotes = append(quotes, market.Quote{
			Symbol:        symbol,
			Name:          v.Get("f14").String(),
			CurrentPoint:  v.Get("f2").Float() / 100,
			ChangePercent: v.Get("f3").Float() / 100,
			Change:        v.Get("f4").Float() / 100,
			Time:          time.Now(),
			Source:        ep.Name(),
		})
	}
	return quotes, nil
}

func (ep *EastmoneyProvider) FetchSymbolList(ctx context.Context) ([]market.SymbolInfo, error) {
	var all []market.SymbolInfo
	for page := 1; ; page++ {
		url := fmt.Sprintf("%s?pn=%d&pz=%d&fs=m:0+t:6,m:0+t:80,m:1+t:2,m:1+t:23&fields=f12,f13,f14",
			eastmoneyListURL, page, listPageSize)
		body, err := ep.doGet(ctx, url)
		if err != nil {
			return nil, err
		}
		diff := gjson.GetBytes(body, "data.diff")
		if !diff.Exists() {
			if page == 1 {
				return nil, market.WrapErr(market.ErrMalformedResponse, fmt.Errorf("eastmoney clist: no data.diff"))
			}
			break
		}
		count := 0
		diff.ForEach(func(_, v gjson.Result) bool {
			code := v.Get("f12").String()
			if code == "" {
				return true
			}
			prefix := "sz"
			if v.Get("f13").Int() == int64(market.MarketShanghai) {
				prefix = "sh"
			}
			all = append(all, market.SymbolInfo{
				Symbol: prefix + code,
				Code:   code,
				Name:   v.Get("f14").String(),
			})
			count++
			return true
		})
		total := int(gjson.GetBytes(body, "data.total").Int())
		if count < listPageSize || (total > 0 && len(all) >= total) {
			break
		}
	}
	return all, nil
}

func (ep *EastmoneyProvider) doGet(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, market.WrapErr(market.ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Referer", eastmoneyReferer)
	req.Header.Set("User-Agent", userAgent)

	resp, err := ep.client.Do(req)
	if err != nil {
		return nil, market.WrapErr(market.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, market.WrapErrf(market.ErrUpstreamUnavailable, "eastmoney: http %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, market.WrapErr(market.ErrUpstreamUnavailable, err)
	}
	return body, nil
}

// clockOf 取 "2024-01-02 09:30" 的 HH:MM 部分
func clockOf(datetime string) string {
	if i := strings.IndexByte(datetime, ' '); i >= 0 {
		return datetime[i+1:]
	}
	return datetime
}

func parseF(parts []string, i int) float64 {
	if i >= len(parts) {
		return 0
	}
	v, _ := strconv.ParseFloat(parts[i], 64)
	return v
}

func parseI(parts []string, i int) int64 {
	if i >= len(parts) {
		return 0
	}
	v, _ := strconv.ParseInt(parts[i], 10, 64)
	return v
}
