package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"

	"github.com/lt-one/mindora-quote/market"
)

const (
	sinaQuoteURL = "https://hq.sinajs.cn/list="
	sinaKlineURL = "https://money.finance.sina.com.cn/quotes_service/api/json_v2.php/CN_MarketData.getKLineData"
	sinaReferer  = "https://finance.sina.com.cn"
)

// K线周期对应 scale 参数（分钟数），新浪不提供日内K线
var sinaScales = map[market.Period]int{
	market.PeriodDaily:   240,
	market.PeriodWeekly:  1200,
	market.PeriodMonthly: 7200,
}

// SinaProvider 新浪行情源。分时、盘口深度与证券列表不可用，
// 相应操作返回 ErrUnsupportedOperation。
type SinaProvider struct {
	client *http.Client
}

// NewSinaProvider 创建新浪适配器，timeout<=0 时默认 10 秒
func NewSinaProvider(timeout time.Duration) *SinaProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SinaProvider{
		client: &http.Client{Timeout: timeout},
	}
}

func (sp *SinaProvider) Name() string {
	return "sina"
}

// Client 暴露底层 HTTP 客户端，供测试拦截请求
func (sp *SinaProvider) Client() *http.Client {
	return sp.client
}

// FetchQuote 获取实时行情。响应为 GBK 编码的引号包裹逗号串：
// 0 名称 1 今开 2 昨收 3 现价 4 最高 5 最低 8 成交量(股) 9 成交额(元)
// 10..19 买一至买五(量,价) 20..29 卖一至卖五(量,价) 30 日期 31 时间
func (sp *SinaProvider) FetchQuote(ctx context.Context, symbol string) (*market.Quote, error) {
	sinaSym, err := market.SinaSymbol(symbol)
	if err != nil {
		return nil, err
	}
	body, err := sp.doGet(ctx, sinaQuoteURL+sinaSym)
	if err != nil {
		return nil, err
	}

	parts, err := splitHqPayload(string(body))
	if err != nil {
		return nil, market.WrapErrf(market.ErrMalformedResponse, "sina quote %s: %v", symbol, err)
	}
	if len(parts) < 32 {
		return nil, market.WrapErrf(market.ErrMalformedResponse, "sina quote %s: %d fields", symbol, len(parts))
	}

	open, _ := strconv.ParseFloat(parts[1], 64)
	prevClose, _ := strconv.ParseFloat(parts[2], 64)
	price, _ := strconv.ParseFloat(parts[3], 64)
	high, _ := strconv.ParseFloat(parts[4], 64)
	low, _ := strconv.ParseFloat(parts[5], 64)
	volume, _ := strconv.ParseInt(parts[8], 10, 64)
	amount, _ := strconv.ParseFloat(parts[9], 64)
	ts, _ := time.ParseInLocation("2006-01-02 15:04:05", parts[30]+" "+parts[31], time.Local)

	q := &market.Quote{
		Symbol:    symbol,
		Name:      strings.TrimSpace(parts[0]),
		Price:     price,
		Open:      open,
		High:      high,
		Low:       low,
		PrevClose: prevClose,
		Volume:    volume,
		Amount:    amount,
		Time:      ts,
		Source:    sp.Name(),
	}
	if prevClose > 0 {
		q.Change = price - prevClose
		q.ChangePercent = q.Change / prevClose * 100
	}
	// 量在前价在后：10 买一量 11 买一价 … 20 卖一量 21 卖一价 …
	for i := 0; i < 5; i++ {
		q.Bids = appendLevel(q.Bids, parts, 11+i*2, 10+i*2)
		q.Asks = appendLevel(q.Asks, parts, 21+i*2, 20+i*2)
	}
	return q, nil
}

func appendLevel(levels []market.OrderBookLevel, parts []string, priceIdx, volIdx int) []market.OrderBookLevel {
	if priceIdx >= len(parts) || volIdx >= len(parts) {
		return levels
	}
	price, _ := strconv.ParseFloat(parts[priceIdx], 64)
	if price <= 0 {
		return levels
	}
	vol, _ := strconv.ParseInt(parts[volIdx], 10, 64)
	return append(levels, market.OrderBookLevel{Price: price, Volume: vol})
}

type sinaKlineRow struct {
	Day    string `json:"day"`
	Open   string `json:"open"`
	High   string `json:"high"`
	Low    string `json:"low"`
	Close  string `json:"close"`
	Volume string `json:"volume"`
}

func (sp *SinaProvider) FetchKline(ctx context.Context, symbol string, period market.Period, count int) ([]market.KlinePoint, error) {
	sinaSym, err := market.SinaSymbol(symbol)
	if err != nil {
		return nil, err
	}
	scale, ok := sinaScales[period]
	if !ok {
		return nil, market.WrapErrf(market.ErrUnsupportedPeriod, "sina kline: period %q not available, use eastmoney", period)
	}
	if count <= 0 {
		count = 90
	}
	url := fmt.Sprintf("%s?symbol=%s&scale=%d&ma=no&datalen=%d", sinaKlineURL, sinaSym, scale, count)
	body, err := sp.doGet(ctx, url)
	if err != nil {
		return nil, err
	}

	var rows []sinaKlineRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, market.WrapErrf(market.ErrMalformedResponse, "sina kline %s: %v", symbol, err)
	}

	points := make([]market.KlinePoint, 0, len(rows))
	for i, r := range rows {
		open, _ := strconv.ParseFloat(r.Open, 64)
		high, _ := strconv.ParseFloat(r.High, 64)
		low, _ := strconv.ParseFloat(r.Low, 64)
		closeVal, _ := strconv.ParseFloat(r.Close, 64)
		volume, _ := strconv.ParseInt(r.Volume, 10, 64)

		p := market.KlinePoint{
			Date:   r.Day,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closeVal,
			Volume: volume,
		}
		// 新浪行内不含涨跌字段，以前一根收盘为基准推算
		base := open
		if i > 0 {
			base = points[i-1].Close
		}
		if base > 0 {
			p.Change = closeVal - base
			p.ChangePercent = p.Change / base * 100
			p.Amplitude = (high - low) / base * 100
		}
		points = append(points, p)
	}
	return points, nil
}

func (sp *SinaProvider) FetchTimeSeries(ctx context.Context, symbol string) ([]market.TimeSeriesPoint, error) {
	return nil, market.WrapErrf(market.ErrUnsupportedOperation, "sina: no intraday time-series endpoint")
}

func (sp *SinaProvider) FetchOrderBook(ctx context.Context, symbol string) (*market.OrderBook, error) {
	return nil, market.WrapErrf(market.ErrUnsupportedOperation, "sina: order-book depth not available, use eastmoney")
}

func (sp *SinaProvider) FetchSymbolList(ctx context.Context) ([]market.SymbolInfo, error) {
	return nil, market.WrapErrf(market.ErrUnsupportedOperation, "sina: symbol list not available, use eastmoney")
}

// FetchIndices 获取指数概览，s_ 前缀紧凑格式：名称,点位,涨跌额,涨跌幅,成交量(手),成交额(万)
func (sp *SinaProvider) FetchIndices(ctx context.Context, symbols []string) ([]market.Quote, error) {
	keys := make([]string, 0, len(symbols))
	for _, s := range symbols {
		sinaSym, err := market.SinaSymbol(s)
		if err != nil {
			return nil, err
		}
		keys = append(keys, "s_"+sinaSym)
	}
	body, err := sp.doGet(ctx, sinaQuoteURL+strings.Join(keys, ","))
	if err != nil {
		return nil, err
	}

	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	quotes := make([]market.Quote, 0, len(symbols))
	for i, line := range lines {
		parts, err := splitHqPayload(line)
		if err != nil || len(parts) < 4 {
			continue
		}
		symbol := ""
		if i < len(symbols) {
			symbol = symbols[i]
		}
		point, _ := strconv.ParseFloat(parts[1], 64)
		change, _ := strconv.ParseFloat(parts[2], 64)
		pct, _ := strconv.ParseFloat(parts[3], 64)
		q := market.Quote{
			Symbol:        symbol,
			Name:          strings.TrimSpace(parts[0]),
			CurrentPoint:  point,
			Change:        change,
			ChangePercent: pct,
			Time:          time.Now(),
			Source:        sp.Name(),
		}
		if len(parts) > 5 {
			q.Volume, _ = strconv.ParseInt(parts[4], 10, 64)
			q.Amount, _ = strconv.ParseFloat(parts[5], 64)
		}
		quotes = append(quotes, q)
	}
	if len(quotes) == 0 {
		return nil, market.WrapErrf(market.ErrMalformedResponse, "sina indices: empty payload")
	}
	return quotes, nil
}

func (sp *SinaProvider) doGet(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, market.WrapErr(market.ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Referer", sinaReferer)
	req.Header.Set("User-Agent", userAgent)

	resp, err := sp.client.Do(req)
	if err != nil {
		return nil, market.WrapErr(market.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, market.WrapErrf(market.ErrUpstreamUnavailable, "sina: http %d", resp.StatusCode)
	}
	// 新浪行情为 GBK 编码
	body, err := io.ReadAll(transform.NewReader(resp.Body, simplifiedchinese.GBK.NewDecoder()))
	if err != nil {
		return nil, market.WrapErr(market.ErrUpstreamUnavailable, err)
	}
	return body, nil
}

// splitHqPayload 取 var hq_str_xxx="..." 引号内的逗号分隔字段
func splitHqPayload(line string) ([]string, error) {
	segs := strings.Split(line, "\"")
	if len(segs) < 2 || segs[1] == "" {
		return nil, fmt.Errorf("no quoted payload")
	}
	return strings.Split(segs[1], ","), nil
}
