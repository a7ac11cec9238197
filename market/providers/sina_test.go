package providers

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/h2non/gock"

	"github.com/lt-one/mindora-quote/market"
)

// 字段：名称,开,昨收,价,高,低,买一价,卖一价,量,额,五档买盘(量,价)x5,五档卖盘(量,价)x5,日期,时间
const sinaQuoteFixture = `var hq_str_sh600519="GZMT,1785.00,1790.00,1800.50,1810.00,1780.00,1800.40,1800.60,3000000,5400000000.00,` +
	`100,1800.40,200,1800.30,300,1800.20,400,1800.10,500,1800.00,` +
	`150,1800.60,250,1800.70,350,1800.80,450,1800.90,550,1801.00,` +
	`2025-08-29,15:00:00,00";`

func newTestSina(t *testing.T) *SinaProvider {
	t.Helper()
	p := NewSinaProvider(0)
	gock.InterceptClient(p.Client())
	t.Cleanup(gock.Off)
	return p
}

func TestSinaFetchQuote(t *testing.T) {
	p := newTestSina(t)
	gock.New("https://hq.sinajs.cn").
		Get("/list=sh600519").
		Reply(200).
		BodyString(sinaQuoteFixture)

	q, err := p.FetchQuote(context.Background(), "sh600519")
	if err != nil {
		t.Fatalf("FetchQuote: %v", err)
	}
	if q.Name != "GZMT" {
		t.Errorf("name = %q", q.Name)
	}
	if q.Price != 1800.50 || q.Open != 1785.00 || q.PrevClose != 1790.00 {
		t.Errorf("price/open/prevClose = %v/%v/%v", q.Price, q.Open, q.PrevClose)
	}
	if q.High != 1810.00 || q.Low != 1780.00 {
		t.Errorf("high/low = %v/%v", q.High, q.Low)
	}
	if q.Volume != 3000000 || q.Amount != 5400000000.00 {
		t.Errorf("vol/amount = %d/%v", q.Volume, q.Amount)
	}
	// 涨跌由昨收推算
	if math.Abs(q.Change-10.50) > 0.001 {
		t.Errorf("change = %v, want 10.50", q.Change)
	}
	wantPct := 10.50 / 1790.00 * 100
	if math.Abs(q.ChangePercent-wantPct) > 0.001 {
		t.Errorf("changePercent = %v, want %v", q.ChangePercent, wantPct)
	}
	if len(q.Bids) != 5 || len(q.Asks) != 5 {
		t.Fatalf("book levels = %d/%d, want 5/5", len(q.Bids), len(q.Asks))
	}
	if q.Bids[0].Price != 1800.40 || q.Bids[0].Volume != 100 {
		t.Errorf("bid1 = %+v", q.Bids[0])
	}
	if q.Asks[4].Price != 1801.00 || q.Asks[4].Volume != 550 {
		t.Errorf("ask5 = %+v", q.Asks[4])
	}
	if q.Time.Hour() != 15 || q.Time.Minute() != 0 {
		t.Errorf("time = %v, want 15:00:00", q.Time)
	}
}

func TestSinaFetchQuoteMalformedPayload(t *testing.T) {
	p := newTestSina(t)
	gock.New("https://hq.sinajs.cn").
		Get("/list=sh600519").
		Reply(200).
		BodyString(`var hq_str_sh600519="";`)

	_, err := p.FetchQuote(context.Background(), "sh600519")
	if !errors.Is(err, market.ErrMalformedResponse) {
		t.Errorf("err = %v, want ErrMalformedResponse", err)
	}
}

func TestSinaFetchQuoteHTTPError(t *testing.T) {
	p := newTestSina(t)
	gock.New("https://hq.sinajs.cn").
		Get("/list=sh600519").
		Reply(456)

	_, err := p.FetchQuote(context.Background(), "sh600519")
	if !errors.Is(err, market.ErrUpstreamUnavailable) {
		t.Errorf("err = %v, want ErrUpstreamUnavailable", err)
	}
}

func TestSinaFetchKline(t *testing.T) {
	p := newTestSina(t)
	gock.New("https://money.finance.sina.com.cn").
		Get("/quotes_service/api/json_v2.php/CN_MarketData.getKLineData").
		Reply(200).
		BodyString(`[{"day":"2025-08-28","open":"10.00","high":"10.60","low":"9.90","close":"10.20","volume":"12000"},
			{"day":"2025-08-29","open":"10.20","high":"10.80","low":"10.10","close":"10.50","volume":"15000"}]`)

	points, err := p.FetchKline(context.Background(), "sh600519", market.PeriodDaily, 2)
	if err != nil {
		t.Fatalf("FetchKline: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("len = %d, want 2", len(points))
	}
	if points[1].Date != "2025-08-29" || points[1].Close != 10.50 {
		t.Errorf("last = %+v", points[1])
	}
	// 第二根以前一根收盘为基准
	if math.Abs(points[1].Change-0.30) > 1e-9 {
		t.Errorf("change = %v, want 0.30", points[1].Change)
	}
	wantPct := 0.30 / 10.20 * 100
	if math.Abs(points[1].ChangePercent-wantPct) > 0.001 {
		t.Errorf("changePercent = %v, want %v", points[1].ChangePercent, wantPct)
	}
}

func TestSinaFetchKlineIntradayUnsupported(t *testing.T) {
	p := NewSinaProvider(0)
	for _, period := range []market.Period{market.Period5Min, market.Period15Min, market.Period30Min, market.Period60Min} {
		if _, err := p.FetchKline(context.Background(), "sh600519", period, 10); !errors.Is(err, market.ErrUnsupportedPeriod) {
			t.Errorf("period %s: err = %v, want ErrUnsupportedPeriod", period, err)
		}
	}
}

func TestSinaUnsupportedOperations(t *testing.T) {
	p := NewSinaProvider(0)
	ctx := context.Background()

	if _, err := p.FetchTimeSeries(ctx, "sh600519"); !errors.Is(err, market.ErrUnsupportedOperation) {
		t.Errorf("FetchTimeSeries err = %v, want ErrUnsupportedOperation", err)
	}
	if _, err := p.FetchOrderBook(ctx, "sh600519"); !errors.Is(err, market.ErrUnsupportedOperation) {
		t.Errorf("FetchOrderBook err = %v, want ErrUnsupportedOperation", err)
	}
	if _, err := p.FetchSymbolList(ctx); !errors.Is(err, market.ErrUnsupportedOperation) {
		t.Errorf("FetchSymbolList err = %v, want ErrUnsupportedOperation", err)
	}
}

func TestSinaFetchIndices(t *testing.T) {
	p := newTestSina(t)
	gock.New("https://hq.sinajs.cn").
		Get("/list=s_sh000001,s_sz399001").
		Reply(200).
		BodyString(`var hq_str_s_sh000001="SHCI,3200.50,10.00,0.31,2800000,36000000";` + "\n" +
			`var hq_str_s_sz399001="SZCI,11000.00,27.00,0.25,3200000,41000000";`)

	quotes, err := p.FetchIndices(context.Background(), []string{"sh000001", "sz399001"})
	if err != nil {
		t.Fatalf("FetchIndices: %v", err)
	}
	if len(quotes) != 2 {
		t.Fatalf("len = %d, want 2", len(quotes))
	}
	if quotes[0].Symbol != "sh000001" || quotes[0].Name != "SHCI" {
		t.Errorf("quote 0 = %+v", quotes[0])
	}
	if quotes[0].CurrentPoint != 3200.50 || quotes[0].Change != 10.00 {
		t.Errorf("point/change = %v/%v", quotes[0].CurrentPoint, quotes[0].Change)
	}
	if quotes[1].Volume != 3200000 || quotes[1].Amount != 41000000 {
		t.Errorf("vol/amount = %d/%v", quotes[1].Volume, quotes[1].Amount)
	}
}

func TestSinaFetchIndicesEmptyPayload(t *testing.T) {
	p := newTestSina(t)
	gock.New("https://hq.sinajs.cn").
		Get("/list=").
		Reply(200).
		BodyString("\n")

	_, err := p.FetchIndices(context.Background(), []string{"sh000001"})
	if !errors.Is(err, market.ErrMalformedResponse) {
		t.Errorf("err = %v, want ErrMalformedResponse", err)
	}
}
