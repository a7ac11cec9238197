package market

import (
	"math"

	"github.com/shopspring/decimal"
)

// indexScaleThreshold 指数点位放大判定阈值。上游指数行情常以“点位×100”的整数下发，
// A股指数自然点位约在 1000~20000 之间，放大后必然超过该阈值；低于阈值视为已是自然点位。
// 这是启发式策略而非硬不变量，阈值判断只在未归一化的快照上执行一次。
const indexScaleThreshold = 100000

// quoteRule 行情归一化规则，按固定顺序组成流水线。
// 顺序即正确性：涨跌重算必须基于已缩放的点位，残余百分比修正必须在重算之后。
type quoteRule struct {
	name  string
	apply func(q Quote, isIndex bool) Quote
}

var quoteRules = []quoteRule{
	{"descale_index_points", descaleIndexPoints},
	{"recompute_change", recomputeChange},
	{"fix_residual_percent", fixResidualPercent},
	{"reconcile_price_alias", reconcilePriceAlias},
	{"mark_processed", markProcessed},
}

// NormalizeQuote 对适配器输出的原始快照执行归一化流水线。
// 对已归一化的快照重复调用是幂等的。
func NormalizeQuote(q Quote) Quote {
	_, _, isIndex, err := Resolve(q.Symbol)
	if err != nil {
		isIndex = false
	}
	for _, rule := range quoteRules {
		q = rule.apply(q, isIndex)
	}
	return q
}

// NormalizeQuotes 批量归一化，nil 条目原样保留
func NormalizeQuotes(quotes []*Quote) []*Quote {
	for i, q := range quotes {
		if q == nil {
			continue
		}
		nq := NormalizeQuote(*q)
		quotes[i] = &nq
	}
	return quotes
}

// descaleIndexPoints 修正指数“点位×100”异常：点位及其衍生价格字段整体除以 100。
// IsProcessed 快照跳过，保证缩放最多执行一次。
func descaleIndexPoints(q Quote, isIndex bool) Quote {
	if q.IsProcessed || !isIndex {
		return q
	}
	if math.Max(q.Price, q.CurrentPoint) <= indexScaleThreshold {
		return q
	}
	q.Price /= 100
	q.CurrentPoint /= 100
	q.Change /= 100
	q.Open /= 100
	q.PrevClose /= 100
	q.High /= 100
	q.Low /= 100
	return q
}

// recomputeChange 以昨收为基准重算涨跌额与涨跌幅。上游涨跌额偏差不超过 0.01 时保留原值，
// 涨跌幅始终由重算后的涨跌额导出，不信任上游百分比。
func recomputeChange(q Quote, _ bool) Quote {
	if q.PrevClose == 0 {
		return q
	}
	price := q.Price
	if price == 0 {
		price = q.CurrentPoint
	}
	if price == 0 {
		return q
	}
	change := round2(price - q.PrevClose)
	if math.Abs(q.Change-change) > 0.01 {
		q.Change = change
	}
	q.ChangePercent = q.Change / q.PrevClose * 100
	return q
}

// fixResidualPercent 兜底修正：上游缩放了价格却漏掉百分比时，
// 重算未能覆盖（昨收缺失）的超界百分比按 ×100 回退。
func fixResidualPercent(q Quote, isIndex bool) Quote {
	if q.IsProcessed || !isIndex {
		return q
	}
	if math.Abs(q.ChangePercent) > 100 {
		q.ChangePercent /= 100
	}
	return q
}

// reconcilePriceAlias 统一 price 与 currentPoint 别名：两者都有且偏差超过 0.01 时以 price 为准，
// 只有一方存在时回填另一方。
func reconcilePriceAlias(q Quote, _ bool) Quote {
	switch {
	case q.Price != 0 && q.CurrentPoint != 0:
		if math.Abs(q.Price-q.CurrentPoint) > 0.01 {
			q.CurrentPoint = q.Price
		}
	case q.Price == 0 && q.CurrentPoint != 0:
		q.Price = q.CurrentPoint
	case q.Price != 0 && q.CurrentPoint == 0:
		q.CurrentPoint = q.Price
	}
	return q
}

// NormalizeTimeSeries 对指数分时应用与行情相同的 ×100 点位修正，
// 股票分时原样返回。原切片被就地修改并返回。
func NormalizeTimeSeries(symbol string, points []TimeSeriesPoint) []TimeSeriesPoint {
	if !IsIndexSymbol(symbol) || len(points) == 0 {
		return points
	}
	maxPrice := 0.0
	for _, p := range points {
		if p.Price > maxPrice {
			maxPrice = p.Price
		}
	}
	if maxPrice <= indexScaleThreshold {
		return points
	}
	for i := range points {
		points[i].Price /= 100
		points[i].AvgPrice /= 100
		points[i].Change /= 100
	}
	return points
}

func markProcessed(q Quote, _ bool) Quote {
	q.IsProcessed = true
	return q
}

func round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
