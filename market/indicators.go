package market

import "math"

// 技术指标均为纯函数，对齐约定各有不同并刻意保留：
// SMA/波动率输出与输入等长（前部以 NaN/0 占位），RSI 输出比输入短 period 个点，
// MACD 因 EMA 从首根K线起算而全长有效。

const (
	MACDFastPeriod   = 12
	MACDSlowPeriod   = 26
	MACDSignalPeriod = 9
	RSIDefaultPeriod = 14
	VolDefaultWindow = 20

	tradingDaysPerYear = 252
)

// SMASentinel 数据不足时的占位值
var SMASentinel = math.NaN()

// IsSentinel 判断指标值是否为数据不足占位
func IsSentinel(v float64) bool {
	return math.IsNaN(v)
}

// CalculateSMA 简单移动均线。前 period-1 个位置为占位值，其余为窗口均值，滑动求和 O(N)。
func CalculateSMA(points []KlinePoint, period int) []float64 {
	out := make([]float64, len(points))
	if period <= 0 {
		for i := range out {
			out[i] = SMASentinel
		}
		return out
	}
	sum := 0.0
	for i, p := range points {
		sum += p.Close
		if i >= period {
			sum -= points[i-period].Close
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		} else {
			out[i] = SMASentinel
		}
	}
	return out
}

// CalculateMACD 计算 DIF、DEA 与柱状值（(DIF-DEA)*2）。
// EMA 以首根收盘价为种子，因此全序列有效，不做前部占位。
// 周期参数不合法时回落到 12/26/9。
func CalculateMACD(points []KlinePoint, fast, slow, signal int) (dif, dea, hist []float64) {
	if fast <= 0 || slow <= 0 || signal <= 0 {
		fast, slow, signal = MACDFastPeriod, MACDSlowPeriod, MACDSignalPeriod
	}
	closes := make([]float64, len(points))
	for i, p := range points {
		closes[i] = p.Close
	}

	emaFast := calculateEMA(closes, fast)
	emaSlow := calculateEMA(closes, slow)

	dif = make([]float64, len(closes))
	for i := range closes {
		dif[i] = emaFast[i] - emaSlow[i]
	}
	dea = calculateEMA(dif, signal)

	hist = make([]float64, len(closes))
	for i := range closes {
		hist[i] = (dif[i] - dea[i]) * 2
	}
	return dif, dea, hist
}

// calculateEMA 指数移动均线，ema[0] = data[0]，k = 2/(period+1)
func calculateEMA(data []float64, period int) []float64 {
	ema := make([]float64, len(data))
	if len(data) == 0 {
		return ema
	}
	k := 2.0 / float64(period+1)
	ema[0] = data[0]
	for i := 1; i < len(data); i++ {
		ema[i] = data[i]*k + ema[i-1]*(1-k)
	}
	return ema
}

// CalculateRSI Wilder 相对强弱指标。首个均值取前 period 个涨跌的简单均值，
// 之后按 (avg*(period-1)+current)/period 平滑。输出长度为 len(points)-period，
// 序列从第 period 根K线开始（与 SMA 的占位策略不同，刻意保留）。
func CalculateRSI(points []KlinePoint, period int) []float64 {
	if period <= 0 {
		period = RSIDefaultPeriod
	}
	n := len(points)
	if n <= period {
		return nil
	}

	gains := make([]float64, n-1)
	losses := make([]float64, n-1)
	for i := 1; i < n; i++ {
		diff := points[i].Close - points[i-1].Close
		if diff >= 0 {
			gains[i-1] = diff
		} else {
			losses[i-1] = -diff
		}
	}

	avgGain, avgLoss := 0.0, 0.0
	for i := 0; i < period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	out := make([]float64, 0, n-period)
	out = append(out, rsiValue(avgGain, avgLoss))
	for i := period; i < n-1; i++ {
		avgGain = (avgGain*float64(period-1) + gains[i]) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + losses[i]) / float64(period)
		out = append(out, rsiValue(avgGain, avgLoss))
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// CalculateVolatility 滚动对数收益率年化波动率（百分比）。
// 窗口覆盖 window 个收盘价、window-1 个收益率，前 window-1 个位置填 0 以保持与输入日期对齐。
func CalculateVolatility(points []KlinePoint, window int) []float64 {
	if window <= 1 {
		window = VolDefaultWindow
	}
	n := len(points)
	out := make([]float64, n)

	returns := make([]float64, n)
	for i := 1; i < n; i++ {
		if points[i-1].Close > 0 && points[i].Close > 0 {
			returns[i] = math.Log(points[i].Close / points[i-1].Close)
		}
	}

	for i := window - 1; i < n; i++ {
		// 窗口内收益率 returns[i-window+2 .. i]
		lo := i - window + 2
		m := i - lo + 1
		if m < 2 {
			continue
		}
		mean := 0.0
		for j := lo; j <= i; j++ {
			mean += returns[j]
		}
		mean /= float64(m)
		varSum := 0.0
		for j := lo; j <= i; j++ {
			d := returns[j] - mean
			varSum += d * d
		}
		sd := math.Sqrt(varSum / float64(m-1))
		out[i] = sd * math.Sqrt(tradingDaysPerYear) * 100
	}
	return out
}
