package market

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/lt-one/mindora-quote/cache"
)

// TTLPolicy 各类数据的缓存时长，策略常量而非硬性约束
type TTLPolicy struct {
	Quote      time.Duration
	Kline      time.Duration
	Indices    time.Duration
	SymbolList time.Duration
}

// DefaultTTLPolicy 行情 5 分钟、K线 60 分钟、指数 5 分钟、证券列表 24 小时
func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		Quote:      5 * time.Minute,
		Kline:      60 * time.Minute,
		Indices:    5 * time.Minute,
		SymbolList: 24 * time.Hour,
	}
}

// Options 引擎运行参数
type Options struct {
	DefaultSource    string   // 默认数据源，空值取 eastmoney
	FetchTimeout     time.Duration // 单次上游调用超时
	KlineCount       int      // K线默认条数
	VolatilityWindow int      // 波动率默认窗口
	HotStocks        []string // 热门股代码（按热度排序）
	Indices          []string // 大盘指数代码
	TTL              TTLPolicy
}

func (o *Options) fillDefaults() {
	if o.DefaultSource == "" {
		o.DefaultSource = "eastmoney"
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 10 * time.Second
	}
	if o.KlineCount <= 0 {
		o.KlineCount = 90
	}
	if o.VolatilityWindow <= 0 {
		o.VolatilityWindow = VolDefaultWindow
	}
	if len(o.Indices) == 0 {
		o.Indices = []string{"sh000001", "sz399001", "sz399006", "sh000300"}
	}
	if o.TTL == (TTLPolicy{}) {
		o.TTL = DefaultTTLPolicy()
	}
}

// lastGoodBookSize 盘口“最近有效快照”槽位上限。槽位只被成功抓取覆盖，从不自行过期。
const lastGoodBookSize = 512

// Engine 行情引擎：统一调度数据源、缓存与归一化，是路由层唯一的依赖入口。
// 缓存返回的是共享快照，调用方不得原地修改。
type Engine struct {
	mu        sync.RWMutex
	opts      Options
	providers []Provider

	store *cache.Cache
	books *lru.Cache[string, *OrderBook]
	log   *zap.Logger
}

// NewEngine 创建引擎。providers 顺序即兜底顺序，默认源会被排到最前。
func NewEngine(opts Options, store *cache.Cache, log *zap.Logger, providers ...Provider) (*Engine, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("engine requires at least one provider")
	}
	if store == nil {
		store = cache.New()
	}
	if log == nil {
		log = zap.NewNop()
	}
	opts.fillDefaults()

	books, err := lru.New[string, *OrderBook](lastGoodBookSize)
	if err != nil {
		return nil, err
	}
	return &Engine{
		opts:      opts,
		providers: providers,
		store:     store,
		books:     books,
		log:       log,
	}, nil
}

// UpdateOptions 整体替换运行参数（配置热更新入口）
func (e *Engine) UpdateOptions(opts Options) {
	opts.fillDefaults()
	e.mu.Lock()
	e.opts = opts
	e.mu.Unlock()
	e.log.Info("engine options updated",
		zap.String("default_source", opts.DefaultSource),
		zap.Int("hot_stocks", len(opts.HotStocks)))
}

func (e *Engine) options() Options {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.opts
}

// CallOption 单次调用选项
type CallOption func(*callConfig)

type callConfig struct {
	source string
}

// WithSource 单次调用覆盖数据源（"sina" / "eastmoney"）
func WithSource(source string) CallOption {
	return func(c *callConfig) {
		c.source = source
	}
}

// candidates 返回按优先级排列的数据源：指定源（或默认源）在前，其余兜底
func (e *Engine) candidates(opts ...CallOption) []Provider {
	cc := callConfig{}
	for _, o := range opts {
		o(&cc)
	}
	preferred := cc.source
	if preferred == "" {
		preferred = e.options().DefaultSource
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	ordered := make([]Provider, 0, len(e.providers))
	for _, p := range e.providers {
		if p.Name() == preferred {
			ordered = append(ordered, p)
		}
	}
	for _, p := range e.providers {
		if p.Name() != preferred {
			ordered = append(ordered, p)
		}
	}
	return ordered
}

// GetQuote 获取单只证券的归一化行情快照
func (e *Engine) GetQuote(ctx context.Context, symbol string, opts ...CallOption) (*Quote, error) {
	if _, _, _, err := Resolve(symbol); err != nil {
		return nil, err
	}
	key := "quote:" + symbol
	if v, ok := e.store.Get(key); ok {
		return v.(*Quote), nil
	}

	q, err := e.fetchQuote(ctx, symbol, opts...)
	if err != nil {
		return nil, err
	}
	nq := NormalizeQuote(*q)
	e.store.Set(key, &nq, e.options().TTL.Quote)
	return &nq, nil
}

func (e *Engine) fetchQuote(ctx context.Context, symbol string, opts ...CallOption) (*Quote, error) {
	var lastErr error
	for _, p := range e.candidates(opts...) {
		q, err := e.withTimeout(ctx, func(fctx context.Context) (*Quote, error) {
			return p.FetchQuote(fctx, symbol)
		})
		if err == nil {
			return q, nil
		}
		if errors.Is(err, ErrInvalidSymbol) {
			return nil, err
		}
		lastErr = err
		e.log.Warn("quote fetch failed, trying next source",
			zap.String("symbol", symbol), zap.String("source", p.Name()), zap.Error(err))
	}
	return nil, WrapErr(ErrAllProvidersFailed, lastErr)
}

// GetMultipleQuotes 并发获取多只证券行情。单只失败只记日志并在结果中缺席，
// 不中断其余抓取；所有任务汇合后才返回。
func (e *Engine) GetMultipleQuotes(ctx context.Context, symbols []string, opts ...CallOption) map[string]*Quote {
	results := make(map[string]*Quote, len(symbols))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, symbol := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			q, err := e.GetQuote(ctx, symbol, opts...)
			if err != nil {
				e.log.Warn("batch quote degraded to absent",
					zap.String("symbol", symbol), zap.Error(err))
				return
			}
			mu.Lock()
			results[symbol] = q
			mu.Unlock()
		}(symbol)
	}
	wg.Wait()
	return results
}

// GetKLine 获取K线序列。新浪不支持日内周期时自动落到东方财富。
func (e *Engine) GetKLine(ctx context.Context, symbol string, period Period, count int, opts ...CallOption) ([]KlinePoint, error) {
	if _, _, _, err := Resolve(symbol); err != nil {
		return nil, err
	}
	if count <= 0 {
		count = e.options().KlineCount
	}
	key := fmt.Sprintf("kline:%s:%s:%d", symbol, period, count)
	if v, ok := e.store.Get(key); ok {
		return v.([]KlinePoint), nil
	}

	var lastErr error
	for _, p := range e.candidates(opts...) {
		points, err := e.withTimeoutKline(ctx, p, symbol, period, count)
		if err == nil {
			e.store.Set(key, points, e.options().TTL.Kline)
			return points, nil
		}
		if errors.Is(err, ErrInvalidSymbol) {
			return nil, err
		}
		lastErr = err
		e.log.Warn("kline fetch failed, trying next source",
			zap.String("symbol", symbol), zap.String("source", p.Name()),
			zap.String("period", string(period)), zap.Error(err))
	}
	return nil, WrapErr(ErrAllProvidersFailed, lastErr)
}

// GetTimeSeries 获取当日分时数据，指数点位异常同样被修正
func (e *Engine) GetTimeSeries(ctx context.Context, symbol string, opts ...CallOption) ([]TimeSeriesPoint, error) {
	if _, _, _, err := Resolve(symbol); err != nil {
		return nil, err
	}
	key := "ts:" + symbol
	if v, ok := e.store.Get(key); ok {
		return v.([]TimeSeriesPoint), nil
	}

	var lastErr error
	for _, p := range e.candidates(opts...) {
		points, err := e.withTimeoutTS(ctx, p, symbol)
		if err == nil {
			points = NormalizeTimeSeries(symbol, points)
			e.store.Set(key, points, e.options().TTL.Quote)
			return points, nil
		}
		if errors.Is(err, ErrInvalidSymbol) {
			return nil, err
		}
		lastErr = err
	}
	return nil, WrapErr(ErrAllProvidersFailed, lastErr)
}

// GetMarketOverview 大盘概览：指数 + 热门股，整体永不因单项失败而报错
func (e *Engine) GetMarketOverview(ctx context.Context, opts ...CallOption) *MarketOverview {
	overview := &MarketOverview{Timestamp: time.Now()}
	opt := e.options()

	if v, ok := e.store.Get("indices"); ok {
		overview.Indices = v.([]Quote)
	} else {
		indices, err := e.fetchIndices(ctx, opt.Indices, opts...)
		if err != nil {
			e.log.Warn("market overview: indices degraded to empty", zap.Error(err))
		} else {
			overview.Indices = indices
			e.store.Set("indices", indices, opt.TTL.Indices)
		}
	}

	overview.HotStocks = e.HotStocks(ctx, len(opt.HotStocks), opts...)
	return overview
}

func (e *Engine) fetchIndices(ctx context.Context, symbols []string, opts ...CallOption) ([]Quote, error) {
	var lastErr error
	for _, p := range e.candidates(opts...) {
		quotes, err := e.withTimeoutIndices(ctx, p, symbols)
		if err == nil {
			for i := range quotes {
				quotes[i] = NormalizeQuote(quotes[i])
			}
			return quotes, nil
		}
		lastErr = err
		e.log.Warn("indices fetch failed, trying next source",
			zap.String("source", p.Name()), zap.Error(err))
	}
	return nil, WrapErr(ErrAllProvidersFailed, lastErr)
}

// HotStocks 按配置热度顺序返回前 count 只热门股行情，失败条目跳过且不破坏顺序
func (e *Engine) HotStocks(ctx context.Context, count int, opts ...CallOption) []Quote {
	symbols := e.options().HotStocks
	if count > 0 && count < len(symbols) {
		symbols = symbols[:count]
	}
	fetched := e.GetMultipleQuotes(ctx, symbols, opts...)

	quotes := make([]Quote, 0, len(symbols))
	for _, symbol := range symbols {
		if q, ok := fetched[symbol]; ok {
			quotes = append(quotes, *q)
		}
	}
	return quotes
}

// GetSymbolList 获取全市场证券列表（24小时缓存）
func (e *Engine) GetSymbolList(ctx context.Context, opts ...CallOption) ([]SymbolInfo, error) {
	if v, ok := e.store.Get("symbol_list"); ok {
		return v.([]SymbolInfo), nil
	}
	var lastErr error
	for _, p := range e.candidates(opts...) {
		list, err := e.withTimeoutList(ctx, p)
		if err == nil {
			e.store.Set("symbol_list", list, e.options().TTL.SymbolList)
			return list, nil
		}
		lastErr = err
	}
	return nil, WrapErr(ErrAllProvidersFailed, lastErr)
}

// withTimeout 为单次上游调用套独立超时；超时等同于上游不可用
func (e *Engine) withTimeout(ctx context.Context, fn func(context.Context) (*Quote, error)) (*Quote, error) {
	fctx, cancel := context.WithTimeout(ctx, e.options().FetchTimeout)
	defer cancel()
	q, err := fn(fctx)
	if err != nil && fctx.Err() == context.DeadlineExceeded {
		return nil, WrapErr(ErrUpstreamUnavailable, fctx.Err())
	}
	return q, err
}

func (e *Engine) withTimeoutKline(ctx context.Context, p Provider, symbol string, period Period, count int) ([]KlinePoint, error) {
	fctx, cancel := context.WithTimeout(ctx, e.options().FetchTimeout)
	defer cancel()
	points, err := p.FetchKline(fctx, symbol, period, count)
	if err != nil && fctx.Err() == context.DeadlineExceeded {
		return nil, WrapErr(ErrUpstreamUnavailable, fctx.Err())
	}
	return points, err
}

func (e *Engine) withTimeoutTS(ctx context.Context, p Provider, symbol string) ([]TimeSeriesPoint, error) {
	fctx, cancel := context.WithTimeout(ctx, e.options().FetchTimeout)
	defer cancel()
	points, err := p.FetchTimeSeries(fctx, symbol)
	if err != nil && fctx.Err() == context.DeadlineExceeded {
		return nil, WrapErr(ErrUpstreamUnavailable, fctx.Err())
	}
	return points, err
}

func (e *Engine) withTimeoutIndices(ctx context.Context, p Provider, symbols []string) ([]Quote, error) {
	fctx, cancel := context.WithTimeout(ctx, e.options().FetchTimeout)
	defer cancel()
	quotes, err := p.FetchIndices(fctx, symbols)
	if err != nil && fctx.Err() == context.DeadlineExceeded {
		return nil, WrapErr(ErrUpstreamUnavailable, fctx.Err())
	}
	return quotes, err
}

func (e *Engine) withTimeoutList(ctx context.Context, p Provider) ([]SymbolInfo, error) {
	fctx, cancel := context.WithTimeout(ctx, e.options().FetchTimeout)
	defer cancel()
	list, err := p.FetchSymbolList(fctx)
	if err != nil && fctx.Err() == context.DeadlineExceeded {
		return nil, WrapErr(ErrUpstreamUnavailable, fctx.Err())
	}
	return list, err
}
