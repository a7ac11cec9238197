package market

import (
	"fmt"
	"strings"
)

// MarketID 东方财富市场编号：0 深圳，1 上海
type MarketID int

const (
	MarketShenzhen MarketID = 0
	MarketShanghai MarketID = 1
)

// 指数代码白名单：上证指数、深证成指、创业板指、沪深300
var indexCodes = map[string]bool{
	"000001": true,
	"399001": true,
	"399006": true,
	"000300": true,
}

// Resolve 解析统一代码（如 sh600519、sz399001、600519）为市场、数字代码与指数标记。
// 无前缀时首位为 6 归上海，其余归深圳。
func Resolve(symbol string) (MarketID, string, bool, error) {
	s := strings.ToLower(strings.TrimSpace(symbol))
	if s == "" {
		return 0, "", false, ErrInvalidSymbol
	}

	var market MarketID
	var code string
	switch {
	case strings.HasPrefix(s, "sh"):
		market = MarketShanghai
		code = strings.TrimPrefix(s, "sh")
	case strings.HasPrefix(s, "sz"):
		market = MarketShenzhen
		code = strings.TrimPrefix(s, "sz")
	default:
		code = s
		if s[0] == '6' {
			market = MarketShanghai
		} else {
			market = MarketShenzhen
		}
	}

	if code == "" || !isNumeric(code) {
		return 0, "", false, WrapErrf(ErrInvalidSymbol, "symbol %q has no numeric code", symbol)
	}

	isIndex := indexCodes[code] ||
		(market == MarketShanghai && strings.HasPrefix(code, "000")) ||
		(market == MarketShenzhen && strings.HasPrefix(code, "399"))

	return market, code, isIndex, nil
}

// IsIndexSymbol 判断代码是否为指数
func IsIndexSymbol(symbol string) bool {
	_, _, isIndex, err := Resolve(symbol)
	return err == nil && isIndex
}

// SecID 转为东方财富 secid 形式："{market}.{code}"，如 1.600519
func SecID(symbol string) (string, error) {
	market, code, _, err := Resolve(symbol)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d.%s", market, code), nil
}

// SinaSymbol 转为新浪形式：sh/sz 前缀加数字代码
func SinaSymbol(symbol string) (string, error) {
	market, code, _, err := Resolve(symbol)
	if err != nil {
		return "", err
	}
	if market == MarketShanghai {
		return "sh" + code, nil
	}
	return "sz" + code, nil
}

func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
