// ABOUTME: Canned deep-research replies for the manual pipeline and the official agent.
// ABOUTME: Prices are derived from the symbol so the same symbol always gets the same report.
package devbackend

import (
	"fmt"
	"hash/fnv"
	"time"
)

type report struct {
	raw   string
	final string
}

// quote derives a stable price and daily change for symbol.
func quote(symbol string) (price, change float64) {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	sum := h.Sum32()
	price = 20 + float64(sum%98000)/100
	change = float64(int(sum>>8)%1000-500) / 100
	return price, change
}

func risk(change float64) string {
	switch {
	case change <= -2:
		return "高"
	case change >= 2:
		return "低"
	default:
		return "中"
	}
}

func manualReport(symbol string, now time.Time) report {
	price, change := quote(symbol)
	raw := fmt.Sprintf("【股價數據】\n%s 收盤 %.2f，漲跌 %+.2f%%\n\n【市場新聞】\n%s 本季營收符合市場預期。", symbol, price, change, symbol)
	final := fmt.Sprintf("%s 投資建議（%s）\n風險等級：%s\n建議：分批布局，設定停損於 %.2f。",
		symbol, now.Format("2006-01-02"), risk(change), price*0.92)
	return report{raw: raw, final: final}
}

func officialAnalysis(symbol string, now time.Time) string {
	price, change := quote(symbol)
	return fmt.Sprintf("**%s 深度分析**（%s）\n現價 %.2f，日漲跌 %+.2f%%。\n**風險等級：%s**\n結論：維持觀望，等待財報公布後再行評估。",
		symbol, now.Format("2006-01-02"), price, change, risk(change))
}
