// ABOUTME: Keyword router standing in for the backend's LLM intent classifier.
// ABOUTME: Maps a chat message to one of the pipeline intents and flags emergencies.
package devbackend

import (
	"strings"

	"github.com/2389-research/agentdeck/diagram"
)

// Keyword tables are checked in order; the first intent with a hit wins.
var intentKeywords = []struct {
	intent   diagram.IntentClass
	keywords []string
}{
	{diagram.IntentVisualizer, []string{"圖", "趨勢", "chart", "plot", "graph", "trend"}},
	{diagram.IntentDeviceExpert, []string{"err", "錯誤", "代碼", "血壓計", "袖帶", "device", "cuff", "battery", "電池"}},
	{diagram.IntentHealthAnalyst, []string{"血壓", "紀錄", "記錄", "心跳", "health", "pressure", "record", "pulse"}},
}

var emergencyKeywords = []string{"胸痛", "昏倒", "呼吸困難", "麻木", "emergency", "chest pain", "faint", "180/"}

// Classify picks the intent for message. Messages with no keyword hit go to
// the general assistant.
func Classify(message string) diagram.IntentClass {
	m := strings.ToLower(message)
	for _, row := range intentKeywords {
		if containsAny(m, row.keywords) {
			return row.intent
		}
	}
	return diagram.IntentGeneral
}

// IsEmergency reports whether message describes symptoms that need urgent care.
func IsEmergency(message string) bool {
	return containsAny(strings.ToLower(message), emergencyKeywords)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func replyFor(intent diagram.IntentClass, emergency bool) string {
	var b strings.Builder
	if emergency {
		b.WriteString("⚠️ 您描述的症狀可能需要立即就醫，請撥打 119 或前往最近的急診。\n")
	}
	switch intent {
	case diagram.IntentDeviceExpert:
		b.WriteString("依據說明書：ERR 1 表示袖帶未正確包覆或漏氣。\n請重新綁緊袖帶後再量測一次。")
	case diagram.IntentHealthAnalyst:
		b.WriteString("最近七天平均血壓為 **128/82 mmHg**，屬於正常偏高。\n建議減少鈉攝取並維持規律運動。")
	case diagram.IntentVisualizer:
		b.WriteString("以下是最近七天的收縮壓趨勢：")
	default:
		b.WriteString("您好，我可以協助血壓計操作、量測紀錄分析與趨勢圖表。")
	}
	return b.String()
}
