// ABOUTME: Localized UI strings for the chat and comparison panels, overridable from configuration.
// ABOUTME: Also maps backend call failures onto the inline messages each panel renders.
package console

import (
	"errors"
	"fmt"

	"github.com/2389-research/agentdeck/backend"
)

// Glyphs that mark rendered official content as a warning or an error.
const (
	WarningGlyph = "⚠️"
	ErrorGlyph   = "❌"
)

// Labels holds every user-visible string the console writes. Fields holding
// markup are inserted as-is; the rest are escaped where they are rendered.
type Labels struct {
	ChatPending string `yaml:"chat_pending"`
	ChatFailure string `yaml:"chat_failure"`
	IntentTitle string `yaml:"intent_title"`
	Emergency   string `yaml:"emergency"`

	SymbolRequired string `yaml:"symbol_required"`

	ManualLoadingHTML   string `yaml:"manual_loading_html"`
	OfficialLoadingHTML string `yaml:"official_loading_html"`

	ManualRunning   string `yaml:"manual_running"`
	OfficialRunning string `yaml:"official_running"`
	Completed       string `yaml:"completed"`
	ManualFailed    string `yaml:"manual_failed"`
	OfficialFailed  string `yaml:"official_failed"`
	Abnormal        string `yaml:"abnormal"`

	ManualStartLog    string `yaml:"manual_start_log"`
	ManualResearchLog string `yaml:"manual_research_log"`
	ManualRiskLog     string `yaml:"manual_risk_log"`
	ManualEndLog      string `yaml:"manual_end_log"`
	OfficialPlanLog   string `yaml:"official_plan_log"`
	OfficialDoneLog   string `yaml:"official_done_log"`

	ManualErrorPrefix   string `yaml:"manual_error_prefix"`
	OfficialErrorPrefix string `yaml:"official_error_prefix"`
	ShapeError          string `yaml:"shape_error"`
	HTTPErrorFormat     string `yaml:"http_error_format"`

	ShortContent    string `yaml:"short_content"`
	AgentError      string `yaml:"agent_error"`
	NoAnalysis      string `yaml:"no_analysis"`
	DownloadCaption string `yaml:"download_caption"`
}

// DefaultLabels returns the built-in Traditional Chinese strings.
func DefaultLabels() Labels {
	return Labels{
		ChatPending: "分析路徑中...",
		ChatFailure: "連線失敗，請檢查網路或系統狀態。",
		IntentTitle: "意圖辨識：",
		Emergency:   "[緊急]",

		SymbolRequired: "請輸入標的代號",

		ManualLoadingHTML:   `<div class="pulse-loader text-center py-20"><i class="fas fa-spinner fa-spin text-4xl mb-4"></i><p>正在按流程圖節點執行中...</p></div>`,
		OfficialLoadingHTML: `<div class="pulse-loader text-center py-20"><i class="fas fa-brain fa-spin text-4xl mb-4"></i><p>正在自動規劃與推理中...</p></div>`,

		ManualRunning:   "執行中...",
		OfficialRunning: "規劃中...",
		Completed:       "完成",
		ManualFailed:    "出錯",
		OfficialFailed:  "網路錯誤",
		Abnormal:        "異常",

		ManualStartLog:    "> [START] 進入 Router 節點",
		ManualResearchLog: "> [NODE] 啟動市場研究節點 (yfinance)... ",
		ManualRiskLog:     "> [NODE] 風險評估完成",
		ManualEndLog:      "> [END] 產出報告",
		OfficialPlanLog:   "> [PLANNING] 正在啟動官方自主代理 (DeepAgents)...",
		OfficialDoneLog:   "> [SUB-AGENT] 任務完成",

		ManualErrorPrefix:   "系統錯誤: ",
		OfficialErrorPrefix: "無法連線: ",
		ShapeError:          "後端回傳格式不符合預期",
		HTTPErrorFormat:     "HTTP 錯誤! 狀態碼: %d",

		ShortContent:    WarningGlyph + " AI 回傳內容過於簡短，可能因數據源受限。",
		AgentError:      ErrorGlyph + " 系統錯誤: %s",
		NoAnalysis:      WarningGlyph + " 官方代理未回傳具體分析。",
		DownloadCaption: "📥 下載趨勢圖表",
	}
}

// orDefault returns l, or the defaults when l is entirely unset.
func (l Labels) orDefault() Labels {
	if l == (Labels{}) {
		return DefaultLabels()
	}
	return l
}

// describe turns a backend failure into the message shown inside a panel.
func (l Labels) describe(err error) string {
	var shapeErr *backend.ProtocolShapeError
	var httpErr *backend.HTTPError
	switch {
	case errors.As(err, &shapeErr):
		return l.ShapeError
	case errors.As(err, &httpErr):
		return fmt.Sprintf(l.HTTPErrorFormat, httpErr.StatusCode)
	default:
		return err.Error()
	}
}
