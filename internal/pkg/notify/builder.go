package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/lottosage/lottosage/internal/pkg/ai"
	"github.com/lottosage/lottosage/internal/pkg/analysis"
	"github.com/lottosage/lottosage/internal/pkg/data"
	"github.com/lottosage/lottosage/internal/pkg/models"
	"github.com/lottosage/lottosage/internal/pkg/recommend"
)

const aiSectionLimit = 1000

// MessageBuilder assembles the markdown report for one game.
type MessageBuilder struct {
	game models.GameType
	name string
	now  func() time.Time
}

func NewMessageBuilder(game models.GameType) *MessageBuilder {
	return &MessageBuilder{game: game, name: game.Rules().DisplayName, now: time.Now}
}

// Build renders the full report. aiAnalysis may be nil when no
// provider was available; that section is simply omitted.
func (b *MessageBuilder) Build(
	previous *data.DrawSummary,
	stats analysis.Result,
	aiAnalysis *ai.Analysis,
	recs []recommend.Recommendation,
	top []recommend.Recommendation,
) string {
	var m strings.Builder

	period := "????"
	if previous != nil {
		period = previous.Period
	}
	fmt.Fprintf(&m, "# 🤖 AI智能分析 - %s第%s期\n\n", b.name, period)

	b.writePreviousDraw(&m, previous)
	b.writeStats(&m, stats)
	if aiAnalysis != nil {
		b.writeAISection(&m, aiAnalysis)
	}
	b.writeRecommendations(&m, recs, top)
	b.writeNote(&m, previous)
	b.writeDisclaimer(&m)

	return m.String()
}

func (b *MessageBuilder) writePreviousDraw(m *strings.Builder, previous *data.DrawSummary) {
	m.WriteString("## 📅 上一期开奖信息\n\n")
	if previous == nil {
		m.WriteString("- 暂无开奖数据\n\n")
		return
	}
	fmt.Fprintf(m, "- **期号**：%s\n", previous.Period)
	fmt.Fprintf(m, "- **开奖号码**：%s\n", previous.Numbers)
	if previous.Date != "" {
		fmt.Fprintf(m, "- **开奖日期**：%s\n", previous.Date)
	}
	if previous.DrawTime != "" {
		fmt.Fprintf(m, "- **开奖时间**：%s\n", previous.DrawTime)
	}
	m.WriteString("\n")
}

func (b *MessageBuilder) writeStats(m *strings.Builder, stats analysis.Result) {
	m.WriteString("## 📊 传统统计分析\n\n")
	fmt.Fprintf(m, "- **热号TOP10**：%s\n", joinOr(stats.HotNumbers, "暂无数据"))
	fmt.Fprintf(m, "- **冷号TOP10**：%s\n", joinOr(stats.ColdNumbers, "暂无数据"))
	fmt.Fprintf(m, "- **平均奇偶比**：%s\n", stats.OddEvenRatio)
	fmt.Fprintf(m, "- **平均大小比**：%s\n", stats.BigSmallRatio)
	fmt.Fprintf(m, "- **平均和值**：%d（%s）\n", stats.SumValue, stats.SumRange)
	fmt.Fprintf(m, "- **近期连号数**：%d\n\n", stats.ConsecutiveCount)
}

func (b *MessageBuilder) writeAISection(m *strings.Builder, a *ai.Analysis) {
	m.WriteString("## 🧠 AI深度分析\n\n")
	details := a.Details
	if details == "" {
		m.WriteString("- AI分析已完成\n\n")
		return
	}
	runes := []rune(details)
	if len(runes) > aiSectionLimit {
		details = string(runes[:aiSectionLimit]) + "...\n\n> AI分析内容较长，以上为摘要"
	}
	fmt.Fprintf(m, "> %s\n\n", details)
}

func (b *MessageBuilder) writeRecommendations(m *strings.Builder, recs, top []recommend.Recommendation) {
	m.WriteString("## 💡 AI智能推荐\n\n")

	topIndexes := make(map[int]bool, len(top))
	for _, rec := range top {
		topIndexes[rec.Index] = true
	}

	m.WriteString("**🎯 最推荐（按评分排序）：**\n\n")
	for _, rec := range top {
		fmt.Fprintf(m, "### ⭐⭐⭐ 第%d组：%s\n", rec.Index, formatNumbers(rec))
		fmt.Fprintf(m, "📝 **推荐理由**：%s\n", rec.Reason)
		fmt.Fprintf(m, "📊 **推荐评分**：%.1f/100\n\n", rec.Score)
	}

	var others []recommend.Recommendation
	for _, rec := range recs {
		if !topIndexes[rec.Index] {
			others = append(others, rec)
		}
	}
	if len(others) > 0 {
		m.WriteString("**📌 参考推荐：**\n\n")
		for _, rec := range others {
			fmt.Fprintf(m, "### ⭐ 第%d组：%s\n", rec.Index, formatNumbers(rec))
			fmt.Fprintf(m, "📝 **推荐理由**：%s\n", rec.Reason)
			fmt.Fprintf(m, "📊 **推荐评分**：%.1f/100\n\n", rec.Score)
		}
	}

	b.writeSummaryTable(m, append(append([]recommend.Recommendation{}, top...), others...), topIndexes)
}

// writeSummaryTable renders a plain code block so the table survives
// clients with poor markdown support.
func (b *MessageBuilder) writeSummaryTable(m *strings.Builder, recs []recommend.Recommendation, topIndexes map[int]bool) {
	m.WriteString("## 📋 推荐号码汇总\n\n")
	m.WriteString("```\n")
	m.WriteString("推荐   号码                           评分\n")
	m.WriteString("----------------------------------------\n")
	for _, rec := range recs {
		marker := "[普通]"
		if topIndexes[rec.Index] {
			marker = "[推荐]"
		} else if rec.Index <= 3 {
			marker = "[不错]"
		}
		fmt.Fprintf(m, "%s第%2d组  %-22s %5.1f\n", marker, rec.Index, formatNumbers(rec), rec.Score)
	}
	m.WriteString("```\n\n")

	if len(topIndexes) > 0 {
		indexes := make([]string, 0, len(topIndexes))
		for _, rec := range recs {
			if topIndexes[rec.Index] {
				indexes = append(indexes, fmt.Sprintf("%d", rec.Index))
			}
		}
		fmt.Fprintf(m, "🎯 **最推荐：第 %s 组**\n\n", strings.Join(indexes, ", "))
	}
}

func (b *MessageBuilder) writeNote(m *strings.Builder, previous *data.DrawSummary) {
	m.WriteString("## 📈 分析说明\n\n")
	drawTime := "21:00"
	if previous != nil && previous.DrawTime != "" {
		drawTime = previous.DrawTime
	}
	fmt.Fprintf(m, "- 分析时间：%s（开奖前%s）\n", b.now().Format("2006-01-02 15:04"), drawTime)
	m.WriteString("- 分析基于最近30期历史数据\n")
	m.WriteString("- 结合传统统计和AI智能分析\n")
	m.WriteString("- 前3组为最推荐组合\n\n")
}

func (b *MessageBuilder) writeDisclaimer(m *strings.Builder) {
	m.WriteString(`## ⚠️ 重要提示

- 🤖 本分析由AI智能生成，仅供参考
- 🎲 彩票具有随机性，请理性购彩
- 💰 请理性投注，量力而行

---
*分析仅供参考，不构成任何购彩建议*
`)
}

func formatNumbers(rec recommend.Recommendation) string {
	return fmt.Sprintf("%s | %s", joinInts(rec.Primaries), joinInts(rec.Secondaries))
}

func joinInts(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return strings.Join(parts, " ")
}

func joinOr(nums []int, fallback string) string {
	if len(nums) == 0 {
		return fallback
	}
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return strings.Join(parts, ", ")
}
