package ai

import (
	"fmt"
	"strings"

	"github.com/lottosage/lottosage/internal/pkg/models"
)

const promptSummaryDraws = 10

// buildAnalysisPrompt asks for a free-text statistical report over the
// recent draws.
func buildAnalysisPrompt(game models.GameType, records []models.DrawRecord) string {
	name := game.Rules().DisplayName
	return fmt.Sprintf(`你是一个专业的彩票数据分析专家。请分析以下%s历史数据，并提供深度分析报告。

## 历史数据摘要
%s

## 需要分析的内容

请从以下维度进行深度分析：

1. **热号分析**：统计出现频率最高的号码（TOP10），分析其出现规律
2. **冷号分析**：统计出现频率最低的号码（TOP10），分析其遗漏趋势
3. **奇偶比例分析**：奇数和偶数的分布比例，分析趋势变化
4. **大小比例分析**：大号和小号的分布比例（双色球小号1-16，大号17-33；大乐透前区小号1-17，大号18-35）
5. **连号模式分析**：连续号码出现的频率和模式
6. **和值分析**：号码总和的变化趋势和范围
7. **趋势预测**：基于历史数据，预测下一期的可能趋势

## 输出要求

1. 请用中文回复
2. 分析要专业、深入
3. 提供具体的号码推荐和理由
4. 格式清晰，便于阅读

请开始分析：
`, name, summarizeDraws(records))
}

// buildRecommendationPrompt asks for count number sets as JSON.
func buildRecommendationPrompt(game models.GameType, summary, details string, count int) string {
	name := game.Rules().DisplayName
	return fmt.Sprintf(`基于以下%s分析结果，请生成%d组推荐号码：

## 分析结果摘要
%s

## 分析详情
%s

## 生成要求

1. 生成%d组不同的号码组合
2. 每组号码需要包含完整的号码、详细推荐理由和推荐等级（⭐⭐⭐最推荐，⭐⭐次推荐，⭐参考推荐）
3. 推荐要基于统计分析结果
4. 考虑热号、冷号、奇偶比、大小比等因素
5. 确保号码组合的多样性

## 输出格式

请以JSON格式返回：

`+"```json"+`
{
  "recommendations": [
    {
      "index": 1,
      "primaries": [号码列表],
      "secondaries": [号码列表],
      "reason": "推荐理由",
      "stars": "⭐⭐⭐"
    }
  ],
  "top_recommendations": [1, 2, 3],
  "analysis_summary": "简要分析说明"
}
`+"```"+`

请生成推荐：
`, name, count, orPlaceholder(summary), orPlaceholder(details), count)
}

// summarizeDraws renders the newest draws one line each.
func summarizeDraws(records []models.DrawRecord) string {
	if len(records) == 0 {
		return "无数据"
	}
	n := promptSummaryDraws
	if n > len(records) {
		n = len(records)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "最近%d期开奖号码：\n", n)
	for _, rec := range records[:n] {
		fmt.Fprintf(&b, "  %s: %s\n", rec.Period, rec.DisplayNumbers())
	}
	return strings.TrimRight(b.String(), "\n")
}

func orPlaceholder(s string) string {
	if s == "" {
		return "无数据"
	}
	return s
}
