package llm

import (
	"fmt"
	"strings"
)

const systemInstruction = `你是一位精煉且具備維修背景的奧克蘭二手市場轉賣專家。專精fb和trademe. 1. 繁體中文。2. 禁止開場白。3. 思考層級：高。只分析賣家提供的商品資訊，忽略不相關的網頁雜訊, e.g .Sellers other listings / Other listings you might like. `

const assessmentPrompt = `分析：%s / 價格: %s

格式：
- **商品/型號細節**：
- **缺陷檢測**：
- **新品價格**：
- **中性二手行情估值**：
- **流動性**：
- **最終決策**：`

const pageTextSection = `

賣家頁面文字：
%s`

// BuildPrompt returns the text part sent alongside the images.
func BuildPrompt(title, price, body string) string {
	prompt := fmt.Sprintf(assessmentPrompt, title, price)
	if body = strings.TrimSpace(body); body != "" {
		prompt += fmt.Sprintf(pageTextSection, body)
	}
	return prompt
}
