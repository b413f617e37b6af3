package bot

const (
	MsgStart = `
		👋 你好！傳送 Facebook Marketplace 或 Trade Me 的商品網址，我會檢查賣家信用並估算奧克蘭二手行情。

		/evaluate <網址> 評估商品
		直接傳送網址也可以。
	`
	MsgSendURL       = "請傳送商品網址，例如 https://www.trademe.co.nz/a/marketplace/..."
	MsgRunInProgress = "⏳ 評估進行中，請稍候..."
	MsgNoPreviousURL = "沒有可重新評估的網址。請先傳送商品網址。"
)

const (
	BtnReevaluate      = "🔄 重新評估"
	CallbackReevaluate = "reevaluate"
)
