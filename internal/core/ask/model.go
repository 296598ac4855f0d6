package ask

import "github.com/jinford/doc-query/internal/core/provider"

const (
	// NoContextAnswer は関連チャンクが見つからなかった場合の固定回答
	NoContextAnswer = "I couldn't find any relevant information to answer your question."

	// AnswerTemperature は回答生成の温度
	AnswerTemperature = 0.7
	// AnswerMaxTokens は回答生成の最大トークン数
	AnswerMaxTokens = 500
)

// Answer は質問への回答と参照元を表す
type Answer struct {
	Question string              `json:"question"`
	Text     string              `json:"answer"`
	Sources  []string            `json:"sources"`
	Model    string              `json:"model,omitempty"`
	Usage    provider.TokenUsage `json:"tokenUsage"`
	Degraded bool                `json:"degraded,omitempty"`
}
