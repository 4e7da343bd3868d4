package domain

// QueryType classifies an incoming query for routing.
type QueryType string

const (
	// QueryGreeting is a greeting; no retrieval needed.
	QueryGreeting QueryType = "greeting"
	// QueryChitchat is small talk; no retrieval needed.
	QueryChitchat QueryType = "chitchat"
	// QueryClarification is a follow-up that needs history and retrieval.
	QueryClarification QueryType = "clarification"
	// QueryPortfolioFactual needs retrieval for specific portfolio facts.
	QueryPortfolioFactual QueryType = "portfolio_factual"
	// QueryPortfolioGeneral can be answered from built-in knowledge.
	QueryPortfolioGeneral QueryType = "portfolio_general"
	// QueryOffTopic is not portfolio-related; no retrieval.
	QueryOffTopic QueryType = "off_topic"
)
