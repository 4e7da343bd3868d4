package router

import (
	"strings"

	"go.uber.org/zap"

	"github.com/medevs/local-smart-portfolio/internal/domain"
)

// Decision is the routing outcome for a single query.
type Decision struct {
	Type           domain.QueryType
	NeedsRetrieval bool
	Hint           string
}

// Config holds the routing tables. Empty fields keep the built-in defaults.
type Config struct {
	Subject           string
	Greetings         []string
	Chitchat          []string
	PortfolioKeywords []string
	BuiltinTopics     []string
	DetailTopics      []string
}

// Service classifies incoming queries to decide whether retrieval is needed.
// Classification is table-driven and never fails: an unrecognized query falls
// through to the off-topic class.
type Service struct {
	subject           string
	greetings         map[string]struct{}
	greetingList      []string
	chitchat          []string
	portfolioKeywords []string
	builtinTopics     []string
	detailTopics      []string
	logger            *zap.Logger
}

// New creates a query router. The subject's lowercase name tokens are added
// to the portfolio keyword table so questions naming the person route to
// retrieval even without an explicit keyword.
func New(cfg Config, logger *zap.Logger) *Service {
	subject := cfg.Subject
	if subject == "" {
		subject = "the portfolio owner"
	}

	greetings := withDefault(cfg.Greetings, defaultGreetings)
	greetingSet := make(map[string]struct{}, len(greetings))
	for _, g := range greetings {
		greetingSet[g] = struct{}{}
	}

	keywords := append([]string(nil), withDefault(cfg.PortfolioKeywords, defaultPortfolioKeywords)...)
	keywords = append(keywords, strings.Fields(strings.ToLower(cfg.Subject))...)

	return &Service{
		subject:           subject,
		greetings:         greetingSet,
		greetingList:      greetings,
		chitchat:          withDefault(cfg.Chitchat, defaultChitchat),
		portfolioKeywords: keywords,
		builtinTopics:     withDefault(cfg.BuiltinTopics, defaultBuiltinTopics),
		detailTopics:      withDefault(cfg.DetailTopics, defaultDetailTopics),
		logger:            logger,
	}
}

// Route classifies a query given the conversation history. The checks run in
// a fixed order and the first match wins: greeting, chitchat, clarification,
// portfolio, then off-topic as the fallthrough.
func (s *Service) Route(query string, history []domain.Message) Decision {
	q := strings.ToLower(strings.TrimSpace(query))

	switch {
	case s.isGreeting(q):
		return s.decide(domain.QueryGreeting, false)
	case s.isChitchat(q):
		return s.decide(domain.QueryChitchat, false)
	case s.isClarification(q, history):
		return s.decide(domain.QueryClarification, true)
	case s.isPortfolioQuery(q):
		if s.needsRetrieval(q) {
			return s.decide(domain.QueryPortfolioFactual, true)
		}
		return s.decide(domain.QueryPortfolioGeneral, false)
	default:
		return s.decide(domain.QueryOffTopic, false)
	}
}

func (s *Service) decide(qt domain.QueryType, needs bool) Decision {
	s.logger.Debug("query routed",
		zap.String("query_type", string(qt)),
		zap.Bool("needs_retrieval", needs))
	return Decision{Type: qt, NeedsRetrieval: needs, Hint: s.hint(qt)}
}

func (s *Service) isGreeting(q string) bool {
	clean := strings.TrimRight(q, "!?.,")

	if _, ok := s.greetings[clean]; ok {
		return true
	}

	// A greeting prefix only counts when the remainder is not itself a
	// portfolio question ("hi, what are your skills" must route onward).
	for _, greeting := range s.greetingList {
		if strings.HasPrefix(clean, greeting) {
			remainder := strings.TrimSpace(clean[len(greeting):])
			if remainder == "" || !s.isPortfolioQuery(remainder) {
				return true
			}
		}
	}
	return false
}

func (s *Service) isChitchat(q string) bool {
	for _, pattern := range s.chitchat {
		if strings.Contains(q, pattern) {
			return true
		}
	}
	return false
}

func (s *Service) isClarification(q string, history []domain.Message) bool {
	for _, prefix := range clarificationPrefixes {
		if strings.HasPrefix(q, prefix) {
			return true
		}
	}
	// Very short queries after prior turns are likely follow-ups
	// ("and skills?", "his projects?").
	if len(history) > 0 && len(strings.Fields(q)) <= 3 {
		return true
	}
	return false
}

func (s *Service) isPortfolioQuery(q string) bool {
	for _, keyword := range s.portfolioKeywords {
		if strings.Contains(q, keyword) {
			return true
		}
	}
	for _, prefix := range personQuestionPrefixes {
		if strings.HasPrefix(q, prefix) {
			return true
		}
	}
	return false
}

// needsRetrieval decides between the factual and general portfolio classes.
// Detail topics force retrieval; two or more built-in topics in one query
// suggest a summary question answerable without documents.
func (s *Service) needsRetrieval(q string) bool {
	for _, topic := range s.detailTopics {
		if strings.Contains(q, topic) {
			return true
		}
	}

	builtinMatches := 0
	for _, topic := range s.builtinTopics {
		if strings.Contains(q, topic) {
			builtinMatches++
		}
	}
	if builtinMatches >= 2 {
		return false
	}

	return true
}

// hint produces generation guidance for the prompt builder.
func (s *Service) hint(qt domain.QueryType) string {
	switch qt {
	case domain.QueryGreeting:
		return "Respond with a friendly greeting and offer to help with portfolio questions."
	case domain.QueryChitchat:
		return "Respond briefly and redirect to portfolio assistance."
	case domain.QueryPortfolioGeneral:
		return "Use general knowledge about " + s.subject + ". Retrieved context is optional."
	case domain.QueryPortfolioFactual:
		return "Use the retrieved context to find specific information from the documents."
	case domain.QueryClarification:
		return "Use the conversation history and retrieved context to address the follow-up."
	case domain.QueryOffTopic:
		return "Politely redirect to portfolio-related topics."
	default:
		return ""
	}
}

func withDefault(values, fallback []string) []string {
	if len(values) > 0 {
		return values
	}
	return fallback
}
