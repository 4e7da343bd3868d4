package router

// Built-in routing tables. Any of these can be overridden via configuration;
// empty config fields keep the defaults.

var defaultGreetings = []string{
	"hi", "hello", "hey", "good morning", "good afternoon",
	"good evening", "howdy", "greetings", "sup", "yo",
	"hola", "bonjour", "hallo", "guten tag", "salut",
}

var defaultChitchat = []string{
	"how are you", "what's up", "how's it going",
	"nice to meet", "thank you", "thanks", "bye",
	"goodbye", "see you", "take care", "have a nice day",
}

var defaultPortfolioKeywords = []string{
	// skills
	"skill", "skills", "technology", "technologies", "tech stack",
	"programming", "language", "languages", "framework", "frameworks",
	"tool", "tools", "expertise", "proficient", "experience with",
	// experience
	"experience", "work", "job", "company", "companies",
	"career", "position", "role", "project", "projects",
	"employment", "employer", "worked", "working",
	// education
	"education", "degree", "university", "school", "college",
	"certification", "certified", "training", "course",
	// personal and contact
	"contact", "email", "phone", "location", "address",
	"about", "background", "bio", "profile", "summary",
	"github", "linkedin", "portfolio", "website",
	// person references (subject name tokens are appended at construction)
	"developer", "engineer",
}

var defaultBuiltinTopics = []string{
	"name", "title", "email", "github", "location",
	"frontend", "backend", "database", "ai", "devops",
	"freelance",
}

var defaultDetailTopics = []string{
	"document", "uploaded", "file", "pdf", "resume", "cv",
	"specific", "detail", "particular", "which project",
	"tell me more", "elaborate", "explain more",
}

// clarificationPrefixes mark follow-up phrasings. Order matters for the
// prefix check only in that longer forms shadow shorter ones naturally.
var clarificationPrefixes = []string{
	"i mean", "no,", "no i", "not that", "i meant",
	"what about", "how about", "and also", "also",
	"more about", "tell me more", "elaborate",
}

// personQuestionPrefixes catch questions about a person that carry no
// explicit portfolio keyword.
var personQuestionPrefixes = []string{
	"who is", "who's", "tell me about", "what does",
	"where does", "what are", "what is", "how did",
}
