package ingest

import (
	"regexp"
	"strings"
)

// companyPatterns pull the employer name out of subject or body text. The
// capture stops at connective words so "Acme for the Backend role" yields
// just "Acme".
var companyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)your application (?:to|at|with) ([A-Za-z0-9][A-Za-z0-9&.\-' ]{1,60}?)(?: for | was | has |[.!,\n]|$)`),
	regexp.MustCompile(`(?i)applying (?:to|at|with) ([A-Za-z0-9][A-Za-z0-9&.\-' ]{1,60}?)(?: for |[.!,\n]|$)`),
	regexp.MustCompile(`(?i)your interest in (?:joining |working at )?([A-Za-z0-9][A-Za-z0-9&.\-' ]{1,60}?)(?: for | and |[.!,\n]|$)`),
	regexp.MustCompile(`(?i)the ([A-Za-z0-9][A-Za-z0-9&.\-' ]{1,60}?) (?:recruiting|recruitment|talent|hiring) team`),
	regexp.MustCompile(`(?i)position (?:at|with) ([A-Za-z0-9][A-Za-z0-9&.\-' ]{1,60}?)(?:[.!,\n]| has | was |$)`),
}

var titlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)for the ([A-Za-z0-9][A-Za-z0-9+#/&.\-' ]{1,80}?) (?:position|role|opening|opportunity)`),
	regexp.MustCompile(`(?i)position of ([A-Za-z0-9][A-Za-z0-9+#/&.\-' ]{1,80}?)(?:[.!,\n]| at | with |$)`),
	regexp.MustCompile(`(?i)(?:as an?|to (?:the|our)) ([A-Za-z0-9][A-Za-z0-9+#/&.\-' ]{1,80}?) (?:position|role|opening)`),
	regexp.MustCompile(`(?i)role: ?([A-Za-z0-9][A-Za-z0-9+#/&.\-' ]{1,80}?)(?:[.!,\n]|$)`),
}

// fromNamePattern grabs the display name of a From header,
// e.g. `"Acme Careers" <jobs@acme.example>`.
var fromNamePattern = regexp.MustCompile(`^\s*"?([^"<]+?)"?\s*<`)

// senderNoise strips mailer boilerplate words from From display names so
// "Acme Careers" collapses to "Acme".
var senderNoise = regexp.MustCompile(`(?i)\b(careers?|recruiting|recruitment|talent( acquisition)?|hiring|jobs?|team|hr|notifications?|no[-. ]?reply|do[-. ]?not[-. ]?reply|via)\b`)

// techKeywords maps lowercase body tokens to canonical tag names.
var techKeywords = map[string]string{
	"go": "Go", "golang": "Go",
	"python": "Python", "java": "Java",
	"javascript": "JavaScript", "typescript": "TypeScript",
	"react": "React", "node": "Node.js", "node.js": "Node.js",
	"kubernetes": "Kubernetes", "docker": "Docker",
	"aws": "AWS", "gcp": "GCP", "azure": "Azure",
	"postgresql": "PostgreSQL", "postgres": "PostgreSQL",
	"mysql": "MySQL", "sql": "SQL", "redis": "Redis",
	"kafka": "Kafka", "graphql": "GraphQL", "grpc": "gRPC",
	"rust": "Rust", "c++": "C++", "ruby": "Ruby",
	"terraform": "Terraform", "django": "Django",
}

// Extraction is the structured data pulled from one email.
type Extraction struct {
	Company   string
	JobTitle  string
	TechStack []string
}

// Extract mines company, title, and tech tags from a classified email. The
// subject is tried before the body for company and title, and the From
// display name is the company fallback. Any field may come back empty.
func Extract(subject, from, cleanedBody string) Extraction {
	ex := Extraction{
		Company:   firstMatch(companyPatterns, subject, cleanedBody),
		JobTitle:  firstMatch(titlePatterns, subject, cleanedBody),
		TechStack: extractTechStack(cleanedBody),
	}
	if ex.Company == "" {
		ex.Company = companyFromSender(from)
	}
	return ex
}

func firstMatch(patterns []*regexp.Regexp, texts ...string) string {
	for _, text := range texts {
		for _, p := range patterns {
			if m := p.FindStringSubmatch(text); m != nil {
				return tidy(m[1])
			}
		}
	}
	return ""
}

func companyFromSender(from string) string {
	m := fromNamePattern.FindStringSubmatch(from)
	name := from
	if m != nil {
		name = m[1]
	}
	if strings.Contains(name, "@") {
		return ""
	}
	name = senderNoise.ReplaceAllString(name, " ")
	return tidy(name)
}

func extractTechStack(body string) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, word := range strings.FieldsFunc(strings.ToLower(body), func(r rune) bool {
		return r == ' ' || r == ',' || r == ';' || r == '(' || r == ')' || r == '\n' || r == '\t'
	}) {
		word = strings.Trim(word, ".:!?")
		if canonical, ok := techKeywords[word]; ok && !seen[canonical] {
			seen[canonical] = true
			tags = append(tags, canonical)
		}
	}
	return tags
}

// tidy collapses whitespace and trims stray punctuation from a capture.
func tidy(s string) string {
	s = spacePattern.ReplaceAllString(s, " ")
	s = strings.Trim(s, " .,-'")
	// Single stopwords left over after noise stripping are not names.
	switch strings.ToLower(s) {
	case "the", "a", "an", "our", "us", "we", "you", "your":
		return ""
	}
	return s
}
