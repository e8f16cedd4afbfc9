package ingest

import (
	"regexp"
	"strings"
)

// Category is the ingestion verdict for one email.
type Category string

const (
	CategoryConfirmation Category = "confirmation"
	CategoryRejection    Category = "rejection"
	CategoryInterview    Category = "interview"
	CategoryOffer        Category = "offer"
	CategoryUnrelated    Category = "unrelated"
)

// rejectionPatterns match explicit turn-down language. Checked first because
// rejections frequently quote application-confirmation phrasing back at the
// candidate.
var rejectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)we regret to inform`),
	regexp.MustCompile(`(?i)unfortunately`),
	regexp.MustCompile(`(?i)we (have )?decided (not to|to not) (move|proceed)`),
	regexp.MustCompile(`(?i)decided to (move forward|proceed) with other candidates`),
	regexp.MustCompile(`(?i)(not|no longer) (be )?(moving|going) forward( with your (application|candidacy))?`),
	regexp.MustCompile(`(?i)pursue other (candidates|applicants)`),
	regexp.MustCompile(`(?i)position (has been|was) filled`),
	regexp.MustCompile(`(?i)(will not|won't) be (progressing|proceeding)`),
	regexp.MustCompile(`(?i)your (application|candidacy) (was|has been) (unsuccessful|declined)`),
	regexp.MustCompile(`(?i)unable to offer you`),
	regexp.MustCompile(`(?i)not (been )?selected`),
	regexp.MustCompile(`(?i)other candidates (whose|who) .{0,40}(more closely|better) (match|align)`),
	regexp.MustCompile(`(?i)wish you (the best|every success|success) in your (job )?search`),
}

var offerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(pleased|excited|delighted|happy) to (offer|extend)`),
	regexp.MustCompile(`(?i)offer (letter|of employment)`),
	regexp.MustCompile(`(?i)extend (you )?an offer`),
	regexp.MustCompile(`(?i)congratulations.{0,60}offer`),
}

var interviewPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)schedule (an?|your|the) (interview|call|phone screen|chat)`),
	regexp.MustCompile(`(?i)interview (invitation|request|availability)`),
	regexp.MustCompile(`(?i)invite you to (an? )?(interview|chat|call|speak)`),
	regexp.MustCompile(`(?i)(move|moving) (you )?(forward )?to (an? interview|the (next|interview) (round|stage))`),
	regexp.MustCompile(`(?i)(phone|technical|video|onsite|on-site) (screen|interview)`),
	regexp.MustCompile(`(?i)like to (speak|talk|chat) with you about your application`),
}

// confirmationPatterns match application-received acknowledgements, the
// signal that a new job record should be created.
var confirmationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)thank(s| you) for (applying|your application|your interest in)`),
	regexp.MustCompile(`(?i)(we have|we've) received your application`),
	regexp.MustCompile(`(?i)your application (to|at|for|with|was|has been)`),
	regexp.MustCompile(`(?i)application (was |has been )?(received|submitted)`),
	regexp.MustCompile(`(?i)successfully (applied|submitted)`),
	regexp.MustCompile(`(?i)confirm(ing|ation of)? (receipt of )?your application`),
	regexp.MustCompile(`(?i)we are reviewing your application`),
}

// Classify buckets an email by subject plus cleaned body. Rejection wins over
// everything, then offer, interview, and finally confirmation.
func Classify(subject, cleanedBody string) Category {
	text := strings.ToLower(subject + " " + cleanedBody)

	for _, p := range rejectionPatterns {
		if p.MatchString(text) {
			return CategoryRejection
		}
	}
	for _, p := range offerPatterns {
		if p.MatchString(text) {
			return CategoryOffer
		}
	}
	for _, p := range interviewPatterns {
		if p.MatchString(text) {
			return CategoryInterview
		}
	}
	for _, p := range confirmationPatterns {
		if p.MatchString(text) {
			return CategoryConfirmation
		}
	}
	return CategoryUnrelated
}
