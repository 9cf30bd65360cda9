package ml

import "regexp"

// =============================================================================
// SCAM INDICATOR LEXICON
// Weighted keyword and phrase lists for the heuristic layer. Severity tiers
// mirror how often a term appears in confirmed scam scripts versus ordinary
// conversation. Compiled patterns cover shapes keywords cannot (amounts,
// urgency punctuation, demands for credentials).
// =============================================================================

// Keyword severity tiers. High-tier hits contribute 0.30 each, medium-tier
// 0.15, capped at 1.0 overall in the scorer.
const (
	highKeywordScore   = 0.30
	mediumKeywordScore = 0.15
)

// highConfidenceKeywords appear almost exclusively in fraud scripts:
// lottery/prize bait, credential demands, account-blocked pressure.
var highConfidenceKeywords = []string{
	"lottery", "won", "prize", "winner", "congratulations",
	"lakhs", "crores", "claim", "reward", "lucky draw",
	"bank account", "account number", "ifsc", "upi",
	"otp", "pin", "password", "cvv", "card number",
	"kyc", "verification", "blocked", "suspended",
	"urgent", "immediately", "expire", "deadline",
}

// mediumConfidenceKeywords occur in scams but also in legitimate talk;
// they raise suspicion only in aggregate.
var mediumConfidenceKeywords = []string{
	"transfer", "payment", "amount", "rupees",
	"click", "link", "download", "install",
	"customer care", "support", "helpline", "toll-free",
	"refund", "cashback", "bonus", "offer", "discount",
	"processing fee", "registration fee",
}

// Boost patterns: message shapes that raise the heuristic score beyond
// individual keyword hits.
var (
	// Urgency pressure: shouting, repeated exclamation, countdown phrasing.
	reUrgency = regexp.MustCompile(`(?i)(!{3,}|\bURGENT\b|\bIMMEDIATELY\b|\bACT NOW\b|today only|limited time|last chance)`)

	// Money amounts with Indian currency markers.
	reMoneyAmount = regexp.MustCompile(`(?i)(rs\.?|₹|inr)\s*[\d,]+|\b\d+\s*(lakh|crore)s?\b`)

	// Demands for sensitive information.
	reSensitiveAsk = regexp.MustCompile(`(?i)(send|share|provide|give|tell)\s+(me\s+)?(your|the)\s+(otp|pin|password|cvv|account|card|aadhaar|pan)`)
)

const (
	urgencyBoost      = 0.20
	moneyAmountBoost  = 0.25
	sensitiveAskBoost = 0.25
)
