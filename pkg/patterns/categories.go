package patterns

import "regexp"

// =============================================================================
// IDENTIFIER DEFINITIONS
// One regex per identifier class, compiled once at package init. Validation
// that regexes cannot express cleanly (length windows, prefix rules) lives in
// the valid* helpers below.
// =============================================================================

var (
	// Bank accounts are 9-18 digit runs. Word boundaries reject runs embedded
	// in longer numeric tokens (OTP batches, card numbers pasted together).
	reDigitRun = regexp.MustCompile(`\b\d{9,18}\b`)

	// Indian mobile numbers: optional +91 / 91 / 0 prefix, 10-digit core
	// starting 6-9. Group 1 captures the normalized core. The alternation is
	// ordered longest-prefix first; the bare \b arm anchors unprefixed cores
	// so a core is never carved out of the middle of a longer digit run.
	rePhone = regexp.MustCompile(`(?:\+91[\-\s]?|\b91|\b0|\b)([6-9]\d{9})\b`)

	// IFSC: 4 alpha, literal 0, 6 alphanumeric. Exactly 11 characters.
	reIFSC = regexp.MustCompile(`\b[A-Z]{4}0[A-Z0-9]{6}\b`)

	// UPI: localpart limited to alphanumeric plus . _ -, matched against
	// case-folded text. The handle is verified against upiHandleAllowList.
	reUPI = regexp.MustCompile(`\b([a-z0-9][a-z0-9._-]*)@([a-z]{2,})\b`)

	// URLs: scheme-prefixed, or a bare domain followed by a path or query.
	reSchemeURL = regexp.MustCompile(`(?i)https?://[^\s<>"'{}|\\^` + "`" + `]+`)
	reBareURL   = regexp.MustCompile(`\b(?:[a-z0-9][a-z0-9-]*\.)+[a-z]{2,}(?:/[^\s<>"']*|\?[^\s<>"']+)`)
)

// upiHandleAllowList holds known UPI provider suffixes. Tokens with any other
// handle are not emitted: an unrestricted localpart@word pattern swallows
// emails and social handles.
var upiHandleAllowList = []string{
	"upi", "paytm", "phonepe", "gpay",
	"ybl", "ibl", "axl", "apl",
	"oksbi", "okicici", "okaxis", "okhdfcbank",
	"sbi", "icici", "hdfc", "axis", "kotak", "indus", "federal",
	"yapl", "freecharge", "airtel", "jio",
}

func newExtractor() *Extractor {
	handles := make(map[string]bool, len(upiHandleAllowList))
	for _, h := range upiHandleAllowList {
		handles[h] = true
	}

	return &Extractor{
		digitRun:   reDigitRun,
		phone:      rePhone,
		upi:        reUPI,
		ifsc:       reIFSC,
		schemeURL:  reSchemeURL,
		bareURL:    reBareURL,
		upiHandles: handles,
	}
}

// validBankAccount enforces the 9-18 digit window. The regex already
// guarantees it, but the extractor validates independently so a future
// pattern change cannot silently widen the window.
func validBankAccount(run string) bool {
	if len(run) < 9 || len(run) > 18 {
		return false
	}
	for _, r := range run {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// validIFSC re-checks the fixed IFSC format: 11 chars, 4 alpha, 5th char '0'.
func validIFSC(code string) bool {
	if len(code) != 11 {
		return false
	}
	for i := range 4 {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	if code[4] != '0' {
		return false
	}
	for i := 5; i < 11; i++ {
		c := code[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
