// Package patterns provides a centralized, compile-once extractor registry
// for scam intelligence. All regexes are compiled at package init and shared
// across every conversation.
//
// Design principles:
// - COMPILE ONCE: all patterns compiled at init, not per-message
// - PURE: extraction is a pure function of the input text
// - EXCLUSIVE: a token is never emitted under two categories (phone wins
//   over bank account on overlapping digit runs)
package patterns

import (
	"regexp"
	"strings"
	"sync"

	"golang.org/x/text/cases"
)

// Category identifies one class of extracted intelligence
type Category string

const (
	CategoryBankAccount Category = "bank_account"
	CategoryUPIID       Category = "upi_id"
	CategoryPhishingURL Category = "phishing_url"
	CategoryIFSCCode    Category = "ifsc_code"
	CategoryPhoneNumber Category = "phone_number"
)

// Categories lists every category in stable output order.
var Categories = []Category{
	CategoryBankAccount,
	CategoryUPIID,
	CategoryPhishingURL,
	CategoryIFSCCode,
	CategoryPhoneNumber,
}

// Intel accumulates extracted values per category with set semantics.
// Values are only ever added, never removed; insertion order is preserved.
type Intel struct {
	values map[Category][]string
	seen   map[Category]map[string]bool
}

// NewIntel creates an empty accumulator.
func NewIntel() *Intel {
	return &Intel{
		values: make(map[Category][]string),
		seen:   make(map[Category]map[string]bool),
	}
}

// Add records a value under a category. Returns true if the value is new.
func (in *Intel) Add(cat Category, value string) bool {
	if value == "" {
		return false
	}
	if in.seen[cat] == nil {
		in.seen[cat] = make(map[string]bool)
	}
	if in.seen[cat][value] {
		return false
	}
	in.seen[cat][value] = true
	in.values[cat] = append(in.values[cat], value)
	return true
}

// Merge folds another accumulator into this one.
// Returns the number of values that were actually new.
func (in *Intel) Merge(delta *Intel) int {
	if delta == nil {
		return 0
	}
	added := 0
	for _, cat := range Categories {
		for _, v := range delta.values[cat] {
			if in.Add(cat, v) {
				added++
			}
		}
	}
	return added
}

// Values returns the accumulated values for a category.
// Always non-nil so callers can serialize it directly.
func (in *Intel) Values(cat Category) []string {
	if v := in.values[cat]; v != nil {
		return v
	}
	return []string{}
}

// Total returns the count of values across all categories.
func (in *Intel) Total() int {
	n := 0
	for _, vs := range in.values {
		n += len(vs)
	}
	return n
}

// Snapshot is the JSON-facing shape of accumulated intelligence.
type Snapshot struct {
	BankAccounts []string `json:"bank_accounts"`
	UPIIDs       []string `json:"upi_ids"`
	PhishingURLs []string `json:"phishing_urls"`
	IFSCCodes    []string `json:"ifsc_codes"`
	PhoneNumbers []string `json:"phone_numbers"`
}

// Snapshot returns a copy of the accumulated values for serialization.
func (in *Intel) Snapshot() Snapshot {
	return Snapshot{
		BankAccounts: append([]string{}, in.Values(CategoryBankAccount)...),
		UPIIDs:       append([]string{}, in.Values(CategoryUPIID)...),
		PhishingURLs: append([]string{}, in.Values(CategoryPhishingURL)...),
		IFSCCodes:    append([]string{}, in.Values(CategoryIFSCCode)...),
		PhoneNumbers: append([]string{}, in.Values(CategoryPhoneNumber)...),
	}
}

// Extractor holds the compiled identifier patterns.
type Extractor struct {
	digitRun  *regexp.Regexp
	phone     *regexp.Regexp
	upi       *regexp.Regexp
	ifsc      *regexp.Regexp
	schemeURL *regexp.Regexp
	bareURL   *regexp.Regexp

	upiHandles map[string]bool
}

// global singleton - initialized once at package load
var (
	globalExtractor *Extractor
	initOnce        sync.Once
)

// Get returns the global extractor (singleton).
// Thread-safe and guaranteed to be initialized.
func Get() *Extractor {
	initOnce.Do(func() {
		globalExtractor = newExtractor()
	})
	return globalExtractor
}

// Extract scans text and returns the intelligence delta found in that text
// alone. The caller merges the delta into the running per-conversation set.
// No match is not an error: the delta is simply empty.
func (e *Extractor) Extract(text string) *Intel {
	intel := NewIntel()
	if strings.TrimSpace(text) == "" {
		return intel
	}

	folded := cases.Fold().String(text)

	// Phone numbers first: the more specific digit shape wins the tie-break
	// against bank accounts on overlapping runs.
	claimed := e.extractPhones(text, intel)
	e.extractBankAccounts(text, claimed, intel)
	e.extractIFSC(text, intel)
	e.extractUPI(folded, intel)
	e.extractURLs(text, folded, intel)

	return intel
}

// span marks a claimed [start,end) byte range in the input text.
type span struct{ start, end int }

func overlaps(a span, claimed []span) bool {
	for _, c := range claimed {
		if a.start < c.end && c.start < a.end {
			return true
		}
	}
	return false
}

func (e *Extractor) extractPhones(text string, intel *Intel) []span {
	var claimed []span
	for _, m := range e.phone.FindAllStringSubmatchIndex(text, -1) {
		// Group 1 is the 10-digit core without the country prefix.
		core := text[m[2]:m[3]]
		intel.Add(CategoryPhoneNumber, core)
		claimed = append(claimed, span{m[0], m[1]})
	}
	return claimed
}

func (e *Extractor) extractBankAccounts(text string, claimed []span, intel *Intel) {
	for _, m := range e.digitRun.FindAllStringIndex(text, -1) {
		if overlaps(span{m[0], m[1]}, claimed) {
			continue
		}
		run := text[m[0]:m[1]]
		if validBankAccount(run) {
			intel.Add(CategoryBankAccount, run)
		}
	}
}

func (e *Extractor) extractIFSC(text string, intel *Intel) {
	upper := strings.ToUpper(text)
	for _, code := range e.ifsc.FindAllString(upper, -1) {
		if validIFSC(code) {
			intel.Add(CategoryIFSCCode, code)
		}
	}
}

func (e *Extractor) extractUPI(folded string, intel *Intel) {
	for _, m := range e.upi.FindAllStringSubmatch(folded, -1) {
		handle := m[2]
		if e.upiHandles[handle] {
			intel.Add(CategoryUPIID, m[1]+"@"+handle)
		}
	}
}

func (e *Extractor) extractURLs(text, folded string, intel *Intel) {
	for _, u := range e.schemeURL.FindAllString(text, -1) {
		intel.Add(CategoryPhishingURL, trimURL(u))
	}
	// Bare domains are matched on folded text so WWW.EVIL.IN/claim and
	// www.evil.in/claim dedupe to one entry.
	for _, m := range e.bareURL.FindAllStringIndex(folded, -1) {
		// Skip the host portion of a URL already captured with its scheme,
		// and anything glued to an @ (UPI ids, emails).
		if m[0] > 0 && (folded[m[0]-1] == '/' || folded[m[0]-1] == '@' || folded[m[0]-1] == '.') {
			continue
		}
		intel.Add(CategoryPhishingURL, trimURL(folded[m[0]:m[1]]))
	}
}

// trimURL strips trailing sentence punctuation that regex capture drags in.
func trimURL(u string) string {
	return strings.TrimRight(u, ".,;:!?)")
}
