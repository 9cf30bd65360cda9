package patterns

import (
	"testing"
)

func TestExtract_BankAccount(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		expect []string
	}{
		{"nine digits", "send to account 123456789 today", []string{"123456789"}},
		{"eighteen digits", "account 123456789012345678 is ready", []string{"123456789012345678"}},
		{"too short", "my pin is 12345678", nil},
		{"too long run rejected", "ref 1234567890123456789 invalid", nil},
		{"embedded in word", "code abc123456789xyz", nil},
	}

	e := Get()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Extract(tt.text).Values(CategoryBankAccount)
			if len(got) != len(tt.expect) {
				t.Fatalf("Extract(%q) bank accounts = %v, want %v", tt.text, got, tt.expect)
			}
			for i := range tt.expect {
				if got[i] != tt.expect[i] {
					t.Errorf("bank account %d = %q, want %q", i, got[i], tt.expect[i])
				}
			}
		})
	}
}

func TestExtract_IFSC(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		match bool
	}{
		{"valid code", "transfer via SBIN0012345", true},
		{"fifth char not zero", "code SBIN1012345 invalid", false},
		{"too short", "code SBI0012345 invalid", false},
		{"alnum branch part", "HDFC0A1B2C3 works", true},
	}

	e := Get()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Extract(tt.text).Values(CategoryIFSCCode)
			if tt.match && len(got) != 1 {
				t.Errorf("Extract(%q) IFSC = %v, want one match", tt.text, got)
			}
			if !tt.match && len(got) != 0 {
				t.Errorf("Extract(%q) IFSC = %v, want none", tt.text, got)
			}
		})
	}
}

func TestExtract_UPI(t *testing.T) {
	e := Get()

	got := e.Extract("Pay me at ramesh.k@paytm before 5pm").Values(CategoryUPIID)
	if len(got) != 1 || got[0] != "ramesh.k@paytm" {
		t.Fatalf("UPI extraction = %v, want [ramesh.k@paytm]", got)
	}

	// Uppercase input is folded before matching.
	got = e.Extract("Send to RAMESH@YBL now").Values(CategoryUPIID)
	if len(got) != 1 || got[0] != "ramesh@ybl" {
		t.Errorf("folded UPI extraction = %v, want [ramesh@ybl]", got)
	}

	// Email-looking handles outside the allow-list are not UPI ids.
	got = e.Extract("mail me at someone@example").Values(CategoryUPIID)
	if len(got) != 0 {
		t.Errorf("non-UPI handle extracted: %v", got)
	}
}

func TestExtract_PhoneNumber(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		expect string
	}{
		{"bare ten digits", "call 9876543210 now", "9876543210"},
		{"plus country code", "call +919876543210 now", "9876543210"},
		{"country code no plus", "call 919876543210 now", "9876543210"},
		{"leading zero", "call 09876543210 now", "9876543210"},
	}

	e := Get()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Extract(tt.text).Values(CategoryPhoneNumber)
			if len(got) != 1 || got[0] != tt.expect {
				t.Errorf("Extract(%q) phones = %v, want [%s]", tt.text, got, tt.expect)
			}
		})
	}

	// Starts with 5: not a valid mobile prefix.
	got := e.Extract("ref 5876543210 here").Values(CategoryPhoneNumber)
	if len(got) != 0 {
		t.Errorf("invalid prefix extracted as phone: %v", got)
	}
}

func TestExtract_PhoneWinsOverBank(t *testing.T) {
	e := Get()

	// A ten-digit mobile number is phone, never bank account.
	intel := e.Extract("send money, call 9876543210")
	if phones := intel.Values(CategoryPhoneNumber); len(phones) != 1 {
		t.Fatalf("phones = %v, want one", phones)
	}
	if banks := intel.Values(CategoryBankAccount); len(banks) != 0 {
		t.Errorf("ten-digit phone also extracted as bank account: %v", banks)
	}

	// Both present: each token lands in exactly one category.
	intel = e.Extract("account 123456789012 or call 9876543210")
	if banks := intel.Values(CategoryBankAccount); len(banks) != 1 || banks[0] != "123456789012" {
		t.Errorf("banks = %v, want [123456789012]", banks)
	}
	if phones := intel.Values(CategoryPhoneNumber); len(phones) != 1 || phones[0] != "9876543210" {
		t.Errorf("phones = %v, want [9876543210]", phones)
	}
}

func TestExtract_URLs(t *testing.T) {
	e := Get()

	got := e.Extract("Click https://secure-kyc-update.com/verify?id=1 now").Values(CategoryPhishingURL)
	if len(got) != 1 || got[0] != "https://secure-kyc-update.com/verify?id=1" {
		t.Fatalf("scheme URL = %v", got)
	}

	got = e.Extract("visit bit.ly/claim50 to collect").Values(CategoryPhishingURL)
	if len(got) != 1 || got[0] != "bit.ly/claim50" {
		t.Errorf("bare URL = %v, want [bit.ly/claim50]", got)
	}

	// Trailing punctuation is trimmed.
	got = e.Extract("go to https://evil.example/login.").Values(CategoryPhishingURL)
	if len(got) != 1 || got[0] != "https://evil.example/login" {
		t.Errorf("trimmed URL = %v", got)
	}
}

func TestExtract_NoMatches(t *testing.T) {
	intel := Get().Extract("hello, how are you doing today?")
	if intel.Total() != 0 {
		t.Errorf("benign text produced intel: %+v", intel.Snapshot())
	}
}

func TestIntel_MergeIdempotent(t *testing.T) {
	e := Get()
	text := "account 123456789012, UPI fraud@paytm, IFSC SBIN0012345"

	intel := NewIntel()
	first := intel.Merge(e.Extract(text))
	if first != 3 {
		t.Fatalf("first merge added %d, want 3", first)
	}
	second := intel.Merge(e.Extract(text))
	if second != 0 {
		t.Errorf("repeat merge added %d, want 0", second)
	}
	if intel.Total() != 3 {
		t.Errorf("total = %d, want 3", intel.Total())
	}
}

func TestIntel_ValuesNeverNil(t *testing.T) {
	intel := NewIntel()
	for _, cat := range Categories {
		if intel.Values(cat) == nil {
			t.Errorf("Values(%s) returned nil", cat)
		}
	}
	snap := intel.Snapshot()
	if snap.BankAccounts == nil || snap.UPIIDs == nil || snap.PhishingURLs == nil ||
		snap.IFSCCodes == nil || snap.PhoneNumbers == nil {
		t.Error("Snapshot contains nil slices")
	}
}

func TestExtract_CombinedMessage(t *testing.T) {
	intel := Get().Extract(
		"Congratulations! Transfer fee to account 98765432101, IFSC SBIN0012345, " +
			"or UPI winner@ybl. Call +919812345678 or visit http://lucky-draw.example/claim")

	if got := intel.Values(CategoryBankAccount); len(got) != 1 {
		t.Errorf("bank accounts = %v", got)
	}
	if got := intel.Values(CategoryIFSCCode); len(got) != 1 {
		t.Errorf("IFSC codes = %v", got)
	}
	if got := intel.Values(CategoryUPIID); len(got) != 1 {
		t.Errorf("UPI ids = %v", got)
	}
	if got := intel.Values(CategoryPhoneNumber); len(got) != 1 {
		t.Errorf("phones = %v", got)
	}
	if got := intel.Values(CategoryPhishingURL); len(got) != 1 {
		t.Errorf("URLs = %v", got)
	}
}

func BenchmarkExtract(b *testing.B) {
	e := Get()
	text := "Urgent! Your account will be blocked. Transfer to 123456789012 IFSC SBIN0012345 or pay fraud@paytm, call 9876543210, details at https://kyc-update.example/verify"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Extract(text)
	}
}
