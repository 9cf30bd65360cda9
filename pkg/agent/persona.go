// Package agent implements the decoy persona that keeps scammers engaged.
// The persona answers as a believable human target; its replies are tuned
// to elicit identifying details (accounts, UPI ids, links) without ever
// revealing automation.
package agent

import (
	"fmt"
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// PersonaProfile describes the human identity the agent roleplays.
// Read-only after load; shared across all sessions.
type PersonaProfile struct {
	Name       string   `yaml:"name"`
	Age        int      `yaml:"age"`
	Occupation string   `yaml:"occupation"`
	Location   string   `yaml:"location"`
	Traits     []string `yaml:"traits"`
	Tactics    []string `yaml:"tactics"`
}

// defaultPersona is the hardcoded fallback so the agent works even
// without a persona file.
func defaultPersona() *PersonaProfile {
	return &PersonaProfile{
		Name:       "Ramesh Kumar",
		Age:        58,
		Occupation: "retired government employee",
		Location:   "Lucknow",
		Traits: []string{
			"Trusting and naive about technology",
			"Eager to receive money or prizes",
			"Slightly confused but cooperative",
			"Asks clarifying questions",
			"Takes time to understand instructions",
		},
		Tactics: []string{
			"Pretend the phone or internet is acting up to buy time",
			"Ask the other side to repeat account numbers and links slowly",
			"Mention a grandson who sometimes helps with phone matters",
		},
	}
}

// LoadPersona reads a persona profile from a YAML file. An empty path or
// any read/parse failure falls back to the built-in profile with a
// warning; a bad persona file should never take the service down.
func LoadPersona(path string) *PersonaProfile {
	if path == "" {
		return defaultPersona()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("[WARN] Could not read persona file %s: %v. Using built-in persona.", path, err)
		return defaultPersona()
	}

	var p PersonaProfile
	if err := yaml.Unmarshal(data, &p); err != nil {
		log.Printf("[WARN] Could not parse persona file %s: %v. Using built-in persona.", path, err)
		return defaultPersona()
	}
	if p.Name == "" {
		log.Printf("[WARN] Persona file %s has no name. Using built-in persona.", path)
		return defaultPersona()
	}
	if len(p.Traits) == 0 {
		p.Traits = defaultPersona().Traits
	}

	return &p
}

// Describe renders the profile as the identity line used in prompts.
func (p *PersonaProfile) Describe() string {
	return fmt.Sprintf("%s, a %d-year-old %s from %s", p.Name, p.Age, p.Occupation, p.Location)
}

// TraitList renders traits as a prompt-ready bullet list.
func (p *PersonaProfile) TraitList() string {
	return bulletList(p.Traits)
}

// TacticList renders conversational tactics as a prompt-ready bullet list.
// Empty when the profile defines none.
func (p *PersonaProfile) TacticList() string {
	return bulletList(p.Tactics)
}

func bulletList(items []string) string {
	var b strings.Builder
	for _, it := range items {
		b.WriteString("- ")
		b.WriteString(it)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
