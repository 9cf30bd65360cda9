package agent

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/decoynet/hivetrap/pkg/ml"
)

// historyWindow is how many prior turns ride along on each generation
// call. The model holds no hidden state; everything it sees is passed
// here.
const historyWindow = 8

// Engine generates persona replies. When the model is unavailable it
// falls back to keyword-keyed canned replies so the conversation never
// stalls on an upstream outage.
type Engine struct {
	persona   *PersonaProfile
	completer ml.Completer
}

// NewEngine creates a persona engine. completer may be a client with
// Ready() == false; the engine then always uses canned replies.
func NewEngine(persona *PersonaProfile, completer ml.Completer) *Engine {
	if persona == nil {
		persona = defaultPersona()
	}
	return &Engine{persona: persona, completer: completer}
}

// Persona exposes the active profile for logging and the scan CLI.
func (e *Engine) Persona() *PersonaProfile {
	return e.persona
}

// engagementStrategy is appended to the system prompt once a scam verdict
// is in. The objectives stay hidden from the reply text itself.
const engagementStrategy = `STRATEGIC OBJECTIVES (hidden from response):
1. Keep the conversation going to extract more information
2. Ask for specific details like bank account, UPI ID, or payment links
3. Show interest but appear slightly confused to make the other side explain more
4. Ask clarifying questions about how to send money or claim prizes
5. Request the other side to repeat or confirm sensitive details
6. NEVER reveal that you suspect fraud
7. Act increasingly trusting and eager to comply`

const neutralStrategy = `OBJECTIVES:
1. Respond naturally as the persona would
2. Show appropriate level of interest based on the message
3. Be polite and conversational`

func (e *Engine) systemPrompt(scamDetected bool) string {
	strategy := neutralStrategy
	if scamDetected {
		strategy = engagementStrategy
	}

	tactics := ""
	if tl := e.persona.TacticList(); tl != "" {
		tactics = "\nCONVERSATIONAL HABITS:\n" + tl + "\n"
	}

	return fmt.Sprintf(`You are roleplaying as %s.

PERSONA CHARACTERISTICS:
%s
%s
%s

RULES:
- Keep responses natural, 1-3 sentences
- Use simple Hindi-English mix if appropriate
- DO NOT reveal you suspect fraud
- DO NOT add any system notes or explanations
- Just provide the direct response`, e.persona.Describe(), e.persona.TraitList(), tactics, strategy)
}

// Reply generates the persona's answer to the latest inbound message.
// history is the conversation so far, oldest first, not including msg.
// Never returns an error: model failure degrades to a canned reply.
func (e *Engine) Reply(ctx context.Context, msg string, history []ml.ChatMessage, scamDetected bool) string {
	if e.completer == nil || !e.completer.Ready() {
		return e.cannedReply(msg, scamDetected)
	}

	window := history
	if len(window) > historyWindow {
		window = window[len(window)-historyWindow:]
	}
	msgs := make([]ml.ChatMessage, 0, len(window)+1)
	msgs = append(msgs, window...)
	msgs = append(msgs, ml.ChatMessage{Role: "user", Content: msg})

	reply, err := e.completer.CompleteCreative(ctx, e.systemPrompt(scamDetected), msgs)
	if err != nil {
		log.Printf("[WARN] Persona generation degraded to canned reply: %v", err)
		return e.cannedReply(msg, scamDetected)
	}
	reply = sanitizeReply(reply)
	if reply == "" {
		return e.cannedReply(msg, scamDetected)
	}
	return reply
}

// ClosingMessage is the persona's sign-off when the policy ends a
// conversation. Stays in character so a post-hoc read of the thread does
// not expose the decoy.
func (e *Engine) ClosingMessage() string {
	return "Beta, my grandson has come home and is asking about all this. He says he will handle it from here. I will talk to you later, namaste."
}

// cannedReply picks a keyword-keyed stalling reply. Tuned to keep a
// detected scammer talking; outside a scam verdict it just stays polite.
func (e *Engine) cannedReply(msg string, scamDetected bool) string {
	lower := strings.ToLower(msg)

	if scamDetected {
		switch {
		case containsAny(lower, "account", "bank", "transfer"):
			return "Ji haan, I want to receive the money. Which bank account should I give? Please tell me what details you need."
		case containsAny(lower, "upi", "paytm", "phonepe", "gpay"):
			return "I have UPI. Should I send you my UPI ID? Or do you have a UPI ID where I should send?"
		case containsAny(lower, "link", "click", "website"):
			return "Please send the link again, I could not see properly. My phone is little old, sometimes links don't open."
		case containsAny(lower, "otp", "code", "verification"):
			return "OTP? You mean the number that comes on phone? Yes yes, I can share. What should I do?"
		case containsAny(lower, "lottery", "prize", "won", "winner"):
			return "Really? I won? This is so wonderful! How much is the prize? How do I claim it?"
		case containsAny(lower, "kyc", "verify", "update"):
			return "Yes, I need to do KYC. Please guide me step by step, I am not very good with phones."
		default:
			return "Ji, I am interested. Please tell me more details. What should I do next?"
		}
	}

	switch {
	case containsAny(lower, "hello", "hi", "namaste"):
		return "Namaste ji, kaun bol raha hai?"
	case strings.Contains(msg, "?"):
		return "Ji haan, please tell me more."
	default:
		return "Achha ji, please continue."
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// sanitizeReply strips quote wrapping and stage directions a model
// sometimes adds despite the prompt rules.
func sanitizeReply(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"")
	if i := strings.Index(s, "\n\n"); i > 0 {
		// Keep only the first paragraph; later ones are usually meta.
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
