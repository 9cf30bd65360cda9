package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/decoynet/hivetrap/pkg/agent"
	"github.com/decoynet/hivetrap/pkg/config"
	"github.com/decoynet/hivetrap/pkg/ml"
	"github.com/decoynet/hivetrap/pkg/patterns"
	"github.com/decoynet/hivetrap/pkg/session"
	"github.com/decoynet/hivetrap/pkg/telemetry"
)

const Version = "0.1.0"

// Gateway holds the wired honeypot components.
// The semantic layer and the LLM degrade independently; the heuristic
// scorer and pattern extractor are always available.
type Gateway struct {
	registry *session.Registry
	store    session.Store
	llm      *ml.LLMClient
	detector *ml.ScamDetector
	metrics  *telemetry.Metrics
	config   *config.Config
}

func NewGateway(cfg *config.Config) *Gateway {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}

	llm := ml.NewLLMClient(cfg)
	if llm.Ready() {
		log.Printf("✓ LLM enabled (provider: %s, model: %s)", cfg.LLMProvider, cfg.LLMModel)
	} else {
		log.Println("○ LLM disabled (no provider configured) - heuristic scoring and canned replies only")
	}

	// Semantic layer needs a running embedding backend at startup.
	var semantic ml.SemanticAnalyzer
	if cfg.EnableSemantics {
		embedURL := cfg.LLMBaseURL
		if embedURL == "" {
			embedURL = "http://localhost:11434"
		}
		sd, err := ml.NewSemanticDetector(ml.NewOllamaEmbeddingFunc("nomic-embed-text", embedURL))
		if err != nil {
			log.Printf("○ Semantic detection disabled (init failed: %v)", err)
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			if err := sd.LoadPhrases(ctx); err != nil {
				log.Printf("○ Semantic detection disabled (phrase load failed: %v)", err)
			} else {
				semantic = sd
				log.Println("✓ Semantic detection enabled (chromem-go + Ollama embeddings)")
			}
			cancel()
		}
	}

	detector := ml.NewScamDetector(cfg, llm, semantic)

	persona := agent.LoadPersona(cfg.PersonaPath)
	log.Printf("✓ Persona loaded: %s", persona.Describe())
	engine := agent.NewEngine(persona, llm)

	var store session.Store
	if cfg.SessionBackend == config.BackendRedis {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rs, err := session.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.SessionTTL)
		cancel()
		if err != nil {
			log.Printf("[WARN] Redis store unavailable (%v), falling back to in-memory", err)
		} else {
			store = rs
			log.Printf("✓ Session store: redis (%s)", cfg.RedisAddr)
		}
	}
	if store == nil {
		store = session.NewMemoryStore(
			session.WithMaxAge(cfg.SessionTTL),
			session.WithCleanupInterval(cfg.CleanupInterval),
		)
		log.Println("✓ Session store: in-memory")
	}

	metrics := telemetry.NewMetrics()
	registry := session.NewRegistry(store, detector, engine, agent.NewTerminationPolicy(cfg), metrics)

	return &Gateway{
		registry: registry,
		store:    store,
		llm:      llm,
		detector: detector,
		metrics:  metrics,
		config:   cfg,
	}
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		port := ""
		if len(os.Args) > 2 {
			port = os.Args[2]
		}
		runHTTPServer(port)
	case "scan":
		if len(os.Args) < 3 {
			fmt.Println("Usage: hivetrap scan <text>")
			os.Exit(1)
		}
		runCLIScan(strings.Join(os.Args[2:], " "))
	case "version":
		fmt.Printf("hivetrap v%s\n", Version)
		fmt.Println("Conversational scam honeypot")
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("hivetrap v%s - Conversational scam honeypot\n\n", Version)
	fmt.Println("Usage:")
	fmt.Println("  hivetrap serve [port]   Start HTTP server (default: 8000)")
	fmt.Println("  hivetrap scan <text>    Run extraction + heuristic scoring offline")
	fmt.Println("  hivetrap version        Show version")
	fmt.Println("")
	fmt.Println("Examples:")
	fmt.Println("  hivetrap serve 8080")
	fmt.Println("  hivetrap scan \"Congratulations! You won 25 lakh, share your account number\"")
	fmt.Println("")
	fmt.Println("Environment Variables:")
	fmt.Println("  HIVETRAP_API_KEY          Shared secret for the X-API-Key header")
	fmt.Println("  GROQ_API_KEY              Groq API key for scoring and persona replies")
	fmt.Println("  HIVETRAP_LLM_PROVIDER     Provider: groq, openrouter, ollama")
	fmt.Println("  HIVETRAP_SESSION_BACKEND  Session store: memory (default), redis")
}

// ============================================================================
// HTTP Server Mode
// ============================================================================

// honeypotRequest accepts the canonical field names plus the aliases
// different upstream testers send.
type honeypotRequest struct {
	ConversationID string `json:"conversation_id"`
	ConversationId string `json:"conversationId"`
	SessionID      string `json:"session_id"`
	SessionId      string `json:"sessionId"`
	ID             string `json:"id"`
	Message        string `json:"message"`
	Text           string `json:"text"`
	Content        string `json:"content"`
	Msg            string `json:"msg"`
	Input          string `json:"input"`
}

func (r *honeypotRequest) conversationID() string {
	return firstNonEmpty(r.ConversationID, r.ConversationId, r.SessionID, r.SessionId, r.ID)
}

func (r *honeypotRequest) message() string {
	return firstNonEmpty(r.Message, r.Text, r.Content, r.Msg, r.Input)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

type honeypotResponse struct {
	ConversationID  string                    `json:"conversation_id"`
	ResponseMessage string                    `json:"response_message"`
	ScamDetected    bool                      `json:"scam_detected"`
	ConfidenceScore float64                   `json:"confidence_score"`
	Intelligence    patterns.Snapshot         `json:"extracted_intelligence"`
	Metrics         session.EngagementMetrics `json:"engagement_metrics"`
	AgentActive     bool                      `json:"agent_active"`
	Status          string                    `json:"status"`
}

func runHTTPServer(port string) {
	cfg := config.NewDefaultConfig()
	cfg.MustValidate()
	if port == "" {
		port = strconv.Itoa(cfg.Port)
	}

	gw := NewGateway(cfg)

	app := fiber.New(fiber.Config{
		AppName: "hivetrap",
	})

	// Shared-secret auth. The core assumes the caller is already
	// authenticated; this boundary is the only check.
	app.Use(func(c fiber.Ctx) error {
		if c.Path() == "/health" || c.Path() == "/" {
			return c.Next()
		}
		key := c.Get("X-API-Key")
		if key == "" {
			return c.Status(401).JSON(fiber.Map{"error": "Missing API key. Provide 'X-API-Key' header."})
		}
		if cfg.APIKey != "" && key != cfg.APIKey {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid API key."})
		}
		return c.Next()
	})

	app.Get("/", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "online", "service": "hivetrap", "version": Version})
	})

	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":               "healthy",
			"version":              Version,
			"model_configured":     gw.llm.Ready(),
			"active_conversations": gw.registry.ActiveCount(c.Context()),
			"counters":             gw.metrics.Read(),
			"model_inflight":       gw.llm.InflightStats(),
		})
	})

	app.Post("/honeypot", func(c fiber.Ctx) error {
		var req honeypotRequest
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body", "status": "error"})
		}

		convID := req.conversationID()
		msg := req.message()
		if convID == "" {
			return c.Status(400).JSON(fiber.Map{"error": "conversation_id is required", "status": "error"})
		}
		if msg == "" {
			return c.Status(400).JSON(fiber.Map{"error": "message is required", "status": "error"})
		}

		reqID := uuid.NewString()[:8]
		start := time.Now()

		result, err := gw.registry.ProcessMessage(c.Context(), convID, msg)
		if err != nil {
			log.Printf("[%s] Engage cycle failed for %s: %v", reqID, convID, err)
			return c.Status(500).JSON(fiber.Map{"error": "internal error", "status": "error"})
		}

		log.Printf("[%s] conv=%s scam=%t conf=%.2f intel=%d turns=%d latency=%dms",
			reqID, convID, result.ScamDetected, result.Confidence,
			intelTotal(result.Intelligence), result.Metrics.TurnCount,
			time.Since(start).Milliseconds())

		return c.JSON(honeypotResponse{
			ConversationID:  result.ConversationID,
			ResponseMessage: result.Reply,
			ScamDetected:    result.ScamDetected,
			ConfidenceScore: result.Confidence,
			Intelligence:    result.Intelligence,
			Metrics:         result.Metrics,
			AgentActive:     result.AgentActive,
			Status:          "success",
		})
	})

	app.Get("/conversation/:id", func(c fiber.Ctx) error {
		id := c.Params("id")
		s, err := gw.registry.Get(c.Context(), id)
		if err != nil {
			return c.Status(404).JSON(fiber.Map{"error": fmt.Sprintf("Conversation %s not found", id)})
		}
		return c.JSON(fiber.Map{
			"conversation_id":        s.ID,
			"messages":               s.Messages,
			"scam_detected":          s.ScamDetected,
			"confidence_score":       s.MaxConfidence,
			"agent_active":           s.Active,
			"extracted_intelligence": s.IntelSnapshot(),
			"metrics":                s.Metrics(time.Now()),
		})
	})

	app.Delete("/conversation/:id", func(c fiber.Ctx) error {
		id := c.Params("id")
		if _, err := gw.registry.Get(c.Context(), id); err != nil {
			return c.Status(404).JSON(fiber.Map{"error": fmt.Sprintf("Conversation %s not found", id)})
		}
		if err := gw.registry.Delete(c.Context(), id); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "delete failed"})
		}
		return c.JSON(fiber.Map{"status": "deleted", "conversation_id": id})
	})

	log.Printf("[STARTUP] hivetrap v%s listening on %s:%s", Version, cfg.Host, port)
	log.Printf("Endpoints:")
	log.Printf("  POST   /honeypot          - Engage cycle (auth required)")
	log.Printf("  GET    /conversation/:id  - Conversation history + intel")
	log.Printf("  DELETE /conversation/:id  - Remove a conversation")
	log.Printf("  GET    /health            - Health and counters")

	if err := app.Listen(cfg.Host + ":" + port); err != nil {
		log.Fatal(err)
	}
}

func intelTotal(s patterns.Snapshot) int {
	return len(s.BankAccounts) + len(s.UPIIDs) + len(s.PhishingURLs) + len(s.IFSCCodes) + len(s.PhoneNumbers)
}

// ============================================================================
// CLI Mode
// ============================================================================

// runCLIScan runs the offline layers only: pattern extraction plus the
// heuristic scorer. No network, no session state.
func runCLIScan(text string) {
	scorer := ml.NewHeuristicScorer()
	signal := scorer.Evaluate(text)
	intel := patterns.Get().Extract(text)

	out := struct {
		Text           string            `json:"text"`
		HeuristicScore float64           `json:"heuristic_score"`
		Reasons        []string          `json:"reasons,omitempty"`
		Intelligence   patterns.Snapshot `json:"extracted_intelligence"`
	}{
		Text:           text,
		HeuristicScore: signal.Score,
		Reasons:        signal.Reasons,
		Intelligence:   intel.Snapshot(),
	}

	data, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(data))
}
