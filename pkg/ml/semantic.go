package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/decoynet/hivetrap/pkg/httputil"
)

// ScamPhrase is a seed example of a known scam opener with metadata.
type ScamPhrase struct {
	Text     string
	Category string
}

// SemanticDetector uses embedding similarity against known scam openers.
// Catches paraphrased scripts the keyword lexicon misses ("a sum of money
// awaits you" never says "lottery"). Entirely optional: when no embedding
// source is reachable at startup the detector stays not-ready and the
// fused verdict runs without it.
type SemanticDetector struct {
	db         *chromem.DB
	collection *chromem.Collection
	threshold  float32
	mu         sync.RWMutex
	ready      bool
}

// scamSeedPhrases are canonical openers per scam family. Kept short: each
// phrase costs one embedding call at startup.
var scamSeedPhrases = []ScamPhrase{
	{"Congratulations you have won a lottery of 25 lakh rupees", "lottery"},
	{"You are the lucky winner of our anniversary prize draw", "lottery"},
	{"Your bank account will be blocked today unless you verify KYC", "kyc_fraud"},
	{"Update your KYC immediately or your account will be suspended", "kyc_fraud"},
	{"Share the OTP you received to complete the verification", "otp_fraud"},
	{"I am calling from your bank, please confirm your card number and CVV", "impersonation"},
	{"This is customer care, your refund is pending, install this app", "refund_scam"},
	{"Work from home and earn 5000 daily, registration fee only 500", "job_scam"},
	{"Pre-approved loan waiting for you, pay processing fee to release", "loan_scam"},
	{"Invest now and double your money in 30 days guaranteed", "investment_fraud"},
	{"Your parcel is held at customs, pay the duty at this link", "customs_scam"},
	{"Your electricity will be disconnected tonight, call this number", "utility_scam"},
}

// NewSemanticDetector creates a detector with a custom embedding function.
// Tests inject a deterministic func; production uses NewOllamaEmbeddingFunc.
func NewSemanticDetector(embed chromem.EmbeddingFunc) (*SemanticDetector, error) {
	if embed == nil {
		return nil, fmt.Errorf("embedding func is nil")
	}

	db := chromem.NewDB()
	collection, err := db.CreateCollection("scam_phrases", nil, embed)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	return &SemanticDetector{
		db:         db,
		collection: collection,
		threshold:  0.70,
	}, nil
}

// NewOllamaEmbeddingFunc builds an embedding function backed by a local
// Ollama server's /api/embeddings endpoint.
func NewOllamaEmbeddingFunc(model, baseURL string) chromem.EmbeddingFunc {
	client := httputil.SlowClient()

	return func(ctx context.Context, text string) ([]float32, error) {
		reqBody := map[string]string{
			"model":  model,
			"prompt": text,
		}
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, "POST", strings.TrimRight(baseURL, "/")+"/api/embeddings", bytes.NewBuffer(jsonData))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("embedding request failed: %w", err)
		}
		defer httputil.DrainAndClose(resp.Body)

		if resp.StatusCode != http.StatusOK {
			body, _ := httputil.ReadErrorBody(resp.Body)
			return nil, fmt.Errorf("embedding API error %d: %s", resp.StatusCode, string(body))
		}

		var result struct {
			Embedding []float32 `json:"embedding"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, fmt.Errorf("failed to decode embedding: %w", err)
		}
		return result.Embedding, nil
	}
}

// LoadPhrases embeds the seed phrases into the vector store. Requires the
// embedding source to be reachable; call at startup with a timeout.
func (sd *SemanticDetector) LoadPhrases(ctx context.Context) error {
	sd.mu.Lock()
	defer sd.mu.Unlock()

	docs := make([]chromem.Document, len(scamSeedPhrases))
	for i, p := range scamSeedPhrases {
		docs[i] = chromem.Document{
			ID:      fmt.Sprintf("phrase_%d", i),
			Content: p.Text,
			Metadata: map[string]string{
				"category": p.Category,
			},
		}
	}

	// One worker: embedding backends choke on concurrent seed bursts.
	if err := sd.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("failed to add scam phrases: %w", err)
	}

	sd.ready = true
	return nil
}

// IsReady returns true once seed phrases are embedded and loaded.
func (sd *SemanticDetector) IsReady() bool {
	sd.mu.RLock()
	defer sd.mu.RUnlock()
	return sd.ready
}

// SetThreshold updates the similarity threshold.
func (sd *SemanticDetector) SetThreshold(t float32) {
	sd.mu.Lock()
	defer sd.mu.Unlock()
	sd.threshold = t
}

// Detect analyzes text for similarity to known scam openers.
func (sd *SemanticDetector) Detect(ctx context.Context, text string) (*SemanticResult, error) {
	sd.mu.RLock()
	defer sd.mu.RUnlock()

	if !sd.ready {
		return nil, fmt.Errorf("semantic detector not initialized - call LoadPhrases first")
	}

	results, err := sd.collection.Query(ctx, strings.ToLower(text), 1, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	if len(results) == 0 {
		return &SemanticResult{Score: 0, Category: "none", IsThreat: false}, nil
	}

	best := results[0]
	return &SemanticResult{
		Score:       best.Similarity,
		Category:    best.Metadata["category"],
		MatchedText: best.Content,
		IsThreat:    best.Similarity >= sd.threshold,
	}, nil
}

// Ensure SemanticDetector implements SemanticAnalyzer
var _ SemanticAnalyzer = (*SemanticDetector)(nil)
