package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tumbig251800/atlas-wise-spark/internal/core/decision"
	"github.com/tumbig251800/atlas-wise-spark/internal/core/topic"
	"github.com/tumbig251800/atlas-wise-spark/internal/platform/llm"
	"github.com/tumbig251800/atlas-wise-spark/internal/platform/logger"
	"github.com/tumbig251800/atlas-wise-spark/internal/platform/metrics"
)

// AliasSource is the alias table as the normalizer sees it
type AliasSource interface {
	AliasCanonical(ctx context.Context, subject, grade, aliasKey string) (string, bool, error)
	AliasCanonicals(ctx context.Context, subject, grade string) ([]string, error)
}

// TopicRequest is one normalization
type TopicRequest struct {
	Topic   string
	History []string
	Subject string
	Grade   string
}

// Normalizer maps a free-text topic to a canonical name. It never fails: every
// error path ends in the lowercase fallback
type Normalizer struct {
	aliases AliasSource
	llm     llm.Provider
	timeout time.Duration
	metrics *metrics.Manager
}

// NewNormalizer builds a Normalizer. provider may be nil, which behaves like
// the disabled provider
func NewNormalizer(aliases AliasSource, provider llm.Provider, timeout time.Duration, m *metrics.Manager) *Normalizer {
	if provider == nil {
		provider = llm.Disabled{}
	}
	return &Normalizer{aliases: aliases, llm: provider, timeout: timeout, metrics: m}
}

var topicSchema = &llm.Schema{
	Name:        "normalize_topic",
	Description: "ชื่อหัวข้อมาตรฐาน",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"normalized": map[string]any{
				"type":        "string",
				"description": "ชื่อหัวข้อมาตรฐาน",
			},
		},
		"required":             []string{"normalized"},
		"additionalProperties": false,
	},
}

// Normalize returns the canonical topic. degraded is true when a dependency
// failed and the result is a fallback
func (n *Normalizer) Normalize(ctx context.Context, req TopicRequest) (t decision.Topic, degraded bool) {
	defer func() { n.metrics.Normalization(t.Method) }()

	trimmed := strings.TrimSpace(req.Topic)
	if trimmed == "" {
		return decision.Topic{Canonical: trimmed, Original: req.Topic, Method: topic.MethodRaw}, false
	}
	log := logger.C(ctx).With().Str("component", "topic-normalizer").Logger()

	key := topic.Key(trimmed)
	if n.aliases != nil {
		if c, ok, err := n.aliases.AliasCanonical(ctx, req.Subject, req.Grade, key); err != nil {
			log.Warn().Err(err).Msg("alias lookup failed")
			degraded = true
		} else if ok {
			return n.result(req, c, topic.MethodExact, topic.ConfidenceExact), degraded
		}

		if cands, err := n.aliases.AliasCanonicals(ctx, req.Subject, req.Grade); err != nil {
			log.Warn().Err(err).Msg("alias candidates failed")
			degraded = true
		} else if m, ok := topic.BestMatch(key, cands); ok {
			return n.result(req, m.Canonical, topic.MethodFuzzy, m.Score), degraded
		}
	}

	uniq := topic.Distinct(trimmed, req.History)
	if len(uniq) <= 1 {
		return n.result(req, trimmed, topic.MethodExact, topic.ConfidenceExact), degraded
	}

	if !llm.Enabled(n.llm) {
		return n.fallback(req), degraded
	}

	canonical, err := n.ask(ctx, trimmed, uniq)
	if err != nil {
		log.Warn().Err(err).Str("outcome", llm.Outcome(err)).Str("topic", trimmed).
			Msg("topic normalization fell back to lowercase")
		return n.fallback(req), true
	}
	return n.result(req, canonical, topic.MethodAI, topic.ConfidenceAI), degraded
}

func (n *Normalizer) ask(ctx context.Context, trimmed string, uniq []string) (string, error) {
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}
	list, err := json.Marshal(uniq)
	if err != nil {
		return "", err
	}
	prompt := fmt.Sprintf(
		"จัดกลุ่มหัวข้อการสอนเหล่านี้ว่าเรื่องใดเป็นเรื่องเดียวกัน: %s\nสำหรับหัวข้อ %q ให้ตอบชื่อมาตรฐานที่สั้นที่สุด",
		list, trimmed,
	)
	reply, err := n.llm.Complete(ctx, llm.Prompt{User: prompt, Schema: topicSchema, MaxTokens: 128})
	if err != nil {
		return "", err
	}
	var out struct {
		Normalized string `json:"normalized"`
	}
	if err := llm.Decode(reply, &out); err != nil {
		return "", err
	}
	if s := strings.TrimSpace(out.Normalized); s != "" {
		return s, nil
	}
	return "", &llm.InvalidReplyError{Content: reply.Content, Err: fmt.Errorf("empty normalized topic")}
}

func (n *Normalizer) result(req TopicRequest, canonical, method string, confidence float64) decision.Topic {
	return decision.Topic{Canonical: canonical, Original: req.Topic, Method: method, Confidence: confidence}
}

func (n *Normalizer) fallback(req TopicRequest) decision.Topic {
	return n.result(req, topic.Lower(req.Topic), topic.MethodRaw, topic.ConfidenceFallback)
}
