// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package agent

import (
	"context"
	"fmt"
	"iter"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kadirpekel/bookrag/pkg/bookrag"
	"github.com/kadirpekel/bookrag/pkg/citation"
	"github.com/kadirpekel/bookrag/pkg/llm"
	"github.com/kadirpekel/bookrag/pkg/obstrace"
	"github.com/kadirpekel/bookrag/pkg/retrieval"
	"github.com/kadirpekel/bookrag/pkg/tokencount"
)

// historyTokenBudget bounds how much session history is injected into a
// single prompt, leaving headroom for the retrieved passages.
const historyTokenBudget = 2000

// promptRules are the four rules every agent's system prompt enumerates,
// per the shared prompt contract.
const promptRules = `You are an assistant answering questions about a technical book. Follow these rules:
(a) Answer exclusively from the passages provided below.
(b) When the passages do not contain the answer, say plainly that the book does not cover it. Do not guess.
(c) Cite every factual claim you make with a marker like [Source 1], referencing the numbered passage it came from.
(d) Stay within your assigned domain; do not answer questions clearly outside it.`

// base implements the parts of Agent shared by every concrete domain
// agent: keyword/pattern scoring, retrieval, prompt assembly, and
// streaming generation.
type base struct {
	name        string
	domain      bookrag.Domain
	description string
	keywords    []string
	patterns    []*regexp.Regexp
	scopeNote   string // appended to promptRules, describes this agent's domain scope

	retrieval *retrieval.Skill
	llm       llm.Provider
	tokens    *tokencount.TokenCounter // nil if the model's encoding is unavailable
}

func newBase(name string, domain bookrag.Domain, description string, keywords []string, patterns []string, scopeNote string, r *retrieval.Skill, p llm.Provider) base {
	if len(keywords) < minKeywords {
		panic(fmt.Sprintf("agent %q must declare at least %d keywords", name, minKeywords))
	}
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pat := range patterns {
		compiled = append(compiled, regexp.MustCompile(pat))
	}
	counter, _ := tokencount.NewTokenCounter(p.Model()) // nil on error; history trimming is then skipped

	return base{
		name:        name,
		domain:      domain,
		description: description,
		keywords:    keywords,
		patterns:    compiled,
		scopeNote:   scopeNote,
		retrieval:   r,
		llm:         p,
		tokens:      counter,
	}
}

func (b *base) Name() string           { return b.name }
func (b *base) Domain() bookrag.Domain { return b.domain }
func (b *base) Description() string    { return b.description }
func (b *base) Keywords() []string     { return b.keywords }

// CanHandle is the minimum viable scorer: a case-insensitive substring
// match of query against the agent's keyword set, plus one match for
// every domain pattern signal that fires, capped at 1.0.
func (b *base) CanHandle(query string) float32 {
	lower := strings.ToLower(query)
	matches := 0
	for _, kw := range b.keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			matches++
		}
	}
	for _, p := range b.patterns {
		if p.MatchString(lower) {
			matches++
		}
	}
	score := float32(matches) / 3.0
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func (b *base) systemPrompt() string {
	return promptRules + "\n\n" + b.scopeNote
}

// userPrompt bundles session history, optional selected text, the query,
// and numbered passages, in that order.
func userPrompt(agentCtx bookrag.AgentContext, passages []bookrag.RetrievedPassage) string {
	var sb strings.Builder

	if len(agentCtx.History) > 0 {
		sb.WriteString("Conversation so far:\n")
		for _, m := range agentCtx.History {
			fmt.Fprintf(&sb, "%s: %s\n", m.Role, m.Content)
		}
		sb.WriteString("\n")
	}

	if agentCtx.SelectedText != "" {
		sb.WriteString("The user has selected this passage from the book:\n")
		sb.WriteString(agentCtx.SelectedText)
		sb.WriteString("\n\n")
	}

	fmt.Fprintf(&sb, "Question: %s\n\n", agentCtx.Query)

	if len(passages) == 0 {
		sb.WriteString("No passages were retrieved for this question.\n")
	} else {
		sb.WriteString("Passages:\n")
		for i, p := range passages {
			fmt.Fprintf(&sb, "[Source %d] (%s", i+1, p.Source)
			if p.Section != "" {
				fmt.Fprintf(&sb, ", %s", p.Section)
			}
			sb.WriteString(")\n")
			sb.WriteString(p.Text)
			sb.WriteString("\n\n")
		}
	}

	return sb.String()
}

// retrieveAndPrompt runs retrieval scoped to this agent's domain (unless
// domain is empty, meaning search unrestricted) and returns the numbered
// passages and the assembled user prompt.
func (b *base) retrieveAndPrompt(ctx context.Context, agentCtx bookrag.AgentContext) ([]bookrag.RetrievedPassage, string, error) {
	domainFilter := b.domain
	if agentCtx.DomainFilter != "" {
		domainFilter = agentCtx.DomainFilter
	}
	if b.domain == bookrag.DomainGeneral {
		domainFilter = "" // the fallback agent searches without a domain filter
	}

	ctx, span := obstrace.Tracer("bookrag.agent").Start(ctx, obstrace.SpanRetrieve,
		trace.WithAttributes(attribute.String(obstrace.AttrAgentName, b.name)))
	defer span.End()

	passages, err := b.retrieval.Search(ctx, retrieval.Request{
		Query:        agentCtx.Query,
		DomainFilter: domainFilter,
		Expand:       true,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, "", err
	}
	span.SetStatus(codes.Ok, "")

	return passages, userPrompt(agentCtx, passages), nil
}

// startGenerateSpan opens a span around one LLM completion, covering both
// GenerateStreaming's initial round trip and the full chunk stream that
// follows; callers end it once the stream is fully drained or failed.
func (b *base) startGenerateSpan(ctx context.Context) (context.Context, trace.Span) {
	return obstrace.Tracer("bookrag.agent").Start(ctx, obstrace.SpanGenerate,
		trace.WithAttributes(attribute.String(obstrace.AttrAgentName, b.name)))
}

// Run performs retrieval, composes the prompt, and collects the full
// completion into a single AgentResponse.
func (b *base) Run(ctx context.Context, agentCtx bookrag.AgentContext) (bookrag.AgentResponse, error) {
	passages, prompt, err := b.retrieveAndPrompt(ctx, agentCtx)
	if err != nil {
		return bookrag.AgentResponse{}, err
	}

	genCtx, span := b.startGenerateSpan(ctx)
	ch, err := b.llm.GenerateStreaming(genCtx, b.systemPrompt(), b.historyMessages(agentCtx.History), prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return bookrag.AgentResponse{}, bookrag.NewError(bookrag.KindLLMUnavailable, "agent:"+b.name, "run", "completion failed", err)
	}

	var text strings.Builder
	for chunk := range ch {
		switch chunk.Type {
		case "text":
			text.WriteString(chunk.Text)
		case "error":
			span.RecordError(chunk.Error)
			span.SetStatus(codes.Error, "stream interrupted")
			span.End()
			return bookrag.AgentResponse{}, bookrag.NewError(bookrag.KindLLMUnavailable, "agent:"+b.name, "run", "stream interrupted", chunk.Error)
		}
	}
	span.SetStatus(codes.Ok, "")
	span.End()

	citations := citation.Build(passages)
	finalText, kept := citation.FilterReferenced(text.String(), citations)

	return bookrag.AgentResponse{
		Response:  finalText,
		Citations: kept,
		AgentName: b.name,
	}, nil
}

// RunStream produces the same answer as Run, but yields text as it
// streams from the LLM provider and defers citation events until the
// full answer is known.
func (b *base) RunStream(ctx context.Context, agentCtx bookrag.AgentContext) iter.Seq[bookrag.Event] {
	return func(yield func(bookrag.Event) bool) {
		passages, prompt, err := b.retrieveAndPrompt(ctx, agentCtx)
		if err != nil {
			yield(bookrag.Event{Type: bookrag.EventError, Message: "I couldn't search the book right now. Please try again in a moment.", AgentName: b.name})
			return
		}

		genCtx, span := b.startGenerateSpan(ctx)
		ch, err := b.llm.GenerateStreaming(genCtx, b.systemPrompt(), b.historyMessages(agentCtx.History), prompt)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			yield(bookrag.Event{Type: bookrag.EventError, Message: "I couldn't generate an answer right now. Please try again in a moment.", AgentName: b.name})
			return
		}

		var text strings.Builder
		for chunk := range ch {
			switch chunk.Type {
			case "text":
				text.WriteString(chunk.Text)
				if !yield(bookrag.Event{Type: bookrag.EventText, Text: chunk.Text, AgentName: b.name}) {
					span.End()
					return
				}
			case "error":
				span.RecordError(chunk.Error)
				span.SetStatus(codes.Error, "stream interrupted")
				span.End()
				yield(bookrag.Event{Type: bookrag.EventError, Message: "The answer was interrupted partway through. Please try again.", AgentName: b.name})
				return
			}
		}
		span.SetStatus(codes.Ok, "")
		span.End()

		citations := citation.Build(passages)
		_, kept := citation.FilterReferenced(text.String(), citations)
		for _, c := range kept {
			if !yield(bookrag.Event{Type: bookrag.EventSource, Citation: c, AgentName: b.name}) {
				return
			}
		}

		yield(bookrag.Event{Type: bookrag.EventEnd, AgentName: b.name})
	}
}

// historyMessages converts session history to the LLM wire format,
// trimming from the oldest end so the injected history fits
// historyTokenBudget tokens.
func (b *base) historyMessages(history []bookrag.SessionMessage) []llm.Message {
	if b.tokens != nil {
		converted := make([]tokencount.Message, len(history))
		for i, m := range history {
			converted[i] = tokencount.Message{Role: string(m.Role), Content: m.Content}
		}
		fitted := b.tokens.FitWithinLimit(converted, historyTokenBudget)
		out := make([]llm.Message, len(fitted))
		for i, m := range fitted {
			out[i] = llm.Message{Role: m.Role, Content: m.Content}
		}
		return out
	}

	out := make([]llm.Message, len(history))
	for i, m := range history {
		out[i] = llm.Message{Role: string(m.Role), Content: m.Content}
	}
	return out
}
