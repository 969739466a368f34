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

// Package pipeline wires the router, agent registry, and session store
// into the single entry point the transport layer calls: validate,
// route, run one or more agents, persist history, and stream events.
package pipeline

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kadirpekel/bookrag/pkg/agent"
	"github.com/kadirpekel/bookrag/pkg/bookrag"
	"github.com/kadirpekel/bookrag/pkg/citation"
	"github.com/kadirpekel/bookrag/pkg/obslog"
	"github.com/kadirpekel/bookrag/pkg/obstrace"
	"github.com/kadirpekel/bookrag/pkg/router"
	"github.com/kadirpekel/bookrag/pkg/session"
)

const (
	minQueryLen        = 1
	maxQueryLen        = 2000
	minSelectedTextLen = 10
	maxSelectedTextLen = 2000

	DefaultSoftTimeout = 20 * time.Second
	DefaultHardTimeout = 30 * time.Second
)

// Config tunes request validation and per-agent timeouts.
type Config struct {
	HistoryWindow int
	SoftTimeout   time.Duration
	HardTimeout   time.Duration
}

func (c Config) withDefaults() Config {
	if c.HistoryWindow <= 0 {
		c.HistoryWindow = session.DefaultWindow
	}
	if c.SoftTimeout <= 0 {
		c.SoftTimeout = DefaultSoftTimeout
	}
	if c.HardTimeout <= 0 {
		c.HardTimeout = DefaultHardTimeout
	}
	return c
}

// Pipeline is the RAG Pipeline Orchestrator: the single entry point that
// binds the router, the agent registry, and the session store.
type Pipeline struct {
	registry *agent.Registry
	router   *router.Router
	sessions session.Store
	cfg      Config
}

// New builds a Pipeline. reg must already be validated (Registry.Validate).
func New(reg *agent.Registry, r *router.Router, store session.Store, cfg Config) *Pipeline {
	return &Pipeline{registry: reg, router: r, sessions: store, cfg: cfg.withDefaults()}
}

func validate(query string, selectedText *string) error {
	n := len(strings.TrimSpace(query))
	if n < minQueryLen {
		return bookrag.NewError(bookrag.KindQueryInvalid, "pipeline", "validate", "query must not be empty", nil)
	}
	if utf8.RuneCountInString(query) > maxQueryLen {
		return bookrag.NewError(bookrag.KindQueryTooLong, "pipeline", "validate", fmt.Sprintf("query exceeds %d characters", maxQueryLen), nil)
	}
	if selectedText != nil {
		n := utf8.RuneCountInString(*selectedText)
		if n < minSelectedTextLen || n > maxSelectedTextLen {
			return bookrag.NewError(bookrag.KindQueryInvalid, "pipeline", "validate",
				fmt.Sprintf("selected_text must be %d..%d characters", minSelectedTextLen, maxSelectedTextLen), nil)
		}
	}
	return nil
}

// resolveSession returns sessionID unchanged if set, or allocates a fresh
// uuid for an empty one. The literal AnonymousSessionID is passed through
// untouched and never persisted.
func resolveSession(sessionID string) string {
	if sessionID == "" {
		return uuid.NewString()
	}
	return sessionID
}

func (p *Pipeline) loadHistory(sessionID string) []bookrag.SessionMessage {
	if sessionID == session.AnonymousSessionID {
		return nil
	}
	history, err := p.sessions.GetHistory(sessionID, p.cfg.HistoryWindow)
	if err != nil {
		obslog.GetLogger().Warn("session history load failed", "session_id", sessionID, "error", err)
		return nil
	}
	return history
}

func (p *Pipeline) persist(sessionID string, msg bookrag.SessionMessage) {
	if sessionID == session.AnonymousSessionID {
		return
	}
	if err := p.sessions.SaveMessage(sessionID, msg); err != nil {
		// KindSessionWriteFailure: logged only, never surfaced to the caller.
		obslog.GetLogger().Warn("session write failed", "session_id", sessionID, "error", err)
	}
}

// RoutePreview exposes routing as a pure, side-effect-free operation.
func (p *Pipeline) RoutePreview(query string) bookrag.RouteResult {
	return p.router.RoutePreview(query)
}

// Chat runs the non-streaming flow: drain ChatStream and assemble a
// single AgentResponse.
func (p *Pipeline) Chat(ctx context.Context, query string, sessionID string, selectedText *string) (bookrag.AgentResponse, error) {
	var resp bookrag.AgentResponse
	var text strings.Builder
	var citations []bookrag.Citation
	var failMsg string

	for ev := range p.ChatStream(ctx, query, sessionID, selectedText) {
		switch ev.Type {
		case bookrag.EventText:
			text.WriteString(ev.Text)
			resp.AgentName = ev.AgentName
		case bookrag.EventSource:
			citations = append(citations, ev.Citation)
		case bookrag.EventEnd:
			resp.AgentName = ev.AgentName
		case bookrag.EventError:
			failMsg = ev.Message
		}
	}

	if failMsg != "" {
		return bookrag.AgentResponse{}, bookrag.NewError(bookrag.KindAgentFailure, "pipeline", "chat", failMsg, nil)
	}

	resp.Response = text.String()
	resp.Citations = citations
	return resp, nil
}

// ChatStream is the pipeline's primary operation: validate, route,
// execute, persist, and emit events in the §6 stream order.
func (p *Pipeline) ChatStream(ctx context.Context, query string, sessionID string, selectedText *string) iter.Seq[bookrag.Event] {
	return func(yield func(bookrag.Event) bool) {
		if err := validate(query, selectedText); err != nil {
			yield(bookrag.Event{Type: bookrag.EventError, Message: err.Error()})
			return
		}

		sid := resolveSession(sessionID)
		history := p.loadHistory(sid)

		p.persist(sid, bookrag.SessionMessage{Role: bookrag.RoleUser, Content: query, Timestamp: time.Now()})

		_, routeSpan := obstrace.Tracer("bookrag.pipeline").Start(ctx, obstrace.SpanRoute)
		route := p.router.Route(query)
		routeSpan.SetAttributes(
			attribute.String(obstrace.AttrRoutePrimary, route.PrimaryAgent),
			attribute.Bool(obstrace.AttrRouteMulti, route.IsMultiDomain),
		)
		routeSpan.End()

		agentCtx := bookrag.AgentContext{
			SessionID: sid,
			Query:     query,
			History:   history,
		}
		if selectedText != nil {
			agentCtx.SelectedText = *selectedText
		}

		var finalText strings.Builder
		finalAgent := route.PrimaryAgent
		ok := false

		if route.IsMultiDomain {
			finalAgent, ok = p.runMultiAgent(ctx, route, agentCtx, &finalText, yield)
		} else {
			finalAgent, ok = p.runSingleAgent(ctx, route.PrimaryAgent, agentCtx, &finalText, yield)
		}

		if !ok {
			return // a terminal error event was already yielded
		}

		p.persist(sid, bookrag.SessionMessage{
			Role: bookrag.RoleAssistant, Content: finalText.String(),
			Timestamp: time.Now(), AgentName: finalAgent,
		})

		yield(bookrag.Event{Type: bookrag.EventEnd, AgentName: finalAgent})
	}
}

// runSingleAgent forwards one agent's own event stream unmodified, save
// for accumulating its text into out. On an unexpected panic (distinct
// from the agent's own error events) it falls back to the registry's
// default agent once. Returns the agent name that produced the answer
// and whether the caller should continue to the final end event.
func (p *Pipeline) runSingleAgent(ctx context.Context, name string, agentCtx bookrag.AgentContext, out *strings.Builder, yield func(bookrag.Event) bool) (string, bool) {
	a, found := p.registry.Get(name)
	if !found {
		yield(bookrag.Event{Type: bookrag.EventError, Message: "no agent available to answer this question."})
		return "", false
	}

	events, failed := p.runAgentRecovered(ctx, a, agentCtx)
	if failed {
		return p.runFallback(ctx, agentCtx, out, yield)
	}

	for _, ev := range events {
		if ev.Type == bookrag.EventText {
			out.WriteString(ev.Text)
		}
		if ev.Type == bookrag.EventError {
			yield(ev)
			return "", false
		}
		if ev.Type == bookrag.EventEnd {
			continue // the pipeline emits its own single end after persistence
		}
		if !yield(ev) {
			return "", false
		}
	}
	return a.Name(), true
}

// runFallback re-runs the query through the registry's default agent,
// used only after an unexpected agent-side panic.
func (p *Pipeline) runFallback(ctx context.Context, agentCtx bookrag.AgentContext, out *strings.Builder, yield func(bookrag.Event) bool) (string, bool) {
	fallback, ok := p.registry.Fallback()
	if !ok {
		yield(bookrag.Event{Type: bookrag.EventError, Message: "the assistant hit an unexpected error and no fallback is configured."})
		return "", false
	}

	events, failed := p.runAgentRecovered(ctx, fallback, agentCtx)
	if failed {
		yield(bookrag.Event{Type: bookrag.EventError, Message: "the assistant hit an unexpected error. Please try again."})
		return "", false
	}

	for _, ev := range events {
		if ev.Type == bookrag.EventText {
			out.WriteString(ev.Text)
		}
		if ev.Type == bookrag.EventError {
			yield(ev)
			return "", false
		}
		if ev.Type == bookrag.EventEnd {
			continue
		}
		if !yield(ev) {
			return "", false
		}
	}
	return fallback.Name(), true
}

// joinDomains renders a domain list as a short English lead sentence
// fragment: "a", "a and b", or "a, b, and c".
func joinDomains(domains []string) string {
	switch len(domains) {
	case 0:
		return ""
	case 1:
		return domains[0]
	case 2:
		return domains[0] + " and " + domains[1]
	default:
		return strings.Join(domains[:len(domains)-1], ", ") + ", and " + domains[len(domains)-1]
	}
}

// runMultiAgent runs the primary then each secondary in order, prefixing
// each agent's first text event with a domain heading, and defers
// citations until every agent has completed so they can be merged and
// renumbered across the whole synthesis.
func (p *Pipeline) runMultiAgent(ctx context.Context, route bookrag.RouteResult, agentCtx bookrag.AgentContext, out *strings.Builder, yield func(bookrag.Event) bool) (string, bool) {
	names := append([]string{route.PrimaryAgent}, route.SecondaryAgents...)

	var domains []string
	for _, name := range names {
		if a, found := p.registry.Get(name); found {
			domains = append(domains, string(a.Domain()))
		}
	}
	if len(domains) > 0 {
		lead := fmt.Sprintf("This covers %s.\n", joinDomains(domains))
		out.WriteString(lead)
		if !yield(bookrag.Event{Type: bookrag.EventText, Text: lead, AgentName: route.PrimaryAgent}) {
			return "", false
		}
	}

	var citationSections [][]bookrag.Citation

	for i, name := range names {
		a, found := p.registry.Get(name)
		if !found {
			continue
		}

		sub := agentCtx
		if i > 0 {
			sub.Query = router.SubQuery(agentCtx.Query, a)
		}

		events, failed := p.runAgentRecovered(ctx, a, sub)
		if failed {
			if i == 0 {
				// primary failure: fall back to the default agent once.
				return p.runFallback(ctx, agentCtx, out, yield)
			}
			obslog.GetLogger().Warn("secondary agent failed, skipping", "agent", name)
			continue
		}

		heading := fmt.Sprintf("\n\n## %s\n", strings.ToUpper(string(a.Domain())))
		out.WriteString(heading)
		if !yield(bookrag.Event{Type: bookrag.EventText, Text: heading, AgentName: a.Name()}) {
			return "", false
		}

		var local []bookrag.Citation
		for _, ev := range events {
			switch ev.Type {
			case bookrag.EventText:
				out.WriteString(ev.Text)
				if !yield(ev) {
					return "", false
				}
			case bookrag.EventSource:
				local = append(local, ev.Citation)
			case bookrag.EventError:
				if i == 0 {
					yield(ev)
					return "", false
				}
				obslog.GetLogger().Warn("secondary agent stream error, skipping", "agent", name, "message", ev.Message)
			}
		}
		citationSections = append(citationSections, local)
	}

	merged := citation.Merge(citationSections)
	for _, c := range merged {
		if !yield(bookrag.Event{Type: bookrag.EventSource, Citation: c, AgentName: route.PrimaryAgent}) {
			return "", false
		}
	}

	return route.PrimaryAgent, true
}

// runAgentRecovered runs a to completion within the pipeline's hard
// timeout, draining its event stream into a slice, and recovers a panic
// as an "unexpected agent exception" distinct from the agent's own
// error events.
func (p *Pipeline) runAgentRecovered(ctx context.Context, a agent.Agent, agentCtx bookrag.AgentContext) (events []bookrag.Event, panicked bool) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.HardTimeout)
	defer cancel()

	softTimer := time.AfterFunc(p.cfg.SoftTimeout, func() {
		obslog.GetLogger().Warn("agent exceeded soft timeout", "agent", a.Name())
	})
	defer softTimer.Stop()

	defer func() {
		if r := recover(); r != nil {
			obslog.GetLogger().Error("agent panicked", "agent", a.Name(), "recover", r)
			panicked = true
		}
	}()

	for ev := range a.RunStream(ctx, agentCtx) {
		events = append(events, ev)
	}
	return events, false
}
