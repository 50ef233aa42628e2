// Package gateway wires ContentAnalyzer, SmartRouter, LoadBalancer,
// TransformerPipeline, ProviderAdapter, TeeStream, and MetricsCollector
// into the per-request flow.
package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/routex/routex/common/errs"
	"github.com/routex/routex/internal/analyzer"
	"github.com/routex/routex/internal/balancer"
	"github.com/routex/routex/internal/chatmsg"
	"github.com/routex/routex/internal/channelset"
	"github.com/routex/routex/internal/jsonvalue"
	"github.com/routex/routex/internal/metrics"
	"github.com/routex/routex/internal/provider"
	"github.com/routex/routex/internal/ratelimit"
	"github.com/routex/routex/internal/router"
	"github.com/routex/routex/internal/rules"
	"github.com/routex/routex/internal/tee"
	"github.com/routex/routex/internal/transform"
)

// IncomingRequest is the ingress-parsed view of a client call.
type IncomingRequest struct {
	Model     string
	Body      *jsonvalue.Object
	Messages  []chatmsg.Message
	Tools     []chatmsg.Tool
	SessionID string
	Metadata  map[string]string
	RequestID string
}

// Outcome is what the engine hands back to the HTTP layer.
type Outcome struct {
	Body         *jsonvalue.Object
	Headers      http.Header
	ChannelName  string
	RuleName     string
	Usage        provider.TokenUsage
	Analysis     analyzer.Analysis
	RequestMeta  transform.Metadata
	ResponseMeta transform.Metadata
}

// Engine orchestrates one request end to end.
type Engine struct {
	Channels  *channelset.Registry
	RuleSet   atomic.Pointer[[]rules.Rule]
	Router    *router.Router
	Balancer  *balancer.LoadBalancer
	Pipeline  *transform.Pipeline
	Specs     []transform.Spec
	Providers *provider.Registry
	Tee       *tee.Stream
	Metrics   *metrics.Registry
	Memo      *analyzer.Memo
	Limiters  *ratelimit.Registry
	Breaker   channelset.BreakerConfig
	Client    *http.Client
	Now       func() time.Time
}

// New constructs an Engine with sane defaults for every dependency that has
// one; the caller still owns wiring Channels/RuleSet/Tee to real state.
func New(channels *channelset.Registry, customRouters *rules.CustomRouterRegistry) *Engine {
	e := &Engine{
		Channels:  channels,
		Router:    router.New(customRouters),
		Balancer:  balancer.New(balancer.StrategyPriority, 10_000, 5*time.Hour),
		Pipeline:  transform.NewPipeline(transform.NewDefaultRegistry()),
		Providers: provider.NewRegistry(),
		Metrics:   metrics.NewRegistry(),
		Memo:      analyzer.NewMemo(time.Minute),
		Limiters:  ratelimit.NewRegistry(0, 1), // disabled by default; caller can tighten
		Breaker: channelset.BreakerConfig{
			FailureThreshold: 5,
			Window:           60 * time.Second,
			InitialBackoff:   30 * time.Second,
			MaxBackoff:       8 * time.Minute,
		},
		Client: &http.Client{Timeout: 60 * time.Second},
		Now:    time.Now,
	}
	empty := []rules.Rule{}
	e.RuleSet.Store(&empty)
	return e
}

// SetRules atomically installs a new rule set (copy-on-write).
func (e *Engine) SetRules(rs []rules.Rule) {
	cp := append([]rules.Rule(nil), rs...)
	e.RuleSet.Store(&cp)
}

func (e *Engine) requestsTotal() *metrics.Counter {
	return e.Metrics.NewCounter("routex_requests_total", "requests handled, by channel and outcome")
}

func (e *Engine) latencyHistogram() *metrics.Histogram {
	return e.Metrics.NewHistogram("routex_upstream_latency_seconds", "upstream round-trip latency", nil)
}

// Handle runs the full request/response flow: route, dispatch upstream,
// transform, and record the outcome.
func (e *Engine) Handle(ctx context.Context, req IncomingRequest) (Outcome, error) {
	now := e.Now()

	analysis := e.Memo.Analyze(req.RequestID, req.Messages, req.Tools)

	evalCtx := rules.EvalContext{
		Model:        req.Model,
		Messages:     req.Messages,
		Tools:        req.Tools,
		SessionID:    req.SessionID,
		Metadata:     req.Metadata,
		Analysis:     analysis,
		EstimatedTok: analysis.EstimatedTokens,
	}

	ruleSet := *e.RuleSet.Load()
	result := e.Router.Route(now, evalCtx, ruleSet, e.Channels)

	var chosen *channelset.Channel
	var ruleName string
	targetModel := req.Model

	if !result.None() {
		chosen = result.Channel
		if result.Model != "" {
			targetModel = result.Model
		}
		if result.Rule != nil {
			ruleName = result.Rule.Name
		}
	} else {
		chosen = e.Balancer.Pick(balancer.BalanceContext{Model: req.Model, SessionID: req.SessionID}, e.Channels)
	}

	if chosen == nil {
		return Outcome{}, errs.ServiceUnavailable("no eligible channel for model " + req.Model)
	}

	e.Balancer.Dispatch(chosen)
	snap := chosen.Snapshot()

	adaptor, err := e.Providers.For(snap.Provider)
	if err != nil {
		e.Balancer.Complete(chosen, false, e.Breaker)
		return Outcome{}, errs.Upstream(err, "no adaptor for channel "+snap.Name)
	}
	if err := adaptor.Validate(snap); err != nil {
		e.Balancer.Complete(chosen, false, e.Breaker)
		return Outcome{}, err
	}

	pctx := transform.PipelineContext{Model: targetModel, ChannelName: snap.Name, ChannelType: string(snap.Provider), Metadata: req.Metadata}

	reqBody, headers, reqMeta, err := e.Pipeline.Request(ctx, req.Body, pctx, e.Specs)
	if err != nil {
		e.Balancer.Complete(chosen, false, e.Breaker)
		return Outcome{}, err
	}

	if e.Limiters != nil {
		if err := e.Limiters.Wait(ctx, snap.Name); err != nil {
			e.Balancer.Complete(chosen, false, e.Breaker)
			return Outcome{}, errs.ServiceUnavailable("rate limit wait cancelled for channel " + snap.Name)
		}
	}

	reqBody, err = adaptor.TransformRequest(ctx, reqBody)
	if err != nil {
		e.Balancer.Complete(chosen, false, e.Breaker)
		return Outcome{}, errs.Transformer(err, "provider request fixup failed")
	}

	start := e.Now()
	respBody, status, err := e.dispatchUpstream(ctx, adaptor, snap, targetModel, reqBody, headers)
	latency := e.Now().Sub(start)
	e.latencyHistogram().Observe(metrics.Labels{"channel": snap.Name}, latency.Seconds())

	success := err == nil && status < 500
	e.requestsTotal().Inc(metrics.Labels{"channel": snap.Name, "outcome": outcomeLabel(success)}, 1)
	e.Balancer.Complete(chosen, success, e.Breaker)

	if err != nil {
		e.tee(snap, req, nil, false, err, latency)
		return Outcome{}, err
	}

	respBody, respErr := adaptor.TransformResponse(ctx, respBody)
	if respErr != nil {
		e.tee(snap, req, nil, false, respErr, latency)
		return Outcome{}, errs.Transformer(respErr, "provider response fixup failed")
	}

	respBody, respMeta, err := e.Pipeline.Response(ctx, respBody, pctx, e.Specs)
	if err != nil {
		e.tee(snap, req, nil, false, err, latency)
		return Outcome{}, err
	}

	usage := adaptor.ExtractTokenUsage(respBody)

	outHeaders := http.Header{}
	for k, vs := range headers {
		for _, v := range vs {
			outHeaders.Add(k, v)
		}
	}
	if ruleName != "" {
		outHeaders.Set("X-Routing-Rule", ruleName)
	}
	outHeaders.Set("X-Channel-Name", snap.Name)

	e.tee(snap, req, respBody, success, nil, latency)

	return Outcome{
		Body: respBody, Headers: outHeaders, ChannelName: snap.Name, RuleName: ruleName,
		Usage: usage, Analysis: analysis, RequestMeta: reqMeta, ResponseMeta: respMeta,
	}, nil
}

func outcomeLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

func (e *Engine) tee(snap channelset.Snapshot, req IncomingRequest, respBody *jsonvalue.Object, success bool, teeErr error, latency time.Duration) {
	if e.Tee == nil {
		return
	}
	reqJSON, _ := jsonvalue.Marshal(req.Body)
	var respJSON []byte
	if respBody != nil {
		respJSON, _ = jsonvalue.Marshal(respBody)
	}
	errMsg := ""
	if teeErr != nil {
		errMsg = teeErr.Error()
	}
	e.Tee.Tee(tee.Envelope{
		ChannelName: snap.Name,
		Request:     reqJSON,
		Response:    respJSON,
		Success:     success,
		Error:       errMsg,
		Timestamp:   e.Now(),
	})
}

// dispatchUpstream builds and executes the HTTP call to the chosen channel's
// upstream. A 429 or 503 status comes back as a service-unavailable error; the
// Retry-After header is not read and the channel's rate-limit deadline is not
// set.
func (e *Engine) dispatchUpstream(ctx context.Context, adaptor provider.Adaptor, snap channelset.Snapshot, model string, body *jsonvalue.Object, headers http.Header) (*jsonvalue.Object, int, error) {
	url, err := adaptor.BuildURL(snap, pathForModel(adaptor.Kind(), model))
	if err != nil {
		return nil, 0, err
	}

	payload, err := jsonvalue.Marshal(body)
	if err != nil {
		return nil, 0, errs.Transformer(err, "marshal upstream request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, errs.Upstream(err, "build upstream request")
	}
	for k, vs := range adaptor.AuthHeaders(snap) {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	for k, vs := range headers {
		for _, v := range vs {
			httpReq.Header.Set(k, v)
		}
	}

	resp, err := e.Client.Do(httpReq)
	if err != nil {
		return nil, 0, errs.Upstream(err, "dispatch upstream request")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, errs.Upstream(err, "read upstream response")
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
		// Handle records this as an ordinary failure; Channel.RateLimit is not
		// called on this path.
		return nil, resp.StatusCode, errs.New(errs.KindServiceUnavailable, fmt.Sprintf("upstream returned %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return nil, resp.StatusCode, errs.Upstream(fmt.Errorf("status %d: %s", resp.StatusCode, string(raw)), "upstream error response")
	}

	v, err := jsonvalue.Decode(raw)
	if err != nil {
		return nil, resp.StatusCode, errs.Upstream(err, "decode upstream response")
	}
	obj, ok := v.(*jsonvalue.Object)
	if !ok {
		return nil, resp.StatusCode, errs.Upstream(fmt.Errorf("upstream response was not a JSON object"), "decode upstream response")
	}
	return obj, resp.StatusCode, nil
}

func pathForModel(kind channelset.ProviderKind, model string) string {
	switch kind {
	case channelset.ProviderAnthropic:
		return "/v1/messages"
	case channelset.ProviderGoogle:
		return "/v1/models/" + model + ":generateContent"
	default:
		return "/v1/chat/completions"
	}
}
