package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/tatianab/potion-shop/internal/models"
)

// Request is one structured stage call.
type Request struct {
	Stage  string
	System string
	User   string
	// Schema, when set, is checked against the decoded reply.
	Schema *jsonschema.Schema
	// Day is recorded in the audit entry.
	Day int
}

// Result is a parsed reply plus the audit entry describing the call. The
// gateway does not persist the entry; the caller appends it to its state.
type Result struct {
	Raw   json.RawMessage
	Entry models.AuditEntry
}

// Decode unmarshals the reply into v.
func (r Result) Decode(v any) error {
	return json.Unmarshal(r.Raw, v)
}

// Gateway enforces the JSON reply contract on top of an Oracle.
type Gateway struct {
	oracle  Oracle
	timeout time.Duration
}

// NewGateway wraps o. A positive timeout bounds each call; zero leaves it to
// the transport.
func NewGateway(o Oracle, timeout time.Duration) *Gateway {
	return &Gateway{oracle: o, timeout: timeout}
}

// Call sends req in JSON mode and validates the reply. Any error returned is
// a *Failure.
func (g *Gateway) Call(ctx context.Context, req Request) (Result, error) {
	text, err := g.invoke(ctx, req.System, req.User, true)
	if err != nil {
		return Result{}, &Failure{Stage: req.Stage, Reason: "oracle call failed", Err: err}
	}

	raw := cleanJSON(text)
	if raw == "" {
		return Result{}, &Failure{Stage: req.Stage, Reason: "empty reply"}
	}
	doc, err := decodeObject(raw)
	if err != nil {
		return Result{}, &Failure{Stage: req.Stage, Reason: "reply is not a JSON object", Err: err}
	}
	if req.Schema != nil {
		if err := req.Schema.Validate(doc); err != nil {
			return Result{}, &Failure{Stage: req.Stage, Reason: "reply violates contract", Err: err}
		}
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, []byte(raw)); err != nil {
		return Result{}, &Failure{Stage: req.Stage, Reason: "reply is not a JSON object", Err: err}
	}
	out := json.RawMessage(compact.Bytes())
	return Result{
		Raw: out,
		Entry: models.AuditEntry{
			Task:       req.Stage,
			UserPrompt: req.User,
			LLMOutput:  out,
			Day:        req.Day,
		},
	}, nil
}

// Text sends a free-text request. The reply is trimmed but otherwise
// returned as is.
func (g *Gateway) Text(ctx context.Context, stage, system, user string) (string, error) {
	text, err := g.invoke(ctx, system, user, false)
	if err != nil {
		return "", &Failure{Stage: stage, Reason: "oracle call failed", Err: err}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &Failure{Stage: stage, Reason: "empty reply"}
	}
	return text, nil
}

func (g *Gateway) invoke(ctx context.Context, system, user string, structured bool) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	return g.oracle.Invoke(ctx, system, user, structured)
}

// cleanJSON strips the Markdown code fence models like to wrap JSON in.
func cleanJSON(text string) string {
	clean := strings.TrimSpace(text)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	return strings.TrimSpace(clean)
}

// decodeObject parses exactly one JSON object, in the form jsonschema
// validates against.
func decodeObject(raw string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after JSON value")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("top-level value is not an object")
	}
	return obj, nil
}
