// Package correlate carries correlation identity through the ingestion,
// dispatch, and publish chain as explicit context values. A missing value is
// generated where the chain starts, never pulled from ambient state.
package correlate

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// Property names used on transport messages.
const (
	PropCorrelationID = "correlation_id"
	PropTraceParent   = "traceparent"
)

// Correlation identifies one causal chain across services.
type Correlation struct {
	ID          string
	TraceParent string
}

type ctxKey struct{}

// WithContext attaches the correlation to the context.
func WithContext(ctx context.Context, c Correlation) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// FromContext reads the correlation, reporting whether one was attached.
func FromContext(ctx context.Context) (Correlation, bool) {
	c, ok := ctx.Value(ctxKey{}).(Correlation)
	return c, ok
}

// New builds a fresh correlation, used where a causal chain starts.
func New() Correlation {
	return Correlation{ID: uuid.NewString(), TraceParent: NewTraceParent()}
}

// Ensure returns a context carrying a complete correlation, generating any
// missing part.
func Ensure(ctx context.Context) (context.Context, Correlation) {
	c, _ := FromContext(ctx)
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.TraceParent == "" {
		c.TraceParent = NewTraceParent()
	}
	return WithContext(ctx, c), c
}

// FromProperties builds a correlation from inbound message properties.
// Missing keys leave the fields empty; Ensure fills them later.
func FromProperties(props map[string]string) Correlation {
	return Correlation{
		ID:          props[PropCorrelationID],
		TraceParent: props[PropTraceParent],
	}
}

// Properties renders the correlation as outbound message properties.
func (c Correlation) Properties() map[string]string {
	return map[string]string{
		PropCorrelationID: c.ID,
		PropTraceParent:   c.TraceParent,
	}
}

// NewTraceParent builds a W3C traceparent value with random trace and span
// ids.
func NewTraceParent() string {
	trace := uuid.New()
	span := uuid.New()
	return fmt.Sprintf("00-%s-%s-01", hex.EncodeToString(trace[:]), hex.EncodeToString(span[:8]))
}
