package telemetry

import (
	"context"
	"maps"
	"slices"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Profiling label keys
const (
	ProfilingLabelController = "controller"
	ProfilingLabelRoute      = "route"
	ProfilingLabelMethod     = "method"
	ProfilingLabelOperation  = "operation"
	ProfilingLabelRegion     = "region"
)

// MaxLabelValueLength caps profiling label values
const MaxLabelValueLength = 128

// unboundedLabelKeys would explode pyroscope series and are never attached
var unboundedLabelKeys = map[string]struct{}{
	"request_id": {},
	"run_id":     {},
	"product_id": {},
	"sku":        {},
	"trace_id":   {},
	"span_id":    {},
}

// WithProfilingLabels runs fn with pyroscope labels attached to its goroutine.
// fn always runs, with the original ctx when no label survives sanitizing.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := sanitizeLabels(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// sanitizeLabels flattens labels into key/value pairs sorted by key. Empty
// entries and unbounded keys are dropped; keys are reduced to [a-z0-9_] and
// values truncated to MaxLabelValueLength.
func sanitizeLabels(labels map[string]string) []string {
	var pairs []string
	for _, key := range slices.Sorted(maps.Keys(labels)) {
		value := labels[key]
		if _, unbounded := unboundedLabelKeys[key]; unbounded || value == "" {
			continue
		}
		clean := labelKey(key)
		if clean == "" {
			continue
		}
		if len(value) > MaxLabelValueLength {
			value = value[:MaxLabelValueLength]
		}
		pairs = append(pairs, clean, value)
	}
	return pairs
}

func labelKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r == ' ' || r == '-':
			return '_'
		}
		return -1
	}, key)
}

// HTTPRequestLabels labels one HTTP route; empty parts are omitted
func HTTPRequestLabels(controller, route, method string) map[string]string {
	labels := make(map[string]string, 3)
	for k, v := range map[string]string{
		ProfilingLabelController: controller,
		ProfilingLabelRoute:      route,
		ProfilingLabelMethod:     method,
	} {
		if v != "" {
			labels[k] = v
		}
	}
	return labels
}

// OperationLabels labels a named operation. operation wins over an
// "operation" key in extra.
func OperationLabels(operation string, extra map[string]string) map[string]string {
	labels := maps.Clone(extra)
	if labels == nil {
		labels = make(map[string]string, 1)
	}
	labels[ProfilingLabelOperation] = operation
	return labels
}
