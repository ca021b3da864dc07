// Package metrics keeps the server's counters and renders them in the
// Prometheus text exposition format.
package metrics

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
)

// Metric names.
const (
	NameVisits     = "sirius_visits_total"
	NameNewsletter = "sirius_newsletter_requests_total"
	NameLogins     = "sirius_admin_logins_total"
	NameVisitors   = "sirius_visitors"
)

type family struct {
	name  string
	help  string
	label string
	typ   dto.MetricType
	vals  map[string]float64
}

// Registry is a fixed set of labelled counters and gauges. The zero value is
// not usable; call New.
type Registry struct {
	mu       sync.Mutex
	families []*family
	byName   map[string]*family
}

// New returns a Registry with every sirius metric registered.
func New() *Registry {
	r := &Registry{byName: make(map[string]*family)}
	r.add(NameVisits, "Visit reconciliations by outcome.", "outcome", dto.MetricType_COUNTER)
	r.add(NameNewsletter, "Newsletter subscription requests by outcome.", "outcome", dto.MetricType_COUNTER)
	r.add(NameLogins, "Admin login attempts by result.", "result", dto.MetricType_COUNTER)
	r.add(NameVisitors, "Last observed visitor counts.", "window", dto.MetricType_GAUGE)
	return r
}

func (r *Registry) add(name, help, label string, typ dto.MetricType) {
	f := &family{name: name, help: help, label: label, typ: typ, vals: make(map[string]float64)}
	r.families = append(r.families, f)
	r.byName[name] = f
}

// IncVisit counts one reconciliation. outcome is "remote", "local" or "repeat".
func (r *Registry) IncVisit(outcome string) { r.inc(NameVisits, outcome) }

// IncNewsletter counts one subscription request.
func (r *Registry) IncNewsletter(outcome string) { r.inc(NameNewsletter, outcome) }

// IncLogin counts one admin login attempt; result is "success" or "failure".
func (r *Registry) IncLogin(result string) { r.inc(NameLogins, result) }

// SetVisitors records the latest visitor counts.
func (r *Registry) SetVisitors(total, today int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f := r.byName[NameVisitors]
	f.vals["total"] = float64(total)
	f.vals["today"] = float64(today)
}

func (r *Registry) inc(name, label string) {
	r.mu.Lock()
	r.byName[name].vals[label]++
	r.mu.Unlock()
}

// Snapshot is a plain copy of every counter, keyed by metric then label.
type Snapshot map[string]map[string]int64

// Snapshot returns the current values.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(Snapshot, len(r.families))
	for _, f := range r.families {
		m := make(map[string]int64, len(f.vals))
		for k, v := range f.vals {
			m[k] = int64(v)
		}
		out[f.name] = m
	}
	return out
}

// Families returns the registry as Prometheus metric families, labels sorted.
func (r *Registry) Families() []*dto.MetricFamily {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*dto.MetricFamily, 0, len(r.families))
	for _, f := range r.families {
		labels := make([]string, 0, len(f.vals))
		for k := range f.vals {
			labels = append(labels, k)
		}
		sort.Strings(labels)

		mf := &dto.MetricFamily{
			Name: proto.String(f.name),
			Help: proto.String(f.help),
			Type: f.typ.Enum(),
		}
		for _, l := range labels {
			m := &dto.Metric{
				Label: []*dto.LabelPair{{Name: proto.String(f.label), Value: proto.String(l)}},
			}
			if f.typ == dto.MetricType_GAUGE {
				m.Gauge = &dto.Gauge{Value: proto.Float64(f.vals[l])}
			} else {
				m.Counter = &dto.Counter{Value: proto.Float64(f.vals[l])}
			}
			mf.Metric = append(mf.Metric, m)
		}
		out = append(out, mf)
	}
	return out
}

// Render writes the text exposition of every family with at least one sample.
func (r *Registry) Render(w io.Writer) error {
	for _, mf := range r.Families() {
		if len(mf.GetMetric()) == 0 {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// Handler serves Render over HTTP.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var buf bytes.Buffer
		if err := r.Render(&buf); err != nil {
			slog.Error("metrics: render failed", "err", err)
			http.Error(w, "metrics unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
		_, _ = w.Write(buf.Bytes())
	})
}
