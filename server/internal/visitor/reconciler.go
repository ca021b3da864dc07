package visitor

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/siriusexpedition/sirius/server/internal/store"
)

// DefaultRecordKey is the document key of the shared counter.
const DefaultRecordKey = "visitors/stats"

// dateLayout is the calendar-day granularity used for lastVisitDate and the
// session marker.
const dateLayout = "2006-01-02"

// Sources reported in Result.
const (
	SourceRemote = "remote"
	SourceLocal  = "local"
)

// Result is what one Reconcile call observed.
type Result struct {
	Stats     Stats
	Source    string // SourceRemote or SourceLocal
	Counted   bool   // this call incremented a counter
	VisitorID string
}

// Reconciler counts page loads against the shared record.
// It holds no per-device state, so one Reconciler serves every request.
type Reconciler struct {
	remote    DocumentStore
	recordKey string
	now       func() time.Time
	loc       *time.Location
	newID     func() string
	log       *slog.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithRecordKey overrides DefaultRecordKey.
func WithRecordKey(key string) Option {
	return func(r *Reconciler) {
		if key != "" {
			r.recordKey = key
		}
	}
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// WithLocation sets the time zone that defines a calendar day.
func WithLocation(loc *time.Location) Option {
	return func(r *Reconciler) {
		if loc != nil {
			r.loc = loc
		}
	}
}

// WithIDGenerator replaces the visitorId generator.
func WithIDGenerator(fn func() string) Option {
	return func(r *Reconciler) { r.newID = fn }
}

// WithLogger sets the logger used for fallback warnings.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.log = l
		}
	}
}

// New creates a Reconciler backed by remote.
func New(remote DocumentStore, opts ...Option) *Reconciler {
	r := &Reconciler{
		remote:    remote,
		recordKey: DefaultRecordKey,
		now:       time.Now,
		loc:       time.Local,
		newID:     uuid.NewString,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RecordKey returns the document key of the shared counter.
func (r *Reconciler) RecordKey() string { return r.recordKey }

// Reconcile counts this page load at most once per session and returns the
// stats to display. It never fails: remote errors degrade to the local mirror.
func (r *Reconciler) Reconcile(ctx context.Context, device, session KeyValue) Result {
	now := r.now()
	today := now.In(r.loc).Format(dateLayout)

	visitorID := r.ensureVisitorID(device)
	marker := SessionMarkerKey(today)
	_, counted := session.Get(marker)
	isNewSession := !counted
	lastVisit, _ := device.Get(KeyLastVisitDate)

	v := visit{
		device:       device,
		session:      session,
		today:        today,
		marker:       marker,
		lastVisit:    lastVisit,
		isNewSession: isNewSession,
		now:          now,
	}

	res, err := r.reconcileRemote(ctx, v)
	if err == nil {
		res.VisitorID = visitorID
		return res
	}

	r.log.Warn("visitor: remote store unavailable, counting locally",
		"record_key", r.recordKey, "visitor_id", visitorID, "err", err)
	res = r.reconcileLocal(v)
	res.VisitorID = visitorID
	return res
}

// Stats reads the shared record without counting.
func (r *Reconciler) Stats(ctx context.Context) (Stats, error) {
	doc, err := r.remote.Get(ctx, r.recordKey)
	if errors.Is(err, store.ErrNotFound) {
		return Stats{}, nil
	}
	if err != nil {
		return Stats{}, err
	}
	return StatsFromDocument(doc), nil
}

// visit carries the inputs of one Reconcile call.
type visit struct {
	device, session KeyValue
	today           string
	marker          string
	lastVisit       string
	isNewSession    bool
	now             time.Time
}

func (v visit) countedToday() bool { return v.lastVisit == v.today }

// reconcileRemote performs the remote path. A returned error means nothing
// was written remotely and the caller must fall back to local counting.
func (r *Reconciler) reconcileRemote(ctx context.Context, v visit) (Result, error) {
	res := Result{Source: SourceRemote}

	if v.isNewSession {
		exists, err := r.recordExists(ctx)
		if err != nil {
			return Result{}, err
		}

		fields := store.Document{FieldLastUpdated: v.now.UTC()}
		opts := store.SetOptions{Merge: true}
		switch {
		case !exists:
			fields[FieldTotal] = int64(1)
			fields[FieldToday] = int64(1)
			opts.Merge = false
		case !v.countedToday():
			fields[FieldTotal] = store.Increment(1)
			fields[FieldToday] = store.Increment(1)
		default:
			fields[FieldTotal] = store.Increment(1)
		}

		if err := r.remote.Set(ctx, r.recordKey, fields, opts); err != nil {
			return Result{}, err
		}
		res.Counted = true

		if !v.countedToday() {
			r.put(v.device, KeyLastVisitDate, v.today)
		}
		r.put(v.session, v.marker, "true")
	}

	doc, err := r.remote.Get(ctx, r.recordKey)
	switch {
	case errors.Is(err, store.ErrNotFound):
		res.Stats = Stats{}
	case err != nil:
		if !res.Counted {
			return Result{}, err
		}
		// The increment is committed; only the display falls back.
		r.log.Warn("visitor: re-fetch failed, showing local mirror",
			"record_key", r.recordKey, "err", err)
		res.Stats = r.mirror(v.device)
		res.Source = SourceLocal
		return res, nil
	default:
		res.Stats = StatsFromDocument(doc)
	}

	r.put(v.device, KeyLocalTotal, strconv.FormatInt(res.Stats.Total, 10))
	r.put(v.device, KeyLocalToday, strconv.FormatInt(res.Stats.Today, 10))
	return res, nil
}

func (r *Reconciler) recordExists(ctx context.Context) (bool, error) {
	_, err := r.remote.Get(ctx, r.recordKey)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, store.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// reconcileLocal applies the counting rules to the device mirror.
func (r *Reconciler) reconcileLocal(v visit) Result {
	stats := r.mirror(v.device)
	res := Result{Source: SourceLocal}

	if v.isNewSession {
		stats.Total++
		if !v.countedToday() {
			stats.Today++
		}
		stats.LastUpdated = v.now
		r.put(v.device, KeyLocalTotal, strconv.FormatInt(stats.Total, 10))
		r.put(v.device, KeyLocalToday, strconv.FormatInt(stats.Today, 10))
		r.put(v.device, KeyLastVisitDate, v.today)
		r.put(v.session, v.marker, "true")
		res.Counted = true
	}

	res.Stats = stats
	return res
}

// mirror reads the locally mirrored counters, defaulting to zero.
func (r *Reconciler) mirror(device KeyValue) Stats {
	return Stats{
		Total: r.readCount(device, KeyLocalTotal),
		Today: r.readCount(device, KeyLocalToday),
	}
}

func (r *Reconciler) readCount(device KeyValue, key string) int64 {
	raw, ok := device.Get(key)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		r.log.Debug("visitor: ignoring malformed mirror value", "key", key, "value", raw)
		return 0
	}
	return n
}

func (r *Reconciler) ensureVisitorID(device KeyValue) string {
	if id, ok := device.Get(KeyVisitorID); ok && id != "" {
		return id
	}
	id := r.newID()
	r.put(device, KeyVisitorID, id)
	return id
}

// put writes best-effort: a failed write is logged and the flow continues.
func (r *Reconciler) put(kv KeyValue, key, value string) {
	if err := kv.Set(key, value); err != nil {
		r.log.Warn("visitor: storage write failed",
			"err", &StorageError{Op: "set", Key: key, Err: err})
	}
}
