package search

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/roach88/oced/internal/evaluator"
	"github.com/roach88/oced/internal/model"
)

var (
	// errFound unwinds a walker after it recorded a result.
	errFound = errors.New("search: result found")

	// errStop unwinds a walker at a checkpoint: budget, deadline, or a
	// better-ranked result elsewhere.
	errStop = errors.New("search: stopped")
)

// unit is one partition of the search tree: a cardinality triple and, when
// the triple has objects, the assignment of the first object.
type unit struct {
	rank     int
	objects  int
	events   int
	observes int
	first    *model.Object
}

type triple struct {
	objects  int
	events   int
	observes int
}

// plan numbers the work units of one search in canonical order without
// materializing them. A triple with objects owns one unit per first-object
// choice; the empty-object triple owns a single unit.
type plan struct {
	triples []triple
	starts  []int // rank of the first unit of triples[i]
	firsts  []model.Object
	total   int
}

func newPlan(s *model.Schema, t *model.TimeOrder, b Bound, g Goal) *plan {
	prune := g.constrained()
	p := &plan{firsts: objectChoices(s, t, prune)}
	for no := g.Min.Objects; no <= b.Objects; no++ {
		for ne := g.Min.Events; ne <= b.Events; ne++ {
			for nx := g.Min.Observes; nx <= b.Observes; nx++ {
				if !feasibleCounts(s, no, ne, nx, prune) {
					continue
				}
				n := 1
				if no > 0 {
					n = len(p.firsts)
				}
				if n == 0 {
					continue
				}
				p.triples = append(p.triples, triple{no, ne, nx})
				p.starts = append(p.starts, p.total)
				p.total += n
			}
		}
	}
	return p
}

// size is the number of work units.
func (p *plan) size() int {
	return p.total
}

// unit decodes the work unit of the given rank, 0 <= rank < size().
func (p *plan) unit(rank int) unit {
	i := sort.Search(len(p.starts), func(i int) bool { return p.starts[i] > rank }) - 1
	tr := p.triples[i]
	u := unit{rank: rank, objects: tr.objects, events: tr.events, observes: tr.observes}
	if tr.objects > 0 {
		u.first = &p.firsts[rank-p.starts[i]]
	}
	return u
}

// feasibleCounts rejects cardinality triples no instance can have.
func feasibleCounts(s *model.Schema, no, ne, nx int, prune bool) bool {
	if nx > 0 && (no == 0 || ne == 0) {
		return false
	}
	if nx > no*ne*s.Relations.Len() {
		return false
	}
	if !prune {
		return true
	}
	if (no == 0) != (ne == 0) {
		return false
	}
	return nx >= no && nx >= ne
}

// objectChoices lists object assignments in canonical order: type, then
// creation, then deletion with absent first.
func objectChoices(s *model.Schema, t *model.TimeOrder, prune bool) []model.Object {
	var out []model.Object
	for ti := 0; ti < s.ObjectTypes.Len(); ti++ {
		for c := 0; c < t.Len(); c++ {
			for d := -1; d < t.Len(); d++ {
				o := model.Object{
					Type:    s.ObjectTypes.At(ti),
					Created: model.Instant(c),
					Deleted: model.Instant(d),
				}
				if prune && !(evaluator.DeletionValid(o) && evaluator.Observable(o, t)) {
					continue
				}
				out = append(out, o)
			}
		}
	}
	return out
}

type link struct {
	object   int
	event    int
	relation int
}

// walker explores one work unit depth-first. It owns its partial
// assignment; only the shared state is touched concurrently.
type walker struct {
	sh     *shared
	schema *model.Schema
	time   *model.TimeOrder
	goal   Goal
	prune  bool
	u      unit

	inc        *evaluator.Incremental
	links      []link
	nRel       int
	lastActive []int // per event, highest object index active at its instant
	ticks      int
}

func newWalker(sh *shared, s *model.Schema, t *model.TimeOrder, g Goal, u unit) *walker {
	return &walker{
		sh:     sh,
		schema: s,
		time:   t,
		goal:   g,
		prune:  g.constrained(),
		u:      u,
		inc:    evaluator.NewIncremental(s, t),
		links:  make([]link, 0, u.observes),
		nRel:   s.Relations.Len(),
	}
}

// run explores the unit. It returns nil when the unit was fully explored
// without a result, errFound after recording one, errStop when interrupted,
// or a predicate error.
func (w *walker) run() error {
	if w.u.first == nil {
		return w.placeObject(0)
	}
	if err := w.step(); err != nil {
		return err
	}
	w.inc.PushObject(*w.u.first)
	return w.placeObject(1)
}

// step is the checkpoint taken before every candidate assignment.
func (w *walker) step() error {
	if err := w.sh.budget.Step(); err != nil {
		return errStop
	}
	w.ticks++
	if w.ticks&0xff == 0 && w.sh.ctx.Err() != nil {
		return errStop
	}
	if w.sh.outranked(w.u.rank) {
		return errStop
	}
	return nil
}

func (w *walker) placeObject(i int) error {
	if i == w.u.objects {
		return w.placeEvent(0)
	}
	n := w.time.Len()
	for ti := 0; ti < w.schema.ObjectTypes.Len(); ti++ {
		for c := 0; c < n; c++ {
			for d := -1; d < n; d++ {
				if err := w.step(); err != nil {
					return err
				}
				o := model.Object{
					Type:    w.schema.ObjectTypes.At(ti),
					Created: model.Instant(c),
					Deleted: model.Instant(d),
				}
				if w.prune && !w.inc.AdmitObject(o) {
					continue
				}
				w.inc.PushObject(o)
				err := w.placeObject(i + 1)
				w.inc.PopObject()
				if err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (w *walker) placeEvent(j int) error {
	if j == w.u.events {
		if w.prune && !w.eventsFeasible() {
			return nil
		}
		w.prepareLinks()
		return w.placeLink(0, -1)
	}
	for ti := 0; ti < w.schema.EventTypes.Len(); ti++ {
		for ts := 0; ts < w.time.Len(); ts++ {
			if err := w.step(); err != nil {
				return err
			}
			e := model.Event{Type: w.schema.EventTypes.At(ti), Timestamp: model.Instant(ts)}
			if w.prune && !w.inc.AdmitEvent(e) {
				continue
			}
			w.inc.PushEvent(e)
			err := w.placeEvent(j + 1)
			w.inc.PopEvent()
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// eventsFeasible runs the checks that become decidable once every object
// and event is fixed: each object needs an event it can be linked to, its
// lifecycle obligations need suitable events, and the links requested must
// fit within the max-observes bound.
func (w *walker) eventsFeasible() bool {
	for oi := 0; oi < w.inc.NumObjects(); oi++ {
		o := w.inc.Object(oi)
		linked := false
		for ei := 0; ei < w.inc.NumEvents() && !linked; ei++ {
			linked = evaluator.ActiveAt(o, w.inc.Event(ei).Timestamp)
		}
		if !linked || !w.inc.LifecycleFeasible(oi) {
			return false
		}
	}
	capacity := 0
	for ei := 0; ei < w.inc.NumEvents(); ei++ {
		capacity += min(w.schema.MaxObserves(), w.inc.EligibleAt(w.inc.Event(ei).Timestamp)) * w.nRel
	}
	return capacity >= w.u.observes
}

func (w *walker) prepareLinks() {
	w.lastActive = make([]int, w.inc.NumEvents())
	for ei := range w.lastActive {
		w.lastActive[ei] = -1
		ts := w.inc.Event(ei).Timestamp
		for oi := w.inc.NumObjects() - 1; oi >= 0; oi-- {
			if evaluator.ActiveAt(w.inc.Object(oi), ts) {
				w.lastActive[ei] = oi
				break
			}
		}
	}
}

// placeLink assigns link k. Links form a strictly increasing sequence of
// (object, event, relation) triples, encoded as idx.
func (w *walker) placeLink(k, prev int) error {
	if k == w.u.observes {
		return w.leaf()
	}
	perObject := w.u.events * w.nRel
	total := w.u.objects * perObject
	remaining := w.u.observes - k - 1

	lastObj := -1
	if k > 0 {
		lastObj = w.links[k-1].object
	}

	for idx := prev + 1; idx < total; idx++ {
		if total-idx-1 < remaining {
			break
		}
		oi, ei, ri := idx/perObject, (idx/w.nRel)%w.u.events, idx%w.nRel
		if w.prune && oi != lastObj {
			// Moving on to object oi finalizes every object before it.
			if oi > lastObj+1 {
				break
			}
			if lastObj >= 0 && !w.inc.LifecycleMet(lastObj) {
				break
			}
		}
		if err := w.step(); err != nil {
			return err
		}
		if w.prune && !w.inc.AdmitObserve(oi, ei) {
			continue
		}

		w.inc.PushObserve(oi, ei)
		w.links = append(w.links, link{object: oi, event: ei, relation: ri})
		var err error
		if !w.prune || w.coverable(remaining, oi, ei) {
			err = w.placeLink(k+1, idx)
		}
		w.links = w.links[:k]
		w.inc.PopObserve(oi, ei)
		if err != nil {
			return err
		}
	}
	return nil
}

// coverable reports whether the remaining links can still reach every
// object after oi and every uncovered event.
func (w *walker) coverable(remaining, oi, ei int) bool {
	if remaining < w.u.objects-1-oi || remaining < w.inc.UncoveredEvents() {
		return false
	}
	cur := w.inc.Object(oi)
	for e := 0; e < w.u.events; e++ {
		if w.inc.EventCovered(e) || w.lastActive[e] > oi {
			continue
		}
		if e > ei && evaluator.ActiveAt(cur, w.inc.Event(e).Timestamp) {
			continue
		}
		return false
	}
	return true
}

func (w *walker) leaf() error {
	if w.prune {
		if w.inc.UncoveredObjects() > 0 || w.inc.UncoveredEvents() > 0 {
			return nil
		}
		if last := w.u.objects - 1; last >= 0 && !w.inc.LifecycleMet(last) {
			return nil
		}
	}
	in, err := w.build()
	if err != nil {
		return err
	}
	ok, err := w.goal.accept(w.schema, in)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	w.sh.offer(w.u.rank, in)
	return errFound
}

// build materializes the current assignment with ids O1.., E1.., X1...
func (w *walker) build() (*model.Instance, error) {
	b := model.NewBuilder(w.schema, w.time)
	for i := 0; i < w.inc.NumObjects(); i++ {
		o := w.inc.Object(i)
		o.ID = objectID(i)
		if err := b.AddObject(o); err != nil {
			return nil, fmt.Errorf("build candidate: %w", err)
		}
	}
	for i := 0; i < w.inc.NumEvents(); i++ {
		e := w.inc.Event(i)
		e.ID = eventID(i)
		if err := b.AddEvent(e); err != nil {
			return nil, fmt.Errorf("build candidate: %w", err)
		}
	}
	for i, l := range w.links {
		x := model.Observe{
			ID:       "X" + strconv.Itoa(i+1),
			Object:   objectID(l.object),
			Event:    eventID(l.event),
			Relation: w.schema.Relations.At(l.relation),
		}
		if err := b.AddObserve(x); err != nil {
			return nil, fmt.Errorf("build candidate: %w", err)
		}
	}
	return b.Build(), nil
}

func objectID(i int) string { return "O" + strconv.Itoa(i+1) }
func eventID(i int) string  { return "E" + strconv.Itoa(i+1) }
