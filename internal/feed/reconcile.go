package feed

import "neargrid/internal/domain"

// Plan is the minimal change turning the rendered ids into the next ones.
type Plan struct {
	// ToRemove lists rendered ids missing from the next projection, in their
	// previous order.
	ToRemove []string
	// ToAdd lists ids not yet rendered, in next-projection order.
	ToAdd []string
}

// Empty reports whether applying the plan changes nothing.
func (p Plan) Empty() bool {
	return len(p.ToRemove) == 0 && len(p.ToAdd) == 0
}

// Reconcile computes the plan from the previously rendered ids to next.
// Ids present in both are left alone and duplicate ids are added once.
func Reconcile(previous, next []string) Plan {
	nextSet := make(map[string]struct{}, len(next))
	for _, id := range next {
		nextSet[id] = struct{}{}
	}

	prevSet := make(map[string]struct{}, len(previous))
	var plan Plan
	for _, id := range previous {
		if _, seen := prevSet[id]; seen {
			continue
		}
		prevSet[id] = struct{}{}
		if _, keep := nextSet[id]; !keep {
			plan.ToRemove = append(plan.ToRemove, id)
		}
	}

	added := make(map[string]struct{})
	for _, id := range next {
		if _, rendered := prevSet[id]; rendered {
			continue
		}
		if _, dup := added[id]; dup {
			continue
		}
		added[id] = struct{}{}
		plan.ToAdd = append(plan.ToAdd, id)
	}
	return plan
}

// Apply returns the rendered ids after plan has been carried out: the kept
// previous ids in their previous order, followed by the added ids. It yields
// the same set as next, not its order.
func Apply(previous []string, plan Plan) []string {
	removed := make(map[string]struct{}, len(plan.ToRemove))
	for _, id := range plan.ToRemove {
		removed[id] = struct{}{}
	}

	seen := make(map[string]struct{}, len(previous)+len(plan.ToAdd))
	out := make([]string, 0, len(previous)+len(plan.ToAdd))
	for _, id := range append(append([]string{}, previous...), plan.ToAdd...) {
		if _, gone := removed[id]; gone {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// RenderSync remembers what has been rendered for each collection and turns
// every new projection into a reconciliation plan.
type RenderSync struct {
	rendered map[domain.CollectionKind][]string
}

// NewRenderSync creates a tracker with nothing rendered.
func NewRenderSync() *RenderSync {
	return &RenderSync{rendered: make(map[domain.CollectionKind][]string)}
}

// Next reconciles the collection against nextIDs and records nextIDs as the
// rendered state.
func (r *RenderSync) Next(kind domain.CollectionKind, nextIDs []string) Plan {
	plan := Reconcile(r.rendered[kind], nextIDs)
	r.rendered[kind] = dedupe(nextIDs)
	return plan
}

// Rendered returns the ids currently rendered for a collection, in order.
func (r *RenderSync) Rendered(kind domain.CollectionKind) []string {
	return append([]string(nil), r.rendered[kind]...)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
