package harness

import (
	"fmt"
	"reflect"

	"github.com/roach88/crewdeck/internal/entity"
)

// Assert validates one assertion against the run. Returns a descriptive
// error on mismatch.
func (r *Result) Assert(a Assertion) error {
	switch a.Type {
	case AssertActivityCount:
		return r.assertActivityCount(a)
	case AssertActivityOrder:
		return r.assertActivityOrder(a)
	case AssertProjectState:
		return r.assertState(entity.CollProjects, a)
	case AssertTaskState:
		return r.assertState(entity.CollTasks, a)
	case AssertCommentState:
		return r.assertState(entity.CollComments, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

// AssertAll validates every assertion, collecting all failures.
func (r *Result) AssertAll(assertions []Assertion) error {
	var failures []string
	for i, a := range assertions {
		if err := r.Assert(a); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	if len(failures) == 0 {
		return nil
	}
	msg := failures[0]
	for _, f := range failures[1:] {
		msg += "; " + f
	}
	return fmt.Errorf("%s", msg)
}

func (r *Result) assertActivityCount(a Assertion) error {
	targetID := ""
	if a.Target != "" {
		id, err := r.resolve(a.Target)
		if err != nil {
			return err
		}
		targetID = id
	}

	count := 0
	for _, rec := range r.Feed {
		if rec.ActionType != a.Action {
			continue
		}
		if targetID != "" && rec.TargetID != targetID {
			continue
		}
		count++
	}
	if count != a.Count {
		return fmt.Errorf("expected %d %q activities, found %d", a.Count, a.Action, count)
	}
	return nil
}

func (r *Result) assertActivityOrder(a Assertion) error {
	targetID, err := r.resolve(a.Target)
	if err != nil {
		return err
	}

	var got []string
	for _, rec := range r.Feed {
		if rec.TargetID == targetID {
			got = append(got, rec.ActionType)
		}
	}

	// Expected actions must appear as a subsequence of the target's feed.
	next := 0
	for _, action := range got {
		if next < len(a.Actions) && action == a.Actions[next] {
			next++
		}
	}
	if next != len(a.Actions) {
		return fmt.Errorf("expected action order %v on target, feed had %v", a.Actions, got)
	}
	return nil
}

func (r *Result) assertState(collection string, a Assertion) error {
	id, err := r.resolve(a.Target)
	if err != nil {
		return err
	}
	doc, err := r.store.Get(r.ctx, collection, id)
	if err != nil {
		return err
	}

	for field, want := range a.Expect {
		got, present := doc[field]
		if !present {
			return fmt.Errorf("%s %s: field %q absent, expected %v", collection, a.Target, field, want)
		}
		if !looseEqual(want, got) {
			return fmt.Errorf("%s %s: field %q = %v, expected %v", collection, a.Target, field, got, want)
		}
	}
	return nil
}

// looseEqual compares YAML-decoded expectations against JSON-decoded
// documents, bridging the int/float64 gap between the two decoders.
func looseEqual(want, got any) bool {
	if wf, ok := toFloat(want); ok {
		if gf, ok := toFloat(got); ok {
			return wf == gf
		}
		return false
	}
	return reflect.DeepEqual(want, got)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
