package scenario

import (
	"fmt"

	"github.com/Sumatoshi-tech/ddgroups/internal/config"
	"github.com/Sumatoshi-tech/ddgroups/pkg/diagram"
	"github.com/Sumatoshi-tech/ddgroups/pkg/vgroup"
)

// session is the mutable state of one run.
type session struct {
	cfg       config.Config
	mem       *diagram.Memory
	alloc     *vgroup.Allocator
	probe     *probe
	handles   map[string]vgroup.Handle
	snapshots map[string][]byte
}

// observation is what a step produced, compared against its Expect.
type observation struct {
	detail    string
	low       *int
	destroyed *bool
	share     *bool
}

func (s *session) exec(step *Step) (observation, error) {
	switch step.Op {
	case OpReserve:
		return s.reserve(step)
	case OpRelease:
		return s.release(step)
	case OpDissolve:
		return s.dissolve(step)
	case OpResync:
		s.alloc.Resync()

		return observation{detail: fmt.Sprintf("%d roots", len(s.alloc.Roots()))}, nil
	case OpReorder:
		return s.reorder(step)
	case OpPermute:
		permuteErr := s.mem.Permute(step.Levels)
		if permuteErr != nil {
			return observation{}, fmt.Errorf("permute: %w", permuteErr)
		}

		return observation{detail: fmt.Sprintf("order %v", s.mem.Order())}, nil
	case OpEnable:
		method, err := s.method(step)
		if err != nil {
			return observation{}, err
		}

		s.mem.EnableReordering(method)

		return observation{detail: "reordering enabled (" + method.String() + ")"}, nil
	case OpDisable:
		s.mem.DisableReordering()

		return observation{detail: "reordering disabled"}, nil
	case OpSnapshot:
		snap, err := s.mem.Snapshot()
		if err != nil {
			return observation{}, fmt.Errorf("snapshot: %w", err)
		}

		s.snapshots[step.Handle] = snap

		return observation{detail: fmt.Sprintf("snapshot %q of %d variables", step.Handle, s.mem.Size())}, nil
	case OpRestore:
		snap, ok := s.snapshots[step.Handle]
		if !ok {
			return observation{}, fmt.Errorf("restore: snapshot %q: %w", step.Handle, ErrUnknownName)
		}

		restoreErr := s.mem.Restore(snap)
		if restoreErr != nil {
			return observation{}, fmt.Errorf("restore: %w", restoreErr)
		}

		return observation{detail: fmt.Sprintf("order %v", s.mem.Order())}, nil
	case OpCanShare:
		share := s.alloc.CanShare(step.level(), step.Size, step.chunk())

		return observation{detail: fmt.Sprintf("can share: %t", share), share: &share}, nil
	case OpCheck:
		return observation{detail: "forest consistent"}, nil
	case OpDump:
		return observation{detail: s.alloc.DebugDump()}, nil
	default:
		return observation{}, fmt.Errorf("%w: %q", ErrUnknownOp, step.Op)
	}
}

func (s *session) reserve(step *Step) (observation, error) {
	if step.Handle != "" {
		if _, bound := s.handles[step.Handle]; bound {
			return observation{}, fmt.Errorf("reserve %q: %w", step.Handle, ErrDuplicateName)
		}
	}

	h, low, err := s.alloc.Reserve(step.level(), step.Size, step.chunk(), step.Share)
	if err != nil {
		return observation{}, err
	}

	if step.Handle != "" {
		s.handles[step.Handle] = h
	}

	rng, _ := s.alloc.Range(h)

	return observation{
		detail: fmt.Sprintf("handle %d -> [%d,%d]", h, rng.Low, rng.High),
		low:    &low,
	}, nil
}

func (s *session) release(step *Step) (observation, error) {
	h, err := s.lookup(step.Handle)
	if err != nil {
		return observation{}, err
	}

	destroyed, err := s.alloc.Release(h)
	if err != nil {
		return observation{}, err
	}

	delete(s.handles, step.Handle)

	return observation{
		detail:    fmt.Sprintf("handle %d released, group destroyed: %t", h, destroyed),
		destroyed: &destroyed,
	}, nil
}

func (s *session) dissolve(step *Step) (observation, error) {
	h, err := s.lookup(step.Handle)
	if err != nil {
		return observation{}, err
	}

	dissolveErr := s.alloc.Dissolve(h)
	if dissolveErr != nil {
		return observation{}, dissolveErr
	}

	delete(s.handles, step.Handle)

	return observation{detail: fmt.Sprintf("handle %d dissolved, %d roots left", h, len(s.alloc.Roots()))}, nil
}

func (s *session) reorder(step *Step) (observation, error) {
	method, err := s.method(step)
	if err != nil {
		return observation{}, err
	}

	s.mem.Reorder(method)

	return observation{detail: fmt.Sprintf("%s: order %v", method, s.mem.Order())}, nil
}

// method resolves the step's method, falling back to the configured one.
func (s *session) method(step *Step) (diagram.Method, error) {
	name := step.Method
	if name == "" {
		name = s.cfg.Diagram.ReorderMethod
	}

	method, err := diagram.ParseMethod(name)
	if err != nil {
		return diagram.MethodNone, fmt.Errorf("%s: %w", step.Op, err)
	}

	return method, nil
}

func (s *session) lookup(name string) (vgroup.Handle, error) {
	h, ok := s.handles[name]
	if !ok {
		return 0, fmt.Errorf("handle %q: %w", name, ErrUnknownName)
	}

	return h, nil
}

// compare returns a description of every expectation that did not hold.
func (o observation) compare(want *Expect, conflict bool) []string {
	if want == nil {
		return nil
	}

	var mismatches []string

	if want.Low != nil && (o.low == nil || *o.low != *want.Low) {
		mismatches = append(mismatches, fmt.Sprintf("low: want %d, got %s", *want.Low, formatPtr(o.low)))
	}

	if want.Destroyed != nil && (o.destroyed == nil || *o.destroyed != *want.Destroyed) {
		mismatches = append(mismatches, fmt.Sprintf("destroyed: want %t, got %s", *want.Destroyed, formatPtr(o.destroyed)))
	}

	if want.Share != nil && (o.share == nil || *o.share != *want.Share) {
		mismatches = append(mismatches, fmt.Sprintf("share: want %t, got %s", *want.Share, formatPtr(o.share)))
	}

	if want.Conflict != nil && *want.Conflict != conflict {
		mismatches = append(mismatches, fmt.Sprintf("conflict: want %t, got %t", *want.Conflict, conflict))
	}

	return mismatches
}

func formatPtr[T any](v *T) string {
	if v == nil {
		return "nothing"
	}

	return fmt.Sprint(*v)
}
