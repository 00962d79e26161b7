package internal

type EffectTag uint8

const (
	HasEffect EffectTag = 1 << iota
	LayoutEffect
	PassiveEffect
)

// Effect is one UseEffect or UseLayoutEffect registration of a render.
type Effect struct {
	Tag     EffectTag
	Create  func() func()
	Destroy func()
	Deps    []any
}

func (e *Effect) is(tag EffectTag) bool {
	return e.Tag&tag == tag
}

func (s *renderState) pushEffect(tag EffectTag, create func() func(), destroy func(), deps []any) *Effect {
	e := &Effect{Tag: tag, Create: create, Destroy: destroy, Deps: deps}
	s.effects = append(s.effects, e)
	return e
}

func effectsOf(n *Node) []*Effect {
	if role, ok := n.Role.(*ComponentRole); ok {
		return role.Effects
	}
	return nil
}

func (r *Runtime) commitHookEffectListUnmount(tag EffectTag, n *Node, phase string) {
	for _, e := range effectsOf(n) {
		if !e.is(tag) {
			continue
		}
		destroy := e.Destroy
		e.Destroy = nil
		if destroy != nil {
			r.safeCleanup(n.name(), phase, destroy)
		}
	}
}

func (r *Runtime) commitHookEffectListMount(tag EffectTag, n *Node, phase string) {
	for _, e := range effectsOf(n) {
		if e.is(tag) {
			e.Destroy = r.safeCreate(n.name(), phase, e.Create)
		}
	}
}

// schedulePassiveEffects queues the cleanup and mount of every changed passive effect of n.
func (r *Runtime) schedulePassiveEffects(n *Node) {
	name := n.name()
	for _, e := range effectsOf(n) {
		if !e.is(HasEffect | PassiveEffect) {
			continue
		}
		r.passive.Enqueue(PassiveUnmount, func() {
			destroy := e.Destroy
			e.Destroy = nil
			if destroy != nil {
				r.safeCleanup(name, "passive cleanup", destroy)
			}
		})
		r.passive.Enqueue(PassiveMount, func() {
			e.Destroy = r.safeCreate(name, "passive", e.Create)
		})
	}
}

// commitUnmount runs the cleanups of a node that is being deleted.
// Passive cleanups are deferred to the passive flush.
func (r *Runtime) commitUnmount(n *Node) {
	name := n.name()
	for _, e := range effectsOf(n) {
		switch {
		case e.is(PassiveEffect):
			r.passive.Enqueue(PassiveUnmount, func() {
				destroy := e.Destroy
				e.Destroy = nil
				if destroy != nil {
					r.safeCleanup(name, "passive cleanup", destroy)
				}
			})
		case e.Destroy != nil:
			destroy := e.Destroy
			e.Destroy = nil
			r.safeCleanup(name, "layout cleanup", destroy)
		}
	}
}
