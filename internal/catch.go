package internal

import "runtime/debug"

func (r *Runtime) safeCleanup(component, phase string, fn func()) {
	defer func() {
		if v := recover(); v != nil {
			r.report(&EffectError{Component: component, Phase: phase, Value: v})
		}
	}()
	fn()
}

func (r *Runtime) safeCreate(component, phase string, create func() func()) (destroy func()) {
	defer func() {
		if v := recover(); v != nil {
			destroy = nil
			r.report(&EffectError{Component: component, Phase: phase, Value: v})
		}
	}()
	return create()
}

// performUnitOfWorkSafe turns a panic raised while working on unit into a RenderError.
func (r *Runtime) performUnitOfWorkSafe(unit *Node) (err *RenderError) {
	defer func() {
		if v := recover(); v != nil {
			err = &RenderError{Value: v, Stack: debug.Stack()}
			if n := r.node(r.wip); n != nil {
				err.Component = n.name()
			}
		}
	}()

	r.performUnitOfWork(unit)
	return nil
}
