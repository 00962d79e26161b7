package internal

import (
	"errors"
	"fmt"
)

var (
	ErrNestedUpdateLimit        = errors.New("maximum update depth exceeded: a component repeatedly schedules updates during commit")
	ErrNestedPassiveUpdateLimit = errors.New("maximum update depth exceeded: passive effects repeatedly schedule updates")
	ErrTooManyRerenders         = errors.New("too many re-renders: a component updates its own state on every render")
	ErrInvalidHookCall          = errors.New("invalid hook call: hooks can only be called while their component renders")
	ErrHookOrder                = errors.New("hooks rendered in a different order than during the previous render")
	ErrWrongGoroutine           = errors.New("runtime used from a goroutine that does not own it")
	ErrRootUnmounted            = errors.New("root is unmounted")
	ErrRenderInProgress         = errors.New("cannot unmount a root while rendering or committing")
	ErrInvalidChild             = errors.New("invalid child")
	ErrInvalidElementType       = errors.New("invalid element type")
)

// RenderError is a panic recovered while a node rendered. The pass that raised it is discarded.
type RenderError struct {
	Component string
	Value     any
	Stack     []byte
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Component, e.Value)
}

func (e *RenderError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// EffectError is a panic recovered from an effect, an effect cleanup or a commit callback.
type EffectError struct {
	Component string
	Phase     string
	Value     any
}

func (e *EffectError) Error() string {
	return fmt.Sprintf("%s effect in %s: %v", e.Phase, e.Component, e.Value)
}

func (e *EffectError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// HostError is a panic recovered from a host renderer call during commit.
type HostError struct {
	Op    string
	Value any
}

func (e *HostError) Error() string {
	return fmt.Sprintf("host %s: %v", e.Op, e.Value)
}

func (e *HostError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}
