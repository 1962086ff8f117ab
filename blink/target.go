package blink

import (
	"image"
	"reflect"
	"weak"
)

// Target is a visual element whose visibility can be flipped
type Target interface {
	Visible() bool
	SetVisible(visible bool)
}

// ContentTarget is a Target that also displays an image
type ContentTarget interface {
	Target
	Content() image.Image
	SetContent(img image.Image)
}

// Disposable targets report when they have been torn down
// A disposed target is treated as gone and is never mutated again
type Disposable interface {
	Disposed() bool
}

// Ref is a non-owning handle to a Target
// Resolve returns false once the target is gone
type Ref interface {
	Resolve() (Target, bool)
}

// Retain wraps a target the caller keeps alive by other means
// Liveness is decided by Disposable when the target implements it
func Retain(t Target) Ref {
	return retained{t: t}
}

type retained struct {
	t Target
}

func (r retained) Resolve() (Target, bool) {
	if isNil(r.t) {
		return nil, false
	}
	return alive(r.t)
}

// Weak references the target through a weak pointer, so a Toggle never
// extends its lifetime. Once the target is collected Resolve reports false.
func Weak[T any, PT interface {
	*T
	Target
}](p PT) Ref {
	return weakRef[T, PT]{p: weak.Make((*T)(p))}
}

type weakRef[T any, PT interface {
	*T
	Target
}] struct {
	p weak.Pointer[T]
}

func (r weakRef[T, PT]) Resolve() (Target, bool) {
	v := r.p.Value()
	if v == nil {
		return nil, false
	}
	return alive(PT(v))
}

func alive(t Target) (Target, bool) {
	if d, ok := t.(Disposable); ok && d.Disposed() {
		return nil, false
	}
	return t, true
}

// isNil also catches a nil pointer stored in a non-nil interface
func isNil(t Target) bool {
	if t == nil {
		return true
	}
	v := reflect.ValueOf(t)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}
