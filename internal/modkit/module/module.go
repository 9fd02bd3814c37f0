// Package module defines the contract a pipeline module satisfies and the helpers that
// pull typed ports out of one module for another
package module

import (
	"fmt"
	"reflect"

	"emolens/internal/modkit"
)

// Module is modkit.Module, re-exported so wiring code needs one import
type Module = modkit.Module

// PortsOf finds a T in m's ports: the ports value itself, or the first exported struct
// field that holds a T
func PortsOf[T any](m Module) (t T, ok bool) {
	p := m.Ports()
	if p == nil {
		return t, false
	}
	if v, ok := p.(T); ok {
		return v, true
	}
	rv := reflect.ValueOf(p)
	if rv.Kind() != reflect.Struct {
		return t, false
	}
	for i := range rv.NumField() {
		f := rv.Field(i)
		if !f.CanInterface() {
			continue
		}
		if v, ok := f.Interface().(T); ok {
			return v, true
		}
	}
	return t, false
}

// MustPortsOf is PortsOf for required wiring; it panics naming the module and port type
func MustPortsOf[T any](m Module) T {
	if v, ok := PortsOf[T](m); ok {
		return v
	}
	panic(fmt.Sprintf("module %s: no %v port", m.Name(), reflect.TypeFor[T]()))
}
