package sandbox

import (
	"slices"

	"github.com/blackcoderx/hopp/pkg/storage"
	"github.com/blackcoderx/hopp/pkg/templating"
)

// Source selects which variable lists an env operation looks at.
type Source string

const (
	SourceAll    Source = "all"
	SourceActive Source = "active"
	SourceGlobal Source = "global"
)

func (s Source) active() bool { return s == SourceAll || s == SourceActive }
func (s Source) global() bool { return s == SourceAll || s == SourceGlobal }

// Envs is the variable state a script can read and change. Selected holds
// the active environment and takes precedence over Global.
type Envs struct {
	Global   []storage.EnvVariable `json:"global"`
	Selected []storage.EnvVariable `json:"selected"`
}

// Clone returns a copy whose slices can be changed independently.
func (e Envs) Clone() Envs {
	return Envs{Global: slices.Clone(e.Global), Selected: slices.Clone(e.Selected)}
}

func indexOf(vars []storage.EnvVariable, key string) int {
	return slices.IndexFunc(vars, func(v storage.EnvVariable) bool { return v.Key == key })
}

// Get finds key in the lists src allows, selected first.
func (e *Envs) Get(key string, src Source) (storage.EnvVariable, bool) {
	if src.active() {
		if i := indexOf(e.Selected, key); i >= 0 {
			return e.Selected[i], true
		}
	}
	if src.global() {
		if i := indexOf(e.Global, key); i >= 0 {
			return e.Global[i], true
		}
	}
	return storage.EnvVariable{}, false
}

// Set updates the current value of an existing variable, or creates it in
// selected (or global when src is SourceGlobal).
func (e *Envs) Set(key, value string, src Source) {
	e.set(key, value, src, false)
}

// SetInitial is Set for the initial value.
func (e *Envs) SetInitial(key, value string, src Source) {
	e.set(key, value, src, true)
}

func (e *Envs) set(key, value string, src Source, initial bool) {
	update := func(v *storage.EnvVariable) {
		if initial {
			v.InitialValue = value
		} else {
			v.CurrentValue = value
		}
	}
	if src.active() {
		if i := indexOf(e.Selected, key); i >= 0 {
			update(&e.Selected[i])
			return
		}
	}
	if src.global() {
		if i := indexOf(e.Global, key); i >= 0 {
			update(&e.Global[i])
			return
		}
	}

	v := storage.EnvVariable{Key: key, InitialValue: value, CurrentValue: value}
	if src.active() {
		e.Selected = append(e.Selected, v)
	} else {
		e.Global = append(e.Global, v)
	}
}

// Unset removes key from the first list src allows that holds it.
func (e *Envs) Unset(key string, src Source) {
	if src.active() {
		if i := indexOf(e.Selected, key); i >= 0 {
			e.Selected = slices.Delete(e.Selected, i, i+1)
			return
		}
	}
	if src.global() {
		if i := indexOf(e.Global, key); i >= 0 {
			e.Global = slices.Delete(e.Global, i, i+1)
		}
	}
}

// Reset restores the current value of key to its initial value.
func (e *Envs) Reset(key string, src Source) {
	if src.active() {
		if i := indexOf(e.Selected, key); i >= 0 {
			e.Selected[i].CurrentValue = e.Selected[i].InitialValue
			return
		}
	}
	if src.global() {
		if i := indexOf(e.Global, key); i >= 0 {
			e.Global[i].CurrentValue = e.Global[i].InitialValue
		}
	}
}

// Variables returns the resolver input for src: selected entries first.
func (e *Envs) Variables(src Source) []templating.Variable {
	var vars []templating.Variable
	if src.active() {
		vars = append(vars, storage.Resolvable(e.Selected)...)
	}
	if src.global() {
		vars = append(vars, storage.Resolvable(e.Global)...)
	}
	return vars
}

// GetResolve returns the current value of key with its placeholders
// expanded against the variables src allows.
func (e *Envs) GetResolve(key string, src Source) (string, bool) {
	v, ok := e.Get(key, src)
	if !ok {
		return "", false
	}
	return templating.Resolve(v.CurrentValue, e.Variables(src)), true
}
