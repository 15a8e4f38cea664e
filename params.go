package graph

import (
	"math"
	"sort"

	"pipelined.dev/graph/param"
)

// StartParamGroup sets the group of parameters added afterwards.
func (u *Unit) StartParamGroup(name string) {
	u.paramGroup = name
}

// AddParam declares a parameter with the next free ID. Parameters may
// only be added from Initialize.
func (u *Unit) AddParam(info param.Info, value float64) param.ID {
	return u.AddParamID(param.ID(1+len(u.params)), info, value)
}

// AddParamID declares a parameter with an explicit, unique id.
func (u *Unit) AddParamID(id param.ID, info param.Info, value float64) param.ID {
	switch {
	case !assert(!u.Initialized(), "parameter %q added after initialization", info.Label),
		!assert(id > 0, "invalid parameter id"),
		!assert(info.Label != "", "parameter without label"),
		!assert(info.IsValid(), "parameter %q without range", info.Label):
		return 0
	}
	if info.Ident == "" {
		info.Ident = param.Canonify(info.Label)
	}
	for _, s := range u.params {
		if !assert(s.Info.Ident != info.Ident, "duplicate parameter %q", info.Ident) {
			return 0
		}
	}
	if info.Group == "" {
		info.Group = u.paramGroup
	}
	info.ID = id
	info.Order = 1 + len(u.params)
	i := sort.Search(len(u.params), func(i int) bool { return u.params[i].Info.ID >= id })
	if !assert(i == len(u.params) || u.params[i].Info.ID != id, "duplicate parameter id %d", id) {
		return 0
	}
	u.params = append(u.params, nil)
	copy(u.params[i+1:], u.params[i:])
	u.params[i] = param.NewSlot(&info, value)
	return id
}

func (u *Unit) slot(id param.ID) *param.Slot {
	// IDs are usually dense
	if i := int(id) - 1; i >= 0 && i < len(u.params) && u.params[i].Info.ID == id {
		return u.params[i]
	}
	i := sort.Search(len(u.params), func(i int) bool { return u.params[i].Info.ID >= id })
	if i < len(u.params) && u.params[i].Info.ID == id {
		return u.params[i]
	}
	return nil
}

// SetParam assigns v, clamped and quantized, to parameter id. It must be
// called from the render goroutine, other goroutines submit a job.
func (u *Unit) SetParam(id param.ID, v float64) {
	s := u.slot(id)
	if !assert(s != nil, "unknown parameter %d of %s", id, u.DebugName()) {
		return
	}
	if s.Store(v) {
		u.enqueueNotify(NotifyParamChange)
	}
}

// SetNormalized assigns the value n of [0, 1] mapped onto the range of
// parameter id.
func (u *Unit) SetNormalized(id param.ID, n float64) {
	s := u.slot(id)
	if !assert(s != nil, "unknown parameter %d of %s", id, u.DebugName()) {
		return
	}
	u.SetParam(id, s.Info.Denormalize(n))
}

// GetNormalized returns the value of parameter id mapped onto [0, 1].
func (u *Unit) GetNormalized(id param.ID) float64 {
	s := u.slot(id)
	if !assert(s != nil, "unknown parameter %d of %s", id, u.DebugName()) {
		return math.NaN()
	}
	return s.Info.Normalize(s.Load())
}

// GetParam returns the value of parameter id and clears its dirty flag.
func (u *Unit) GetParam(id param.ID) float64 {
	s := u.slot(id)
	if !assert(s != nil, "unknown parameter %d of %s", id, u.DebugName()) {
		return math.NaN()
	}
	s.ClearDirty()
	return s.Load()
}

// CheckDirty reports whether parameter id changed since the last GetParam.
func (u *Unit) CheckDirty(id param.ID) bool {
	if s := u.slot(id); s != nil {
		return s.Dirty()
	}
	return false
}

// PeekParamMT returns the value of parameter id. It is safe for
// concurrent use once u is initialized.
func (u *Unit) PeekParamMT(id param.ID) float64 {
	if !assert(u.Initialized(), "peek before initialization") {
		return math.NaN()
	}
	if s := u.slot(id); s != nil {
		return s.Load()
	}
	return math.NaN()
}

// ParamNotifiesMT switches change notifications of parameter id. It is
// safe for concurrent use once u is initialized.
func (u *Unit) ParamNotifiesMT(id param.ID, on bool) {
	if !assert(u.Initialized(), "notifies before initialization") {
		return
	}
	if s := u.slot(id); s != nil {
		s.SetMustNotify(on)
	}
}

// FindParam returns the ID of the parameter with label or identifier name.
func (u *Unit) FindParam(name string) (param.ID, bool) {
	ident := param.Canonify(name)
	for _, s := range u.params {
		if s.Info.Ident == ident {
			return s.Info.ID, true
		}
	}
	return 0, false
}

// ParamInfo returns the description of parameter id or nil.
func (u *Unit) ParamInfo(id param.ID) *param.Info {
	if s := u.slot(id); s != nil {
		return s.Info
	}
	return nil
}

// ParamRange returns the value range of parameter id.
func (u *Unit) ParamRange(id param.ID) (float64, float64) {
	if info := u.ParamInfo(id); info != nil {
		return info.MinMax()
	}
	return math.NaN(), math.NaN()
}

// ListParams returns all parameter descriptions in declaration order.
func (u *Unit) ListParams() []*param.Info {
	if !assert(u.Initialized(), "list parameters before initialization") {
		return nil
	}
	infos := make([]*param.Info, 0, len(u.params))
	for _, s := range u.params {
		infos = append(infos, s.Info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Order < infos[j].Order })
	return infos
}

// changedParams calls fn for every observed parameter that changed since
// the last call.
func (u *Unit) changedParams(fn func(id param.ID, v float64)) {
	for _, s := range u.params {
		if s.ClearChanged() {
			fn(s.Info.ID, s.Load())
		}
	}
}
