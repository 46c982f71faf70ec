package gps

// Value holds the last observed value of a fix field, or nothing if the
// field has never been reported.
type Value[T any] struct {
	v  T
	ok bool
}

func (x *Value[T]) Set(v T) {
	x.v = v
	x.ok = true
}

func (x Value[T]) Valid() bool {
	return x.ok
}

// Or returns the stored value, or def if the field was never observed.
func (x Value[T]) Or(def T) T {
	if !x.ok {
		return def
	}
	return x.v
}

// ptr renders the value for JSON snapshots: nil when unset.
func (x Value[T]) ptr() *T {
	if !x.ok {
		return nil
	}
	v := x.v
	return &v
}
