package generic

type Option[T any] struct {
	Value    T
	hasValue bool
}

// IsNone returns true if this Option[T] does not have a value.
func (o Option[T]) IsNone() bool {
	return !o.hasValue
}

// IsSome returns true if this Option[T] has a value.
func (o Option[T]) IsSome() bool {
	return o.hasValue
}

// Get returns the contained value and whether there was one, for use in if-statements.
func (o Option[T]) Get() (T, bool) {
	return o.Value, o.hasValue
}

// Filter returns the option itself if it has a value that satisfies the predicate, otherwise None.
func (o Option[T]) Filter(f func(T) bool) Option[T] {
	if o.hasValue && f(o.Value) {
		return o
	}
	return None[T]()
}

// Some constructs an Option[T] that has a value.
func Some[T any](value T) Option[T] {
	return Option[T]{Value: value, hasValue: true}
}

// None constructs an Option[T] that does not have a value.
func None[T any]() Option[T] {
	return Option[T]{hasValue: false}
}

// NonZero is Some(value) unless value is the zero value of T, in which case it is None.
func NonZero[T comparable](value T) Option[T] {
	var zero T
	if value == zero {
		return None[T]()
	}
	return Some(value)
}
