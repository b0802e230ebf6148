package account

// Optional distinguishes "not supplied" from a supplied zero value.
type Optional[T any] struct {
	Value T
	Set   bool
}

// Some wraps a supplied value.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// None returns an unset Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it was supplied.
func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Set
}

// ProfileUpdate carries the editable profile fields. An unset field is left
// untouched; a set Phone with an empty value clears the phone.
type ProfileUpdate struct {
	Name  Optional[string]
	Phone Optional[string]
}

// Empty reports whether no field was supplied.
func (u ProfileUpdate) Empty() bool {
	return !u.Name.Set && !u.Phone.Set
}
