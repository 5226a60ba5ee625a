package fault

import "reflect"

// MaxCauseDepth bounds every walk along a failure's cause chain.
const MaxCauseDepth = 32

// Walk visits err and its causes depth first, in the order errors.As would,
// until visit returns false. It follows both Unwrap() error and
// Unwrap() []error, never visits the same failure twice, and never goes
// deeper than MaxCauseDepth.
func Walk(err error, visit func(error) bool) {
	seen := make(map[uintptr]struct{})
	walk(err, 0, seen, visit)
}

func walk(err error, depth int, seen map[uintptr]struct{}, visit func(error) bool) bool {
	if err == nil || depth > MaxCauseDepth {
		return true
	}
	if id, ok := Identity(err); ok {
		if _, dup := seen[id]; dup {
			return true
		}
		seen[id] = struct{}{}
	}
	if !visit(err) {
		return false
	}

	switch u := err.(type) {
	case interface{ Unwrap() error }:
		return walk(u.Unwrap(), depth+1, seen, visit)
	case interface{ Unwrap() []error }:
		for _, e := range u.Unwrap() {
			if !walk(e, depth+1, seen, visit) {
				return false
			}
		}
	}
	return true
}

// As is errors.As over a bounded walk: it finds the first failure in err's
// chain assignable to the value target points to and sets target to it.
// target must be a non-nil pointer.
func As(err error, target any) bool {
	val := reflect.ValueOf(target)
	if val.Kind() != reflect.Pointer || val.IsNil() {
		panic("fault: target must be a non-nil pointer")
	}
	want := val.Type().Elem()

	found := false
	Walk(err, func(e error) bool {
		if reflect.TypeOf(e).AssignableTo(want) {
			val.Elem().Set(reflect.ValueOf(e))
			found = true
			return false
		}
		if x, ok := e.(interface{ As(any) bool }); ok && x.As(target) {
			found = true
			return false
		}
		return true
	})
	return found
}

// Identity returns the address behind pointer-shaped errors. Value errors
// have no stable identity and are only bounded by depth.
func Identity(err error) (uintptr, bool) {
	v := reflect.ValueOf(err)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return 0, false
	}
	return v.Pointer(), true
}

// Underlying strips the layers that only annotate a failure (a status code,
// an exit code, a recovered panic carrying an error) and returns the failure
// underneath.
func Underlying(err error) error {
	for range MaxCauseDepth {
		switch e := err.(type) {
		case *statusError:
			err = e.err
		case *exitError:
			err = e.err
		case *Panic:
			inner, ok := e.Value.(error)
			if !ok || inner == nil {
				return err
			}
			err = inner
		default:
			return err
		}
	}
	return err
}
