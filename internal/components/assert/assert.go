package assert

import "fmt"

// NotNil panics when a required dependency was not provided, `name` is the
// name of the parameter as the caller knows it.
func NotNil(value any, name string) {
	if value == nil {
		panic(fmt.Sprintf("expected %s to be not nil", name))
	}
}
