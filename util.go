package eventtree

import (
	"reflect"
	"runtime"
	"strings"

	"github.com/google/uuid"
)

// NewID returns a new unique id
func NewID() string {
	return uuid.NewString()
}

// funcName returns the short name of fn, e.g. "pkg.(*T).Method"
func funcName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	details := runtime.FuncForPC(v.Pointer())
	if details == nil {
		return ""
	}
	name := details.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}
