package jsonsocket

import (
	"errors"
	"reflect"
)

// Reserved event names. Listeners for these events receive the listed
// arguments; listeners may declare fewer parameters than supplied.
const (
	EventText    = "text"    // func(text string)
	EventBinary  = "binary"  // func(data []byte)
	EventMessage = "message" // func(msg any)
	EventError   = "error"   // func(err error)
	EventClose   = "close"   // func()
	EventTimeout = "timeout" // func()
	// EventConnection is emitted by Server for each accepted socket.
	EventConnection = "connection" // func(s *JSONSocket)
)

// MessageHandler is a listener for EventMessage. msg is the decoded JSON value:
// map[string]any, []any, string, float64 or true.
type MessageHandler func(msg any)

// FaultHandler receives inbound faults such as *InvalidJSONError.
type FaultHandler func(err error)

var (
	errNotFunc      = errors.New("handler is not a function")
	errTooManyArgs  = errors.New("handler expects more arguments than the event supplies")
	errArgMismatch  = errors.New("argument type mismatch")
	errVariadicFunc = errors.New("variadic handlers are not supported")
)

// Calls the handler function with the given arguments. Arguments beyond the
// handler's parameter count are dropped. Values returned by the handler are
// discarded.
func callHandler(handler any, arguments []any) error {
	handlerV := reflect.ValueOf(handler)
	if !handlerV.IsValid() || handlerV.Kind() != reflect.Func || handlerV.IsNil() {
		return errNotFunc
	}
	handlerT := handlerV.Type()
	if handlerT.IsVariadic() {
		return errVariadicFunc
	}
	if handlerT.NumIn() > len(arguments) {
		return errTooManyArgs
	}

	// Convert arguments to a slice of reflect.Value
	ins := make([]reflect.Value, handlerT.NumIn())
	for i := range ins {
		argV, err := convertArgument(arguments[i], handlerT.In(i))
		if err != nil {
			return err
		}
		ins[i] = argV
	}

	handlerV.Call(ins)
	return nil
}

// convertArgument converts arg to a value assignable to a parameter of type
// paramT.
func convertArgument(arg any, paramT reflect.Type) (reflect.Value, error) {
	if arg == nil {
		switch paramT.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice,
			reflect.Func, reflect.Chan:
			return reflect.Zero(paramT), nil
		}
		return reflect.Value{}, errArgMismatch
	}

	argV := reflect.ValueOf(arg)
	argT := argV.Type()
	if argT.AssignableTo(paramT) {
		return argV, nil
	}
	if isNumeric(argT.Kind()) && isNumeric(paramT.Kind()) {
		return argV.Convert(paramT), nil
	}
	if argT.Kind() == reflect.String && paramT.Kind() == reflect.String {
		return argV.Convert(paramT), nil
	}
	if argT.Kind() == reflect.Slice && paramT.Kind() == reflect.Slice {
		// If both are slices, we can try to convert each element
		out := reflect.MakeSlice(paramT, argV.Len(), argV.Len())
		for j := 0; j < argV.Len(); j++ {
			elemV, err := convertArgument(argV.Index(j).Interface(), paramT.Elem())
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(j).Set(elemV)
		}
		return out, nil
	}
	return reflect.Value{}, errArgMismatch
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Uint64, reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
