package adapter

import (
	"fmt"

	"github.com/rbaliyan/eventtree"
)

func (s *Surface) bind(op Op) Method {
	var fn Method
	switch op {
	case OpAttach:
		fn = s.attach
	case OpDetach:
		fn = s.detach
	case OpHasEvent:
		fn = s.hasEvent
	case OpInvoke:
		fn = s.invoke
	case OpRegister:
		fn = s.register
	case OpRegisterList:
		fn = s.registerList
	case OpDeregister:
		fn = s.deregister
	case OpDestroy:
		return func(args ...any) (any, error) {
			return nil, s.destroy()
		}
	}
	return func(args ...any) (any, error) {
		if s.destroyed {
			return nil, fmt.Errorf("%w: %s", ErrDestroyed, op)
		}
		return fn(args...)
	}
}

// attach(name, [options...], handler) returns the attached *eventtree.Handler,
// nil when nothing was attached
func (s *Surface) attach(args ...any) (any, error) {
	name, rest, err := eventName(OpAttach, args)
	if err != nil {
		return nil, err
	}
	h, opts, err := listenerArgs(OpAttach, rest)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, fmt.Errorf("%w: %s needs a handler", ErrBadArguments, OpAttach)
	}
	// a failure consumed by an error handler leaves the count unchanged
	before := s.manager.Listeners(name)
	if err := s.manager.Attach(name, h, opts...); err != nil {
		return nil, err
	}
	if s.manager.Listeners(name) == before {
		return nil, nil
	}
	return h, nil
}

// detach(name, [options...], [handler]) returns a bool
func (s *Surface) detach(args ...any) (any, error) {
	name, rest, err := eventName(OpDetach, args)
	if err != nil {
		return nil, err
	}
	h, opts, err := listenerArgs(OpDetach, rest)
	if err != nil {
		return nil, err
	}
	return s.manager.Detach(name, h, opts...), nil
}

// hasEvent(name) returns a bool
func (s *Surface) hasEvent(args ...any) (any, error) {
	name, _, err := eventName(OpHasEvent, args)
	if err != nil {
		return nil, err
	}
	return s.manager.HasEvent(name), nil
}

// invoke(name, args...) returns a bool
func (s *Surface) invoke(args ...any) (any, error) {
	name, rest, err := eventName(OpInvoke, args)
	if err != nil {
		return nil, err
	}
	return s.manager.Invoke(name, rest...)
}

// register(name) returns an eventtree.Invoker
func (s *Surface) register(args ...any) (any, error) {
	name, _, err := eventName(OpRegister, args)
	if err != nil {
		return nil, err
	}
	inv, err := s.manager.Register(name)
	if inv == nil {
		return nil, err
	}
	return inv, err
}

// registerList(names or name groups...)
func (s *Surface) registerList(args ...any) (any, error) {
	var names []string
	for _, arg := range args {
		switch v := arg.(type) {
		case string:
			names = append(names, v)
		case []string:
			names = append(names, v...)
		default:
			return nil, fmt.Errorf("%w: %s takes names or name groups, got %T", ErrBadArguments, OpRegisterList, arg)
		}
	}
	return nil, s.manager.RegisterList(names...)
}

// deregister(name)
func (s *Surface) deregister(args ...any) (any, error) {
	name, _, err := eventName(OpDeregister, args)
	if err != nil {
		return nil, err
	}
	s.manager.Deregister(name)
	return nil, nil
}

func eventName(op Op, args []any) (string, []any, error) {
	if len(args) == 0 {
		return "", nil, fmt.Errorf("%w: %s needs an event name", ErrBadArguments, op)
	}
	name, ok := args[0].(string)
	if !ok {
		return "", nil, fmt.Errorf("%w: %s event name must be a string, got %T", ErrBadArguments, op, args[0])
	}
	return name, args[1:], nil
}

// listenerArgs accepts listener options in any position and at most one handler
func listenerArgs(op Op, args []any) (*eventtree.Handler, []eventtree.ListenerOption, error) {
	var h *eventtree.Handler
	var opts []eventtree.ListenerOption
	setHandler := func(v *eventtree.Handler) error {
		if h != nil {
			return fmt.Errorf("%w: %s takes one handler", ErrBadArguments, op)
		}
		h = v
		return nil
	}
	for _, arg := range args {
		var err error
		switch v := arg.(type) {
		case *eventtree.Handler:
			err = setHandler(v)
		case eventtree.HandlerFunc:
			err = setHandler(eventtree.NewHandler(v))
		case func(*eventtree.Invocation, ...any):
			err = setHandler(eventtree.NewHandler(v))
		case eventtree.ListenerOptions:
			opts = append(opts, eventtree.WithOptions(v))
		case eventtree.ListenerOption:
			opts = append(opts, v)
		case []eventtree.ListenerOption:
			opts = append(opts, v...)
		default:
			err = fmt.Errorf("%w: %s got %T", ErrBadArguments, op, arg)
		}
		if err != nil {
			return nil, nil, err
		}
	}
	return h, opts, nil
}
