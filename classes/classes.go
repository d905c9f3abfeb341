// Package classes holds the demonstration classes served by objbridge.
package classes

import (
	"github.com/wippyai/objbridge/dispatch"
)

// Module builds a dispatch module serving every demonstration class.
func Module(opts ...dispatch.Option) (*dispatch.Module, error) {
	counter, err := dispatch.New(CounterClass(), opts...)
	if err != nil {
		return nil, err
	}
	demo, err := dispatch.New(DemoClass(), opts...)
	if err != nil {
		return nil, err
	}
	return dispatch.NewModule(counter, demo)
}
