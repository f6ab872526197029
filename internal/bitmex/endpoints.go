package bitmex

import (
	"fmt"

	"github.com/gr-satt/bordem/internal/ports"
)

// Operation is a symbolic name for one supported exchange API call.
type Operation string

const (
	OpTradeBucketed  Operation = "trade.bucketed"
	OpWallet         Operation = "user.wallet"
	OpPosition       Operation = "position"
	OpInstrument     Operation = "instrument"
	OpOrder          Operation = "order"
	OpOrderBulk      Operation = "order.bulk"
	OpOrderCancelAll Operation = "order.cancel_all"
)

// Endpoint pairs an HTTP verb with a URL path suffix relative to the base URL.
type Endpoint struct {
	Verb string
	Path string
}

// endpoints is the static dispatch table. Adding an operation is purely
// additive: a new constant and a new entry, no code change elsewhere.
var endpoints = map[Operation]Endpoint{
	OpTradeBucketed:  {Verb: "GET", Path: "/trade/bucketed"},
	OpWallet:         {Verb: "GET", Path: "/user/wallet"},
	OpPosition:       {Verb: "GET", Path: "/position"},
	OpInstrument:     {Verb: "GET", Path: "/instrument"},
	OpOrder:          {Verb: "POST", Path: "/order"},
	OpOrderBulk:      {Verb: "POST", Path: "/order/bulk"},
	OpOrderCancelAll: {Verb: "DELETE", Path: "/order/all"},
}

// Resolve looks up the endpoint descriptor for an operation.
func Resolve(op Operation) (Endpoint, error) {
	ep, ok := endpoints[op]
	if !ok {
		return Endpoint{}, fmt.Errorf("%w: %q", ports.ErrUnknownEndpoint, op)
	}
	return ep, nil
}

// Operations returns the names of all supported operations.
func Operations() []Operation {
	ops := make([]Operation, 0, len(endpoints))
	for op := range endpoints {
		ops = append(ops, op)
	}
	return ops
}
