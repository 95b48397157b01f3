package domains

import (
	"context"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/cdproto/network"
)

const domainNetwork = "Network"

// Network is the network observation domain.
type Network struct {
	caller Caller
	bus    Subscriber
}

// NewNetwork returns the Network domain bound to caller and bus.
func NewNetwork(caller Caller, bus Subscriber) *Network {
	return &Network{caller: caller, bus: bus}
}

// Enable starts network event reporting.
func (n *Network) Enable(ctx context.Context) error {
	return call(ctx, n.caller, domainNetwork, "enable", network.Enable(), nil)
}

// Disable stops network event reporting.
func (n *Network) Disable(ctx context.Context) error {
	return call(ctx, n.caller, domainNetwork, "disable", network.Disable(), nil)
}

// OnRequestWillBeSent subscribes to outgoing requests.
func (n *Network) OnRequestWillBeSent(fn func(*network.EventRequestWillBeSent)) func() {
	return subscribe(n.bus, string(cdproto.EventNetworkRequestWillBeSent), fn)
}

// OnResponseReceived subscribes to response headers.
func (n *Network) OnResponseReceived(fn func(*network.EventResponseReceived)) func() {
	return subscribe(n.bus, string(cdproto.EventNetworkResponseReceived), fn)
}

// OnLoadingFailed subscribes to failed requests.
func (n *Network) OnLoadingFailed(fn func(*network.EventLoadingFailed)) func() {
	return subscribe(n.bus, string(cdproto.EventNetworkLoadingFailed), fn)
}
