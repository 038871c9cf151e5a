// Package discovery advertises this instance over mDNS so control
// clients can find it without a configured address, using
// github.com/brutella/dnssd in place of the teacher's dns_sd.go (which
// announces the AGWPE/KISS network service the same way, over Bonjour).
// The control protocol itself is out of scope here; this package only
// announces that a service exists at a given host:port.
package discovery

import (
	"context"
	"fmt"

	"github.com/brutella/dnssd"
	"github.com/doismellburning/ssrender/internal/xerr"
)

// ServiceType is the mDNS service type this module advertises under.
const ServiceType = "_ssrender._tcp"

// Advertiser runs one mDNS responder advertising one service instance
// until Close.
type Advertiser struct {
	responder dnssd.Responder
	handle    dnssd.ServiceHandle
	cancel    context.CancelFunc
	done      chan struct{}
}

// Advertise starts advertising name at host:port. The advertisement
// runs on its own goroutine until Close is called.
func Advertise(name, host string, port int) (*Advertiser, error) {
	cfg := dnssd.Config{
		Name: name,
		Type: ServiceType,
		Host: host,
		Port: port,
	}
	service, err := dnssd.NewService(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: build mdns service: %w", xerr.ErrFatal, err)
	}

	responder, err := dnssd.NewResponder()
	if err != nil {
		return nil, fmt.Errorf("%w: build mdns responder: %w", xerr.ErrFatal, err)
	}

	handle, err := responder.Add(service)
	if err != nil {
		return nil, fmt.Errorf("%w: register mdns service: %w", xerr.ErrFatal, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &Advertiser{
		responder: responder,
		handle:    handle,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	go func() {
		defer close(a.done)
		_ = responder.Respond(ctx)
	}()

	return a, nil
}

// Close withdraws the advertisement and stops the responder goroutine.
func (a *Advertiser) Close() {
	a.responder.Remove(a.handle)
	a.cancel()
	<-a.done
}
