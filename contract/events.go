package contract

import (
	"context"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
)

// Event is one decoded contract log.
type Event struct {
	Name   string
	Fields map[string]interface{}
	Log    types.Log
}

// EventNames lists the events WatchEvents accepts.
func EventNames() []string {
	names := []string{}
	for _, e := range medchainABI.Events {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}

// WatchEvents streams the named contract event into sink until ctx is done
// or the subscription fails. Logs that fail to decode are skipped.
func (p *Proxy) WatchEvents(ctx context.Context, name string, sink chan<- Event) error {
	b, err := p.binding()
	if err != nil {
		return err
	}
	if _, found := p.abi.Events[name]; !found {
		return fmt.Errorf("unknown event %q, expected one of %v", name, EventNames())
	}
	logs, sub, err := b.contract.WatchLogs(&bind.WatchOpts{Context: ctx}, name)
	if err != nil {
		return fmt.Errorf("couldn't subscribe to %s: %w", name, err)
	}
	defer sub.Unsubscribe()

	for {
		select {
		case l := <-logs:
			fields := map[string]interface{}{}
			if err := b.contract.UnpackLogIntoMap(fields, name, l); err != nil {
				log.Warn("Couldn't decode contract log", "event", name, "tx", l.TxHash, "err", err)
				continue
			}
			select {
			case sink <- Event{Name: name, Fields: fields, Log: l}:
			case <-ctx.Done():
				return ctx.Err()
			}
		case err := <-sub.Err():
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
