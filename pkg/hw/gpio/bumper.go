package gpio

import (
	"context"
	"sync"
	"time"

	"periph.io/x/periph/conn/gpio"

	"github.com/robotalks/linebot/pkg/bump"
)

// DefaultEdgeTimeout bounds a single edge wait so Watch notices a done
// context.
const DefaultEdgeTimeout = 50 * time.Millisecond

// Bumper reads the collision switches, pulled up and low when pressed.
// It implements bump.Switches.
type Bumper struct {
	Switches    [bump.NumSwitches]gpio.PinIO
	EdgeTimeout time.Duration
}

// Init configures the switch pins.
func (b *Bumper) Init() error {
	for _, p := range b.Switches {
		if err := p.In(gpio.PullUp, gpio.BothEdges); err != nil {
			return err
		}
	}
	return nil
}

// Read implements bump.Switches.
func (b *Bumper) Read() (bump.Mask, error) {
	var m bump.Mask
	for n, p := range b.Switches {
		if p.Read() == gpio.Low {
			m |= 1 << uint(n)
		}
	}
	return m, nil
}

// Watch implements bump.Switches.
func (b *Bumper) Watch(ctx context.Context, fn func(bump.Mask)) error {
	timeout := b.EdgeTimeout
	if timeout == 0 {
		timeout = DefaultEdgeTimeout
	}
	edgeCh := make(chan struct{}, 1)
	var wg sync.WaitGroup
	for _, p := range b.Switches {
		wg.Add(1)
		go func(p gpio.PinIn) {
			defer wg.Done()
			for ctx.Err() == nil {
				if !p.WaitForEdge(timeout) {
					continue
				}
				select {
				case edgeCh <- struct{}{}:
				default:
				}
			}
		}(p)
	}
	defer wg.Wait()

	last, err := b.Read()
	if err != nil {
		return err
	}
	fn(last)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-edgeCh:
			m, err := b.Read()
			if err != nil {
				return err
			}
			if m != last {
				last = m
				fn(m)
			}
		}
	}
}
