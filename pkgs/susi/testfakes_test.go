package susi

import "github.com/keskad/trackctl/pkgs/hal"

// fakeDataPin is an open-drain line: SetLow releases it (the external
// pull-up then reads back high unless `external` is set), SetHigh actively pulls it
// down. Tests can also poke `external` directly to simulate a peer driving
// the line (e.g. a slave asserting ACK).
type fakeDataPin struct {
	pulledDown bool
	external   bool // what a peer is currently asserting, when we've released
}

func (p *fakeDataPin) SetLow() error {
	p.pulledDown = false
	return nil
}

func (p *fakeDataPin) SetHigh() error {
	p.pulledDown = true
	return nil
}

func (p *fakeDataPin) IsHigh() (bool, error) {
	if p.pulledDown {
		return false, nil
	}
	return !p.external, nil
}

type fakeOutPin struct {
	high bool
}

func (p *fakeOutPin) SetLow() error {
	p.high = false
	return nil
}

func (p *fakeOutPin) SetHigh() error {
	p.high = true
	return nil
}

type fakeInPin struct {
	high bool
}

func (p *fakeInPin) IsHigh() (bool, error) {
	return p.high, nil
}

type fakeTimer struct {
	remaining uint32
}

func (t *fakeTimer) Start(microseconds uint32) {
	t.remaining = microseconds
}

func (t *fakeTimer) Wait() error {
	if t.remaining > 0 {
		return hal.ErrWouldBlock
	}
	return nil
}

func (t *fakeTimer) Advance(microseconds uint32) {
	if microseconds >= t.remaining {
		t.remaining = 0
	} else {
		t.remaining -= microseconds
	}
}
