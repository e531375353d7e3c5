// Package heart implements a general-purpose pacemaker: a ticker that
// calls a pacing function on a fixed interval and declares the connection
// dead if too many beats go unacknowledged. The gateway and voice
// connections each drive their own Pacemaker from a dedicated goroutine.
package heart

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ErrDead is returned by Run when the peer has missed too many
// acknowledgements in a row.
var ErrDead = errors.New("heartbeat: no ack received in time")

// atomicTime is a thread-safe UnixNano timestamp.
type atomicTime struct{ nanos int64 }

func (t *atomicTime) set(v time.Time) { atomic.StoreInt64(&t.nanos, v.UnixNano()) }
func (t *atomicTime) get() int64      { return atomic.LoadInt64(&t.nanos) }
func (t *atomicTime) time() time.Time { return time.Unix(0, t.get()) }

// Pacemaker ticks every Rate and calls Pace; Pace is expected to send a
// heartbeat and return promptly. The caller notifies acknowledgement via
// Echo from whatever goroutine observes the ack frame.
type Pacemaker struct {
	Rate time.Duration
	Pace func(context.Context) error
	Log  zerolog.Logger

	sentBeat atomicTime
	echoBeat atomicTime
}

// NewPacemaker constructs a Pacemaker with the given rate and pacer. The
// echo clock starts at construction time so a peer that never acks is
// judged against how long the pacemaker has been running, not against the
// zero time.
func NewPacemaker(rate time.Duration, pace func(context.Context) error) *Pacemaker {
	p := &Pacemaker{Rate: rate, Pace: pace, Log: zerolog.Nop()}
	p.echoBeat.set(time.Now())
	return p
}

// Echo records that an acknowledgement was just received.
func (p *Pacemaker) Echo() {
	p.echoBeat.set(time.Now())
}

// SentBeat returns the time of the last sent heartbeat.
func (p *Pacemaker) SentBeat() time.Time { return p.sentBeat.time() }

// EchoBeat returns the time of the last received acknowledgement.
func (p *Pacemaker) EchoBeat() time.Time { return p.echoBeat.time() }

// Dead reports whether two full beat intervals have elapsed since the last
// acknowledgement, relative to the last sent beat.
func (p *Pacemaker) Dead() bool {
	sent := p.sentBeat.get()
	if sent == 0 {
		return false
	}
	return sent-p.echoBeat.get() > int64(2*p.Rate)
}

// Run blocks, beating at Rate until ctx is cancelled, Pace returns an
// error, or the peer is declared Dead. It returns ErrDead in the latter
// case and ctx.Err() when cancelled.
func (p *Pacemaker) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.Rate)
	defer ticker.Stop()

	if err := p.beat(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.beat(ctx); err != nil {
				return err
			}
		}
	}
}

func (p *Pacemaker) beat(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, p.Rate)
	defer cancel()

	if err := p.Pace(ctx); err != nil {
		return errors.Wrap(err, "heartbeat: failed to pace")
	}

	p.sentBeat.set(time.Now())

	if p.Dead() {
		p.Log.Warn().Msg("heartbeat: peer missed too many acks, declaring dead")
		return ErrDead
	}

	return nil
}
