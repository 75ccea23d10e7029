package relay

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// DigestBuilder produces a daily activity summary for a session. An empty
// string means no activity, which suppresses the digest.
type DigestBuilder interface {
	BuildDailyDigest(sessionID string) (string, error)
}

// Daemon is the long-lived serve process. It connects a channel adapter,
// pumps inbound messages into the Relay, and fires the daily digest.
type Daemon struct {
	relay       *Relay
	digest      DigestBuilder
	digestCron  string
	out         io.Writer
	sendNotices bool
}

// DaemonOpts holds parameters for creating a Daemon.
type DaemonOpts struct {
	Relay      *Relay
	Digest     DigestBuilder // optional; disables the digest when nil
	DigestCron string        // 5-field cron expression; ignored when Digest is nil
	Out        io.Writer     // defaults to os.Stdout
	// SendNotices controls the online/offline messages to the operator.
	SendNotices bool
}

// NewDaemon creates a Daemon.
func NewDaemon(opts DaemonOpts) (*Daemon, error) {
	if opts.Relay == nil {
		return nil, fmt.Errorf("relay: daemon requires a relay")
	}
	if !opts.Relay.Forwarding() {
		return nil, fmt.Errorf("relay: daemon requires a configured operator")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Daemon{
		relay:       opts.Relay,
		digest:      opts.Digest,
		digestCron:  opts.DigestCron,
		out:         out,
		sendNotices: opts.SendNotices,
	}, nil
}

// Run connects the adapter and blocks until the context is cancelled,
// relaying every inbound message. On shutdown it closes the adapter.
func (d *Daemon) Run(ctx context.Context) error {
	adapter := d.relay.adapter

	fmt.Fprintf(d.out, "Heliograph connecting...\n")
	if err := adapter.Connect(ctx); err != nil {
		return fmt.Errorf("relay: connect: %w", err)
	}

	inbound, err := adapter.Listen(ctx)
	if err != nil {
		adapter.Close()
		return fmt.Errorf("relay: listen: %w", err)
	}

	if d.digest != nil && d.digestCron != "" {
		go d.runDigestScheduler(ctx)
	}

	fmt.Fprintf(d.out, "Heliograph online (session %s)\n", d.relay.sess.ID)
	if d.sendNotices {
		d.notify(ctx, fmt.Sprintf("📡 Heliograph online for <b>%s</b>", escapeHTML(d.relay.sess.ID)))
	}

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(d.out, "Heliograph shutting down...\n")
			if d.sendNotices {
				d.notify(context.Background(), "📴 Heliograph offline")
			}
			if err := adapter.Close(); err != nil {
				log.Printf("relay: close adapter: %v", err)
			}
			fmt.Fprintf(d.out, "Heliograph stopped\n")
			return nil

		case msg, ok := <-inbound:
			if !ok {
				fmt.Fprintf(d.out, "Heliograph inbound channel closed\n")
				return nil
			}
			d.relay.OnInboundMessage(ctx, msg)
		}
	}
}

// runDigestScheduler fires the daily digest on the configured cron schedule.
func (d *Daemon) runDigestScheduler(ctx context.Context) {
	wait := nextCronDuration(d.digestCron)
	if wait <= 0 {
		log.Printf("relay: invalid digest cron %q, digest disabled", d.digestCron)
		return
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			d.fireDigest(ctx)
			if wait := nextCronDuration(d.digestCron); wait > 0 {
				timer.Reset(wait)
			} else {
				return
			}
		}
	}
}

// fireDigest builds and sends one daily digest. No activity suppresses it.
func (d *Daemon) fireDigest(ctx context.Context) {
	body, err := d.digest.BuildDailyDigest(d.relay.sess.ID)
	if err != nil {
		log.Printf("relay: daily digest: %v", err)
		return
	}
	if body == "" {
		return
	}
	d.notify(ctx, body)
}

func (d *Daemon) notify(ctx context.Context, text string) {
	if err := d.relay.adapter.Send(ctx, outboundHTML(text)); err != nil {
		log.Printf("relay: send notice: %v", err)
	}
}
