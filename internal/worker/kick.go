// Package worker contains the background processes: the dispatcher that
// drains due EmailSends, the reply processor that ingests inbound messages,
// and the reply sender that delivers approved responses. All of them poll on
// fixed timers; Redis kicks only make a cycle start sooner.
package worker

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// kickQueueKey is the Redis list the API pushes cycle triggers onto.
const kickQueueKey = "outreach:kicks"

// Kick kinds.
const (
	KickDispatch = "dispatch"
	KickReplies  = "replies"
)

// Kicker publishes cycle triggers. It fills the role the original task
// broker played: "run a cycle now" after a campaign launch or an approval,
// instead of waiting out the timer. A nil client makes every kick a no-op —
// the timers still guarantee progress.
type Kicker struct {
	client *redis.Client
}

// NewKicker creates a kicker. client may be nil.
func NewKicker(client *redis.Client) *Kicker {
	return &Kicker{client: client}
}

// Kick requests an immediate cycle of the given kind. Failures are logged
// and swallowed: a lost kick only delays work until the next timer tick.
func (k *Kicker) Kick(ctx context.Context, kind string) {
	if k.client == nil {
		return
	}
	if err := k.client.LPush(ctx, kickQueueKey, kind).Err(); err != nil {
		log.Printf("[Kicker] Failed to push %s kick: %v", kind, err)
	}
}

// KickListener pops kicks off the Redis list and fans them out to the
// matching worker's wake channel.
type KickListener struct {
	client   *redis.Client
	Dispatch chan struct{}
	Replies  chan struct{}

	cancel context.CancelFunc
	done   chan struct{}
}

// NewKickListener creates a listener. client may be nil, in which case
// Start is a no-op and the channels simply never fire.
func NewKickListener(client *redis.Client) *KickListener {
	return &KickListener{
		client:   client,
		Dispatch: make(chan struct{}, 1),
		Replies:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Start begins consuming kicks until Stop is called.
func (l *KickListener) Start() {
	if l.client == nil {
		close(l.done)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel

	go func() {
		defer close(l.done)
		for {
			result, err := l.client.BRPop(ctx, 5*time.Second, kickQueueKey).Result()
			if ctx.Err() != nil {
				return
			}
			if err == redis.Nil {
				continue
			}
			if err != nil {
				log.Printf("[KickListener] BRPOP error: %v", err)
				time.Sleep(time.Second)
				continue
			}
			if len(result) != 2 {
				continue
			}

			switch result[1] {
			case KickDispatch:
				wake(l.Dispatch)
			case KickReplies:
				wake(l.Replies)
			default:
				log.Printf("[KickListener] Unknown kick kind %q", result[1])
			}
		}
	}()
}

// Stop shuts the listener down and waits for the consumer to exit.
func (l *KickListener) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
	<-l.done
}

// wake signals a channel without blocking; a pending wake already covers it.
func wake(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
