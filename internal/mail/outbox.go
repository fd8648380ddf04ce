package mail

import (
	"context"
	"log"
	"sync"
)

// Outbox sends welcome emails on a fixed pool of background workers so a
// slow SMTP server does not hold up signups. Password reset emails go out
// synchronously because the caller must know whether delivery failed.
type Outbox struct {
	mailer *Mailer
	logger *log.Logger
	jobs   chan func()
	wg     sync.WaitGroup
	once   sync.Once

	mu     sync.Mutex
	closed bool
}

func NewOutbox(mailer *Mailer, workers int, logger *log.Logger) *Outbox {
	if workers < 1 {
		workers = 1
	}
	o := &Outbox{
		mailer: mailer,
		logger: logger,
		jobs:   make(chan func(), workers*2),
	}
	for i := 0; i < workers; i++ {
		go o.worker()
	}
	return o
}

func (o *Outbox) worker() {
	for job := range o.jobs {
		job()
		o.wg.Done()
	}
}

// enqueue reports false once Close has started; the job is not run.
func (o *Outbox) enqueue(job func()) bool {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return false
	}
	o.wg.Add(1)
	o.mu.Unlock()

	o.jobs <- job
	return true
}

// SendWelcome queues the welcome email and returns immediately. Emails
// arriving after Close are logged and dropped.
func (o *Outbox) SendWelcome(_ context.Context, to Recipient, url string) error {
	queued := o.enqueue(func() {
		if err := o.mailer.SendWelcome(context.Background(), to, url); err != nil {
			o.logger.Printf("welcome email to %s dropped: %v", to.Email, err)
		}
	})
	if !queued {
		o.logger.Printf("welcome email to %s dropped: outbox closed", to.Email)
	}
	return nil
}

func (o *Outbox) SendPasswordReset(ctx context.Context, to Recipient, url string) error {
	return o.mailer.SendPasswordReset(ctx, to, url)
}

// Close waits for queued emails and stops the workers.
func (o *Outbox) Close() {
	o.once.Do(func() {
		o.mu.Lock()
		o.closed = true
		o.mu.Unlock()
		o.wg.Wait()
		close(o.jobs)
	})
}
