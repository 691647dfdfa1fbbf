package mail

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	queueSize   = 64
	sendTimeout = 10 * time.Second
)

// Dispatcher queues outbound email and delivers it from a single worker
// goroutine. Delivery stays best-effort, but every failure is surfaced
// through the log (and the optional failure hook) rather than swallowed.
type Dispatcher struct {
	sender    Sender
	appURL    string
	queue     chan *Message
	wg        sync.WaitGroup
	closeOnce sync.Once
	onFailure func(msg *Message, err error)
}

type DispatcherOption func(*Dispatcher)

// WithFailureHandler installs a hook invoked after a delivery failure has
// been logged.
func WithFailureHandler(fn func(msg *Message, err error)) DispatcherOption {
	return func(d *Dispatcher) {
		if fn != nil {
			d.onFailure = fn
		}
	}
}

func NewDispatcher(sender Sender, appURL string, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		sender: sender,
		appURL: appURL,
		queue:  make(chan *Message, queueSize),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.wg.Add(1)
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for msg := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		err := d.sender.Send(ctx, msg)
		cancel()
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"to":      msg.To,
				"subject": msg.Subject,
			}).Error("failed to send email")
			if d.onFailure != nil {
				d.onFailure(msg, err)
			}
		}
	}
}

// Close stops accepting new messages and waits for the queue to drain.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.queue)
	})
	d.wg.Wait()
}

func (d *Dispatcher) enqueue(msg *Message) {
	select {
	case d.queue <- msg:
	default:
		logrus.WithFields(logrus.Fields{
			"to":      msg.To,
			"subject": msg.Subject,
		}).Warn("email queue full, message dropped")
		if d.onFailure != nil {
			d.onFailure(msg, context.DeadlineExceeded)
		}
	}
}

func (d *Dispatcher) SendWelcome(to, username string) {
	html, err := RenderWelcome(username)
	if err != nil {
		logrus.WithError(err).Error("failed to render welcome email")
		return
	}
	d.enqueue(&Message{To: to, Subject: "Welcome to Tivity!", HTML: html})
}

func (d *Dispatcher) SendEmailVerification(to, verifyToken string) {
	verifyURL := fmt.Sprintf("%s/verify-email?token=%s", d.appURL, url.QueryEscape(verifyToken))
	html, err := RenderVerifyEmail(verifyURL)
	if err != nil {
		logrus.WithError(err).Error("failed to render verification email")
		return
	}
	d.enqueue(&Message{To: to, Subject: "Verify Your Email", HTML: html})
}

func (d *Dispatcher) SendPasswordReset(to, resetToken string) {
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", d.appURL, url.QueryEscape(resetToken))
	html, err := RenderPasswordReset(resetURL)
	if err != nil {
		logrus.WithError(err).Error("failed to render reset password email")
		return
	}
	d.enqueue(&Message{To: to, Subject: "Reset Your Password", HTML: html})
}
