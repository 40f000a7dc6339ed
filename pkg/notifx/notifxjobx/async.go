// Package notifxjobx moves outbound email off the request path and onto
// pkg/jobx. A login, invite, or password-reset handler only needs to know
// the mail was queued, not that SES answered in time.
package notifxjobx

import (
	"context"
	"encoding/json"

	"github.com/Abraxas-365/manifesto/pkg/jobx"
	"github.com/Abraxas-365/manifesto/pkg/notifx"
)

const JobType = "notifx:send_email"

// AsyncSender implements notifx.EmailSender by enqueueing the message
// instead of sending it inline. Pair it with RegisterHandler on the same
// jobx.Client that processes JobType so the mail actually goes out.
type AsyncSender struct {
	enqueuer jobx.JobEnqueuer
	queue    string
}

func NewAsyncSender(enqueuer jobx.JobEnqueuer, queue string) *AsyncSender {
	if queue == "" {
		queue = "default"
	}
	return &AsyncSender{enqueuer: enqueuer, queue: queue}
}

func (s *AsyncSender) SendEmail(ctx context.Context, msg notifx.EmailMessage, _ ...notifx.Option) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = s.enqueuer.Enqueue(ctx, jobx.Job{
		Type:    JobType,
		Queue:   s.queue,
		Payload: payload,
	})
	return err
}

// RegisterHandler wires the real provider's SendEmail as the jobx handler
// for JobType, so a worker goroutine performs the delivery a request
// handler only queued.
func RegisterHandler(client *jobx.Client, provider notifx.EmailSender) {
	client.Register(JobType, func(ctx context.Context, job *jobx.JobInfo) error {
		var msg notifx.EmailMessage
		if err := json.Unmarshal(job.Payload, &msg); err != nil {
			return err
		}
		return provider.SendEmail(ctx, msg)
	})
}
