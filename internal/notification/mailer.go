package notification

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"sync"
)

// MailJob is one email to deliver.
type MailJob struct {
	To      string
	Subject string
	Body    string
}

type Worker struct {
	ID         int
	WorkerPool chan chan MailJob
	JobChannel chan MailJob
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan MailJob, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan MailJob),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(MailJob)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			w.WorkerPool <- w.JobChannel

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("worker sending mail", "worker_id", w.ID, "to", job.To)
				processFunc(job)
			case <-ctx.Done():
				w.Logger.Debug("mail worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

type Config struct {
	Host       string
	Port       int
	SenderName string
	Sender     string
	Password   string
	MaxWorkers int
	QueueSize  int
}

// Mailer delivers email through SMTP on a small worker pool. Enqueue never
// blocks the caller; a full queue drops the mail with a warning, since
// notification delivery is best effort.
type Mailer struct {
	config Config
	logger *slog.Logger

	jobQueue   chan MailJob
	workerPool chan chan MailJob
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once

	// sendFunc is swappable for tests
	sendFunc func(job MailJob) error
}

func NewMailer(config Config, logger *slog.Logger) *Mailer {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 5
	}
	queueSize := config.QueueSize
	if queueSize <= 0 {
		queueSize = 100
	}

	m := &Mailer{
		config:     config,
		logger:     logger,
		maxWorkers: maxWorkers,
		jobQueue:   make(chan MailJob, queueSize),
		workerPool: make(chan chan MailJob, maxWorkers),
		ctx:        ctx,
		cancel:     cancel,
	}
	m.sendFunc = m.sendSMTP

	m.startWorkerPool()

	return m
}

func (m *Mailer) startWorkerPool() {
	m.once.Do(func() {
		for i := 0; i < m.maxWorkers; i++ {
			worker := NewWorker(i, m.workerPool, m.logger)
			worker.Start(m.ctx, &m.wg, m.processMailJob)
		}

		go m.dispatch()

		m.logger.Info("mail worker pool started",
			"max_workers", m.maxWorkers,
			"queue_size", cap(m.jobQueue))
	})
}

func (m *Mailer) dispatch() {
	m.wg.Add(1)
	defer m.wg.Done()

	for {
		select {
		case job := <-m.jobQueue:
			select {
			case jobChannel := <-m.workerPool:
				select {
				case jobChannel <- job:
				case <-m.ctx.Done():
					return
				}
			case <-m.ctx.Done():
				return
			}
		case <-m.ctx.Done():
			return
		}
	}
}

func (m *Mailer) Shutdown() {
	m.logger.Info("shutting down mailer")
	m.cancel()
	m.wg.Wait()
	m.logger.Info("mailer shutdown complete")
}

// Enqueue queues a mail for delivery. Never blocks; drops when full.
func (m *Mailer) Enqueue(job MailJob) {
	select {
	case m.jobQueue <- job:
		m.logger.Debug("mail queued", "to", job.To, "subject", job.Subject, "queue_length", len(m.jobQueue))
	default:
		m.logger.Warn("mail queue full, dropping notification", "to", job.To, "subject", job.Subject)
	}
}

// SendPasswordReset delivers a fresh password synchronously so the caller
// can report whether the user actually received it.
func (m *Mailer) SendPasswordReset(email, name, newPassword string) error {
	body := fmt.Sprintf("Hi %s,\n\nYour password has been reset. Your new password is:\n\n%s\n\nPlease log in and change it as soon as possible.\n", name, newPassword)
	return m.sendFunc(MailJob{
		To:      email,
		Subject: "Your password has been reset",
		Body:    body,
	})
}

func (m *Mailer) processMailJob(job MailJob) {
	if err := m.sendFunc(job); err != nil {
		m.logger.Error("failed to send mail", "to", job.To, "subject", job.Subject, "error", err)
		return
	}
	m.logger.Info("mail sent", "to", job.To, "subject", job.Subject)
}

func (m *Mailer) sendSMTP(job MailJob) error {
	addr := fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", m.config.SenderName, m.config.Sender)
	fmt.Fprintf(&msg, "To: %s\r\n", job.To)
	fmt.Fprintf(&msg, "Subject: %s\r\n", job.Subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	msg.WriteString(job.Body)

	var auth smtp.Auth
	if m.config.Password != "" {
		auth = smtp.PlainAuth("", m.config.Sender, m.config.Password, m.config.Host)
	}

	return smtp.SendMail(addr, auth, m.config.Sender, []string{job.To}, []byte(msg.String()))
}
