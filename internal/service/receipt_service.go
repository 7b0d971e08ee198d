package service

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/jorgejloo/educativo-api/internal/models"
	appErrors "github.com/jorgejloo/educativo-api/pkg/errors"
	"github.com/jorgejloo/educativo-api/pkg/jobs"
	"github.com/jorgejloo/educativo-api/pkg/receipt"
	"github.com/jorgejloo/educativo-api/pkg/storage"
)

// ReceiptService renders payment receipts as PDF, stores them and hands
// out signed download tokens. Rendering happens on a background queue;
// the token is valid as soon as it is issued because it references the
// path, not the file contents.
type ReceiptService struct {
	renderer *receipt.Renderer
	store    *storage.LocalStorage
	signer   *storage.SignedURLSigner
	queue    *jobs.Queue
	logger   *zap.Logger
}

// NewReceiptService constructs ReceiptService. Call Start before issuing
// receipts and Stop on shutdown.
func NewReceiptService(renderer *receipt.Renderer, store *storage.LocalStorage, signer *storage.SignedURLSigner, logger *zap.Logger) *ReceiptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ReceiptService{renderer: renderer, store: store, signer: signer, logger: logger}
	s.queue = jobs.NewQueue("receipts", s.renderJob, jobs.QueueConfig{
		Workers: 2,
		Logger:  logger,
	})
	return s
}

// Start launches the render workers.
func (s *ReceiptService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the render workers.
func (s *ReceiptService) Stop() {
	s.queue.Stop()
}

// Issue schedules receipt rendering for a payment and returns a signed
// download token. The render falls back to the caller's goroutine when
// the queue is unavailable.
func (s *ReceiptService) Issue(ctx context.Context, payment *models.PaymentDetail) (string, error) {
	if payment == nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "payment is required")
	}

	doc := receipt.Document{
		PaymentID:        payment.ID,
		PaidAt:           payment.CreatedAt,
		StudentName:      payment.StudentName,
		StudentDocument:  payment.StudentDocument,
		StudentPhone:     payment.StudentPhone,
		DebtConcept:      payment.DebtConcept,
		Method:           payment.Method,
		Amount:           payment.Amount,
		RemainingBalance: payment.RemainingBalance,
	}

	relPath := s.relPath(payment.ID)
	token, expiresAt, err := s.signer.Generate(payment.ID, relPath)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign receipt token")
	}

	job := jobs.Job{ID: payment.ID, Type: "render_receipt", Payload: doc}
	if err := s.queue.Enqueue(job); err != nil {
		if err := s.renderAndStore(doc); err != nil {
			return "", err
		}
	}

	s.logger.Info("receipt issued",
		zap.String("payment_id", payment.ID),
		zap.String("path", relPath),
		zap.Time("expires_at", expiresAt))

	return token, nil
}

// Download validates a signed token and returns a reader over the stored
// receipt along with a suggested filename.
func (s *ReceiptService) Download(ctx context.Context, token string) (io.ReadCloser, string, error) {
	paymentID, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired receipt link")
	}

	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "receipt not found")
	}
	return file, fmt.Sprintf("recibo-%s.pdf", paymentID), nil
}

func (s *ReceiptService) renderJob(ctx context.Context, job jobs.Job) error {
	doc, ok := job.Payload.(receipt.Document)
	if !ok {
		return fmt.Errorf("unexpected payload for job %s", job.ID)
	}
	return s.renderAndStore(doc)
}

func (s *ReceiptService) renderAndStore(doc receipt.Document) error {
	data, err := s.renderer.Render(doc)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}
	if _, err := s.store.Save(s.relPath(doc.PaymentID), data); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store receipt")
	}
	return nil
}

func (s *ReceiptService) relPath(paymentID string) string {
	return fmt.Sprintf("recibo-%s.pdf", paymentID)
}
