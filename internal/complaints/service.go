package complaints

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"garagist/internal/classifier"
)

// Service classifies incoming complaints and stores them. Classification
// problems never block complaint creation; the fallback category is used
// instead.
type Service struct {
	repo Repo
	clf  *classifier.Classifier
	log  *zap.SugaredLogger
}

func NewService(repo Repo, clf *classifier.Classifier, log *zap.SugaredLogger) *Service {
	return &Service{repo: repo, clf: clf, log: log}
}

const minComplaintLength = 10

// Submit classifies and stores a complaint for an existing car.
func (s *Service) Submit(ctx context.Context, carID int64, text string, crash, fire bool) (*Complaint, error) {
	c, err := s.classified(carID, text, crash, fire)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("store complaint: %w", err)
	}
	s.log.Infow("complaint classified",
		"complaint_id", c.ID, "category", c.Category, "confidence", c.Confidence)
	return c, nil
}

// SubmitQuick registers a first-time complaint together with its customer
// and car. The store owns the transaction boundary.
func (s *Service) SubmitQuick(ctx context.Context, q QuickSubmit) (*Complaint, error) {
	if strings.TrimSpace(q.CustomerName) == "" {
		return nil, fmt.Errorf("%w: customer_name is required", ErrInvalid)
	}
	if q.CustomerEmail == "" && q.CustomerPhone == "" {
		return nil, fmt.Errorf("%w: at least one of customer_email or customer_phone must be provided", ErrInvalid)
	}
	if strings.TrimSpace(q.LicensePlate) == "" {
		return nil, fmt.Errorf("%w: license_plate is required", ErrInvalid)
	}

	c, err := s.classified(0, q.Text, q.Crash, q.Fire)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.QuickSubmitTx(ctx, q, c)
	if err != nil {
		return nil, fmt.Errorf("quick submit: %w", err)
	}
	s.log.Infow("quick complaint submitted",
		"complaint_id", created.ID, "car_id", created.CarID, "category", created.Category)
	return created, nil
}

func (s *Service) classified(carID int64, text string, crash, fire bool) (*Complaint, error) {
	if len(strings.TrimSpace(text)) < minComplaintLength {
		return nil, fmt.Errorf("%w: complaint text must be at least %d characters", ErrInvalid, minComplaintLength)
	}

	pred := s.clf.Predict(text, crash, fire)
	category := Category(pred.Category)
	if !category.Valid() {
		s.log.Warnw("classifier returned unknown category, falling back",
			"category", pred.Category)
		category = CategoryEngine
	}

	return &Complaint{
		CarID:       carID,
		Text:        text,
		CleanedText: pred.CleanedText,
		Category:    category,
		Confidence:  pred.Confidence,
		Crash:       crash,
		Fire:        fire,
		Status:      StatusNew,
	}, nil
}
