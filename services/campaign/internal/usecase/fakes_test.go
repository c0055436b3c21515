package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"mao-amiga/pkg/logger"
	"mao-amiga/pkg/queue"
	"mao-amiga/services/campaign/internal/entity"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var errDatabaseDown = errors.New("database is down")

type fakeCampaignRepo struct {
	mu         sync.Mutex
	campaigns  map[string]*entity.Campaign
	supporters []entity.Supporter
	profiles   map[string]*entity.Profile

	createErr          error
	updateErr          error
	createSupporterErr error
	recalcFailures     int
	recalcCalls        int

	// beforeCreateSupporter runs between the usecase's status read and
	// the guarded insert.
	beforeCreateSupporter func()
}

func newFakeCampaignRepo() *fakeCampaignRepo {
	return &fakeCampaignRepo{
		campaigns: map[string]*entity.Campaign{},
		profiles:  map[string]*entity.Profile{},
	}
}

func (r *fakeCampaignRepo) Create(_ context.Context, campaign *entity.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if campaign.ID == "" {
		campaign.ID = uuid.NewString()
	}
	stored := *campaign
	r.campaigns[campaign.ID] = &stored
	return nil
}

func (r *fakeCampaignRepo) GetByID(_ context.Context, id string) (*entity.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *fakeCampaignRepo) Update(_ context.Context, campaign *entity.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	stored, ok := r.campaigns[campaign.ID]
	if !ok {
		return entity.ErrNotFound
	}
	stored.Title = campaign.Title
	stored.Description = campaign.Description
	stored.Goal = campaign.Goal
	stored.PixKey = campaign.PixKey
	stored.BeneficiaryName = campaign.BeneficiaryName
	stored.ImageURL = campaign.ImageURL
	stored.UpdatedAt = campaign.UpdatedAt
	return nil
}

func (r *fakeCampaignRepo) UpdateStatus(_ context.Context, id string, status entity.CampaignStatus, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.campaigns[id]
	if !ok {
		return entity.ErrNotFound
	}
	stored.Status = status
	stored.UpdatedAt = updatedAt
	return nil
}

func (r *fakeCampaignRepo) DeleteWithSupporters(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.campaigns[id]; !ok {
		return entity.ErrNotFound
	}
	delete(r.campaigns, id)
	kept := r.supporters[:0]
	for _, s := range r.supporters {
		if s.CampaignID != id {
			kept = append(kept, s)
		}
	}
	r.supporters = kept
	return nil
}

func (r *fakeCampaignRepo) ListPublic(_ context.Context, searchTerm string, limit int) ([]*entity.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Campaign
	for _, c := range r.sorted() {
		if c.Status != entity.StatusActive {
			continue
		}
		if searchTerm != "" && !containsFolded(c.Title, searchTerm) && !containsFolded(c.Description, searchTerm) {
			continue
		}
		out = append(out, c)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeCampaignRepo) ListByCreator(_ context.Context, creatorID string) ([]*entity.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Campaign
	for _, c := range r.sorted() {
		if c.CreatorID == creatorID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeCampaignRepo) GetProfile(_ context.Context, userID string) (*entity.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.profiles[userID], nil
}

func (r *fakeCampaignRepo) CreateSupporter(_ context.Context, supporter *entity.Supporter) error {
	if r.beforeCreateSupporter != nil {
		r.beforeCreateSupporter()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createSupporterErr != nil {
		return r.createSupporterErr
	}
	stored, ok := r.campaigns[supporter.CampaignID]
	if !ok {
		return entity.ErrNotFound
	}
	if stored.Status != entity.StatusActive {
		return entity.ErrCampaignClosed
	}
	if supporter.ID == "" {
		supporter.ID = uuid.NewString()
	}
	r.supporters = append(r.supporters, *supporter)
	return nil
}

func (r *fakeCampaignRepo) ListSupporters(_ context.Context, campaignID string, limit int) ([]entity.Supporter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Supporter
	for i := len(r.supporters) - 1; i >= 0; i-- {
		if r.supporters[i].CampaignID == campaignID {
			out = append(out, r.supporters[i])
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeCampaignRepo) RecalculateRaised(_ context.Context, campaignID string) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recalcCalls++
	if r.recalcFailures > 0 {
		r.recalcFailures--
		return decimal.Zero, errDatabaseDown
	}
	stored, ok := r.campaigns[campaignID]
	if !ok {
		return decimal.Zero, entity.ErrNotFound
	}
	sum := decimal.Zero
	for _, s := range r.supporters {
		if s.CampaignID == campaignID {
			sum = sum.Add(s.Amount)
		}
	}
	stored.Raised = sum
	return sum, nil
}

func (r *fakeCampaignRepo) sorted() []*entity.Campaign {
	out := make([]*entity.Campaign, 0, len(r.campaigns))
	for _, c := range r.campaigns {
		copied := *c
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func containsFolded(haystack, lowerNeedle string) bool {
	return bytes.Contains(bytes.ToLower([]byte(haystack)), []byte(lowerNeedle))
}

type fakeStorage struct {
	mu        sync.Mutex
	uploads   map[string]string
	deleted   []string
	uploadErr error
	deleteErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{uploads: map[string]string{}}
}

func (s *fakeStorage) UploadFile(key string, body io.Reader, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	if _, err := io.ReadAll(body); err != nil {
		return "", err
	}
	s.uploads[key] = contentType
	return "https://cdn.example.com/" + key, nil
}

func (s *fakeStorage) DeleteFile(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, key)
	return s.deleteErr
}

func (s *fakeStorage) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.uploads))
	for k := range s.uploads {
		keys = append(keys, k)
	}
	return keys
}

type fakePublisher struct {
	mu    sync.Mutex
	tasks []queue.Task
}

func (p *fakePublisher) PublishTask(task queue.Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tasks = append(p.tasks, task)
	return nil
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.tasks))
	for i, t := range p.tasks {
		out[i] = t.Type
	}
	return out
}

func testLogger() *logger.Logger {
	return logger.NewWithWriter(io.Discard, zerolog.Disabled)
}

func imageFile(name string) *entity.File {
	return &entity.File{Name: name, ContentType: "image/png", Body: bytes.NewBufferString("png-bytes")}
}

func validInput(goal string) entity.CampaignInput {
	return entity.CampaignInput{
		Title:           "Cirurgia do Thor",
		Description:     "Ajude o Thor a operar a pata",
		Goal:            goal,
		PixKey:          "thor@pix.com",
		BeneficiaryName: "Ana Souza",
	}
}
