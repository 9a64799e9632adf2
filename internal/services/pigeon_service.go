package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/farrukhll0/pigeon-management-system/internal/models"
	"github.com/farrukhll0/pigeon-management-system/internal/repositories"
	"github.com/farrukhll0/pigeon-management-system/pkg/inlineimage"
)

const maxPigeonNameLen = 100

// PigeonInput is the create/update payload. A nil field is left unchanged on
// update; an empty string clears it.
type PigeonInput struct {
	Name         *string              `json:"name" validate:"omitempty,max=100"`
	RingNumber   *string              `json:"ringNumber" validate:"omitempty,max=50"`
	DateOfBirth  *string              `json:"dateOfBirth"`
	Color        *string              `json:"color" validate:"omitempty,max=50"`
	Sex          *string              `json:"sex" validate:"omitempty,oneof=Male Female Unknown"`
	Strain       *string              `json:"strain" validate:"omitempty,max=100"`
	Breeder      *string              `json:"breeder" validate:"omitempty,max=100"`
	Notes        *string              `json:"notes" validate:"omitempty,max=1000"`
	Achievements []string             `json:"achievements" validate:"omitempty,max=50,dive,max=200"`
	RaceResults  []models.RaceResult  `json:"raceResults" validate:"omitempty,max=200,dive"`
	Vaccinations []models.Vaccination `json:"vaccinations" validate:"omitempty,max=200,dive"`
	Images       []string             `json:"images" validate:"omitempty,max=3"`
	FatherName   *string              `json:"fatherName" validate:"omitempty,max=100"`
	MotherName   *string              `json:"motherName" validate:"omitempty,max=100"`
	PigeonImage  *string              `json:"pigeonImage"`
	FatherImage  *string              `json:"fatherImage"`
	MotherImage  *string              `json:"motherImage"`
	Pedigree     *models.Pedigree     `json:"pedigree"`
}

// PigeonService handles pigeon records, restricting every access to the owner.
type PigeonService struct {
	repo          repositories.PigeonRepository
	events        EventPublisher
	maxImageBytes int
}

// NewPigeonService creates a new PigeonService. events may be nil.
func NewPigeonService(repo repositories.PigeonRepository, events EventPublisher, maxImageBytes int) *PigeonService {
	return &PigeonService{
		repo:          repo,
		events:        events,
		maxImageBytes: maxImageBytes,
	}
}

// List returns the owner's pigeons, newest first.
func (s *PigeonService) List(ctx context.Context, ownerID string, filter models.PigeonFilter) ([]models.Pigeon, error) {
	pigeons, err := s.repo.ListByOwner(ctx, ownerID, filter)
	if err != nil {
		return nil, storeError("failed to list pigeons", err)
	}
	return pigeons, nil
}

// Get returns a pigeon owned by ownerID.
func (s *PigeonService) Get(ctx context.Context, id, ownerID string) (*models.Pigeon, error) {
	return s.loadOwned(ctx, id, ownerID)
}

// Create stores a new pigeon owned by ownerID.
func (s *PigeonService) Create(ctx context.Context, ownerID string, in PigeonInput) (*models.Pigeon, error) {
	if ownerID == "" {
		return nil, ErrForbidden
	}
	pigeon := &models.Pigeon{
		OwnerID:      ownerID,
		Sex:          models.SexUnknown,
		Achievements: []string{},
		RaceResults:  []models.RaceResult{},
		Vaccinations: []models.Vaccination{},
		Images:       []string{},
	}

	verr := s.apply(pigeon, in)
	if in.Name == nil || pigeon.Name == "" {
		verr.add("name", "Pigeon name is required")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, pigeon); err != nil {
		return nil, storeError("failed to create pigeon", err)
	}
	log.Printf("Created pigeon %s for user %s", pigeon.ID, ownerID)
	publishEvent(s.events, ActivityEvent{Event: EventPigeonCreated, UserID: ownerID, PigeonID: pigeon.ID})
	return pigeon, nil
}

// Update merges the supplied fields into a pigeon owned by ownerID.
func (s *PigeonService) Update(ctx context.Context, id, ownerID string, in PigeonInput) (*models.Pigeon, error) {
	pigeon, err := s.loadOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	verr := s.apply(pigeon, in)
	if in.Name != nil && pigeon.Name == "" {
		verr.add("name", "Pigeon name is required")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, pigeon); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeError("failed to update pigeon", err)
	}
	publishEvent(s.events, ActivityEvent{Event: EventPigeonUpdated, UserID: ownerID, PigeonID: pigeon.ID})
	return pigeon, nil
}

// Delete removes a pigeon owned by ownerID.
func (s *PigeonService) Delete(ctx context.Context, id, ownerID string) error {
	if _, err := s.loadOwned(ctx, id, ownerID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return storeError("failed to delete pigeon", err)
	}
	log.Printf("Deleted pigeon %s for user %s", id, ownerID)
	publishEvent(s.events, ActivityEvent{Event: EventPigeonDeleted, UserID: ownerID, PigeonID: id})
	return nil
}

// loadOwned fetches a pigeon and checks that ownerID owns it.
func (s *PigeonService) loadOwned(ctx context.Context, id, ownerID string) (*models.Pigeon, error) {
	pigeon, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeError("failed to load pigeon", err)
	}
	if ownerID == "" || pigeon.OwnerID != ownerID {
		log.Printf("User %s denied access to pigeon %s", ownerID, id)
		return nil, ErrForbidden
	}
	return pigeon, nil
}

// apply copies the non-nil input fields onto p, normalising text and images.
func (s *PigeonService) apply(p *models.Pigeon, in PigeonInput) *ValidationError {
	verr := &ValidationError{}

	setText(&p.Name, in.Name)
	if utf8.RuneCountInString(p.Name) > maxPigeonNameLen {
		verr.add("name", fmt.Sprintf("Name cannot be more than %d characters", maxPigeonNameLen))
	}
	setText(&p.RingNumber, in.RingNumber)
	setText(&p.Color, in.Color)
	setText(&p.Strain, in.Strain)
	setText(&p.Breeder, in.Breeder)
	setText(&p.Notes, in.Notes)
	setText(&p.FatherName, in.FatherName)
	setText(&p.MotherName, in.MotherName)

	if in.Sex != nil {
		switch sex := strings.TrimSpace(*in.Sex); sex {
		case "":
			p.Sex = models.SexUnknown
		case models.SexMale, models.SexFemale, models.SexUnknown:
			p.Sex = sex
		default:
			verr.add("sex", "Sex must be Male, Female, or Unknown")
		}
	}

	if in.DateOfBirth != nil {
		if raw := strings.TrimSpace(*in.DateOfBirth); raw == "" {
			p.DateOfBirth = nil
		} else if d, err := models.ParseDate(raw); err != nil {
			verr.add("dateOfBirth", "Date of birth must be YYYY-MM-DD")
		} else {
			p.DateOfBirth = &d
		}
	}

	if in.Achievements != nil {
		achievements := make([]string, 0, len(in.Achievements))
		for _, a := range in.Achievements {
			if a = strings.TrimSpace(a); a != "" {
				achievements = append(achievements, a)
			}
		}
		p.Achievements = achievements
	}
	if in.RaceResults != nil {
		p.RaceResults = in.RaceResults
		for i := range p.RaceResults {
			p.RaceResults[i].Date = dropZeroDate(p.RaceResults[i].Date)
		}
	}
	if in.Vaccinations != nil {
		p.Vaccinations = in.Vaccinations
		for i := range p.Vaccinations {
			p.Vaccinations[i].Date = dropZeroDate(p.Vaccinations[i].Date)
		}
	}

	s.setImage(verr, "pigeonImage", &p.PigeonImage, in.PigeonImage)
	s.setImage(verr, "fatherImage", &p.FatherImage, in.FatherImage)
	s.setImage(verr, "motherImage", &p.MotherImage, in.MotherImage)
	if in.Images != nil {
		gallery := make([]string, 0, len(in.Images))
		for i, raw := range in.Images {
			img, err := inlineimage.Normalize(raw, s.maxImageBytes)
			if err != nil {
				verr.add(fmt.Sprintf("images[%d]", i), imageMessage(err))
				continue
			}
			if img != "" {
				gallery = append(gallery, img)
			}
		}
		p.Images = gallery
	}

	if in.Pedigree != nil {
		s.mergePedigree(verr, &p.Pedigree, in.Pedigree)
	}
	return verr
}

// mergePedigree replaces each tier present in src; a tier with neither name
// nor image removes the ancestor.
func (s *PigeonService) mergePedigree(verr *ValidationError, dst, src *models.Pedigree) {
	dstTiers := dst.Tiers()
	for tier, slot := range src.Tiers() {
		in := *slot
		if in == nil {
			continue
		}
		name := strings.TrimSpace(in.Name)
		if name == "" && strings.TrimSpace(in.Image) == "" {
			*dstTiers[tier] = nil
			continue
		}
		image, err := inlineimage.Normalize(in.Image, s.maxImageBytes)
		if err != nil {
			verr.add("pedigree."+tier+".image", imageMessage(err))
			continue
		}
		*dstTiers[tier] = &models.Ancestor{Name: name, Image: image}
	}
}

func (s *PigeonService) setImage(verr *ValidationError, field string, dst *string, src *string) {
	if src == nil {
		return
	}
	image, err := inlineimage.Normalize(*src, s.maxImageBytes)
	if err != nil {
		verr.add(field, imageMessage(err))
		return
	}
	*dst = image
}

// dropZeroDate turns a blank date into an absent one.
func dropZeroDate(d *models.Date) *models.Date {
	if d == nil || d.IsZero() {
		return nil
	}
	return d
}

func setText(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}
