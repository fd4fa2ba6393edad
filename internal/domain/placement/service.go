package placement

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/carebase/carebase/internal/platform/audit"
	"github.com/carebase/carebase/internal/platform/db"
	"github.com/carebase/carebase/internal/platform/phi"
)

// Service owns the placement lifecycle. PHI fields are encrypted before any
// row reaches the repository and decrypted on the way out; every mutation
// commits atomically with its audit record.
type Service struct {
	repo     Repository
	codec    *phi.Codec
	phiMap   *phi.EntityPHIMap
	recorder audit.Recorder
	runTx    func(ctx context.Context, fn func(ctx context.Context) error) error
}

func NewService(repo Repository, codec *phi.Codec, phiMap *phi.EntityPHIMap, recorder audit.Recorder) *Service {
	return &Service{repo: repo, codec: codec, phiMap: phiMap, recorder: recorder, runTx: db.RunInTx}
}

// encryptRecord returns a copy of p with its PHI columns encrypted.
func (s *Service) encryptRecord(p *PlacementInfo) (*PlacementInfo, error) {
	row, err := s.codec.EncryptEntityFields(p.asRow(), EntityType, s.phiMap)
	if err != nil {
		return nil, fmt.Errorf("encrypt placement fields: %w", err)
	}
	enc := *p
	enc.applyStringColumns(row)
	return &enc, nil
}

// decryptRecord returns a copy of p with its PHI columns decrypted. Fields
// that cannot be decrypted come back empty rather than failing the read.
func (s *Service) decryptRecord(p *PlacementInfo) *PlacementInfo {
	row := s.codec.DecryptEntityFields(p.asRow(), EntityType, s.phiMap)
	dec := *p
	dec.applyStringColumns(row)
	return &dec
}

func (s *Service) CreatePlacement(ctx context.Context, p *PlacementInfo) error {
	if p.ResidentName == "" {
		return fmt.Errorf("resident name is required")
	}
	if p.FacilityID == uuid.Nil {
		return fmt.Errorf("facility is required")
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = "active"
	}

	enc, err := s.encryptRecord(p)
	if err != nil {
		return err
	}

	return s.runTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, enc); err != nil {
			return fmt.Errorf("create placement: %w", err)
		}
		rec := audit.NewInsert(ctx, EntityType, enc.ID.String(), enc.asRow())
		return s.recorder.Record(ctx, rec)
	})
}

func (s *Service) GetPlacement(ctx context.Context, id uuid.UUID) (*PlacementInfo, error) {
	stored, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.decryptRecord(stored), nil
}

func (s *Service) ListPlacements(ctx context.Context, facilityID uuid.UUID, limit, offset int) ([]*PlacementInfo, int, error) {
	stored, total, err := s.repo.ListByFacility(ctx, facilityID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	placements := make([]*PlacementInfo, len(stored))
	for i, p := range stored {
		placements[i] = s.decryptRecord(p)
	}
	return placements, total, nil
}

func (s *Service) UpdatePlacement(ctx context.Context, p *PlacementInfo) error {
	oldStored, err := s.repo.GetByID(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("load placement: %w", err)
	}
	oldPlain := s.decryptRecord(oldStored)

	// Placements do not move between facilities through updates.
	p.FacilityID = oldStored.FacilityID
	p.AdmissionDate = oldStored.AdmissionDate

	// Encryption produces a fresh IV on every pass, so ciphertext always
	// differs even for identical plaintext. Effective-change detection must
	// run on the plaintext rows; the stored row images in the audit record
	// stay encrypted so the trail never holds readable PHI.
	changed := audit.ChangedFields(oldPlain.asRow(), p.asRow())
	if len(changed) == 0 {
		return nil
	}

	newStored, err := s.encryptRecord(p)
	if err != nil {
		return err
	}

	return s.runTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, newStored); err != nil {
			return fmt.Errorf("update placement: %w", err)
		}
		rec, ok := audit.NewUpdate(ctx, EntityType, p.ID.String(), oldStored.asRow(), newStored.asRow())
		if !ok {
			return nil
		}
		rec.ChangedFields = changed
		return s.recorder.Record(ctx, rec)
	})
}

func (s *Service) DeletePlacement(ctx context.Context, id uuid.UUID) error {
	oldStored, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load placement: %w", err)
	}

	return s.runTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete placement: %w", err)
		}
		rec := audit.NewDelete(ctx, EntityType, id.String(), oldStored.asRow())
		return s.recorder.Record(ctx, rec)
	})
}
