package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"edrs-docstore/internal/domain/document"
	"edrs-docstore/internal/pathing"
	"edrs-docstore/internal/storage/s3"
	apperrors "edrs-docstore/pkg/errors"

	"github.com/google/uuid"
)

type storeRequest struct {
	key         string
	parts       pathing.KeyParts
	ownerID     int64
	contentType string
	size        int64
	body        io.ReadSeeker
	sourceID    *uuid.UUID
	uploadedAt  time.Time
}

// persist writes the object first and registers it second. Put refuses to overwrite, so
// a failed registry insert removes the object again, and an object found without a
// registry row is replaced rather than reported as a duplicate.
func (s *Service) persist(ctx context.Context, req storeRequest) (*document.Document, error) {
	params := s3.ParamsFor(s3.ObjectParamsInput{
		Key:          req.key,
		ContentType:  req.contentType,
		Size:         req.size,
		Organization: s.resolver.Root(),
		OwnerID:      req.ownerID,
		Type:         req.parts.Type,
		UploadedAt:   req.uploadedAt,
	})

	err := s.put(ctx, req, params)
	if errors.Is(err, apperrors.ErrConflict) {
		err = s.replaceOrphan(ctx, req, params, err)
	}
	if err != nil {
		return nil, err
	}

	d, err := s.docs.Create(ctx, document.CreateInput{
		OwnerID:     req.ownerID,
		RoleFolder:  req.parts.RoleFolder,
		ProjectName: req.parts.ProjectName,
		Type:        req.parts.Type,
		StorageKey:  req.key,
		Filename:    req.parts.Filename,
		SizeBytes:   req.size,
		ContentType: params.ContentType,
		SourceID:    req.sourceID,
		UploadedAt:  req.uploadedAt,
	})
	if err != nil {
		if !errors.Is(err, apperrors.ErrConflict) {
			s.discard(ctx, req.key)
		}
		return nil, err
	}
	return d, nil
}

func (s *Service) put(ctx context.Context, req storeRequest, params s3.ObjectParams) error {
	putCtx, cancel := context.WithTimeout(ctx, s.putTimeout)
	defer cancel()
	return s.store.Put(putCtx, req.key, req.body, params)
}

// replaceOrphan handles a create-only conflict. A registered key stays a Conflict; an
// unregistered object is left over from an upload whose insert failed, so it is removed
// and the put is repeated.
func (s *Service) replaceOrphan(ctx context.Context, req storeRequest, params s3.ObjectParams, conflict error) error {
	_, err := s.docs.GetByKey(ctx, req.key)
	if err == nil {
		return conflict
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}

	log.Printf("Replacing unregistered object %s", req.key)
	if err := s.store.Delete(ctx, req.key); err != nil {
		return err
	}
	if _, err := req.body.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind upload body: %w", err)
	}
	return s.put(ctx, req, params)
}

// discard removes an object whose registry insert failed. It runs even when the request
// context is done; a failure is logged and the orphan is replaced on the next upload.
func (s *Service) discard(ctx context.Context, key string) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if err := s.store.Delete(cleanupCtx, key); err != nil {
		log.Printf("Failed to remove unregistered object %s: %v", key, err)
	}
}
