package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/contractflow/contractflow/internal/domain"
	"github.com/contractflow/contractflow/internal/infra/logger"
	"github.com/contractflow/contractflow/internal/policy"
	"github.com/contractflow/contractflow/internal/ports"
	"github.com/google/uuid"
)

// UploadAttachmentRequest carries one uploaded file
type UploadAttachmentRequest struct {
	ContractID string
	FileName   string
	Content    []byte
}

// AttachmentUseCase handles attachment upload and download
type AttachmentUseCase struct {
	store   ports.ContractStore
	blobs   ports.BlobStorage
	log     logger.Logger
	maxSize int64
}

func NewAttachmentUseCase(store ports.ContractStore, blobs ports.BlobStorage, log logger.Logger, maxSize int64) *AttachmentUseCase {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &AttachmentUseCase{store: store, blobs: blobs, log: log, maxSize: maxSize}
}

// StorageKey namespaces attachment content by contract.
func StorageKey(contractID, fileName string) string {
	return fmt.Sprintf("contracts/%s/%s_%s", contractID, uuid.NewString(), fileName)
}

// Upload stores the content and records its metadata. The metadata insert
// locks the contract row, so it cannot interleave with a delete of the same
// contract; content written for a contract that vanished is removed again.
func (uc *AttachmentUseCase) Upload(ctx context.Context, actor *domain.Actor, req UploadAttachmentRequest) (*domain.Attachment, error) {
	fileName := sanitizeFileName(req.FileName)
	if len(req.Content) == 0 {
		return nil, domain.Validation("file is empty")
	}
	if uc.maxSize > 0 && int64(len(req.Content)) > uc.maxSize {
		return nil, domain.Validation(fmt.Sprintf("file exceeds the %d byte limit", uc.maxSize))
	}

	contract, err := uc.store.GetContract(ctx, req.ContractID)
	if err != nil {
		return nil, err
	}
	if !policy.CanManage(actor, contract) {
		return nil, domain.Forbidden("no permission to upload attachments to this contract")
	}

	key, err := uc.blobs.Save(ctx, StorageKey(contract.ID, fileName), req.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to store attachment: %w", err)
	}

	attachment := &domain.Attachment{
		ID:         uuid.NewString(),
		ContractID: contract.ID,
		FileName:   fileName,
		StorageKey: key,
		FileSize:   int64(len(req.Content)),
		CreatedAt:  time.Now().UTC(),
	}

	err = uc.store.WithinTx(ctx, func(ctx context.Context, tx ports.ContractTx) error {
		locked, err := tx.LockContract(ctx, contract.ID)
		if err != nil {
			return err
		}
		if !policy.CanManage(actor, locked) {
			return domain.Forbidden("no permission to upload attachments to this contract")
		}
		if err := tx.InsertAttachment(ctx, attachment); err != nil {
			return fmt.Errorf("failed to insert attachment: %w", err)
		}
		return nil
	})
	if err != nil {
		if delErr := uc.blobs.Delete(ctx, key); delErr != nil {
			uc.log.Warn(ctx, "Failed to remove orphaned attachment content", map[string]interface{}{
				"contract_id": contract.ID,
				"key":         key,
				"error":       delErr.Error(),
			})
		}
		return nil, err
	}

	uc.log.Info(ctx, "Attachment uploaded", map[string]interface{}{
		"contract_id":   contract.ID,
		"attachment_id": attachment.ID,
		"file_size":     attachment.FileSize,
		"user_id":       actor.ID,
	})
	return attachment, nil
}

// Download returns an attachment of a contract visible to actor.
func (uc *AttachmentUseCase) Download(ctx context.Context, actor *domain.Actor, contractID, attachmentID string) (*domain.Attachment, []byte, error) {
	contract, err := uc.store.GetContract(ctx, contractID)
	if err != nil {
		return nil, nil, err
	}
	if !policy.CanView(actor, contract) {
		return nil, nil, domain.Forbidden(errNoViewPermission)
	}

	attachment, err := uc.store.GetAttachment(ctx, attachmentID)
	if err != nil {
		return nil, nil, err
	}
	if attachment.ContractID != contract.ID {
		return nil, nil, domain.NotFound("attachment not found")
	}

	data, err := uc.blobs.Read(ctx, attachment.StorageKey)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return nil, nil, domain.NotFound("attachment file not found")
		}
		return nil, nil, fmt.Errorf("failed to read attachment: %w", err)
	}
	return attachment, data, nil
}

func sanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == "/" || name == "" || name == ".." {
		return "file"
	}
	return name
}
