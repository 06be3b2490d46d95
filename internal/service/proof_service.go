package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/liu0521613/StudArch-sub001/internal/models"
	appErrors "github.com/liu0521613/StudArch-sub001/pkg/errors"
	"github.com/liu0521613/StudArch-sub001/pkg/storage"
)

var allowedProofExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// ProofService stores supporting documents for reviewable records and issues
// time-limited signed download links, so proof files are never served off an
// open path.
type ProofService struct {
	files   *storage.LocalStorage
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	maxSize int64
}

// NewProofService constructs the service. maxSize caps one upload in bytes;
// zero means 10 MiB.
func NewProofService(files *storage.LocalStorage, signer *storage.SignedURLSigner, logger *zap.Logger, maxSize int64) *ProofService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxSize <= 0 {
		maxSize = 10 << 20
	}
	return &ProofService{files: files, signer: signer, logger: logger, maxSize: maxSize}
}

// Upload stores one proof file under the owner's directory and returns the
// stored relative path for embedding in a record's proof_files list.
func (s *ProofService) Upload(ctx context.Context, ownerID, fileName string, size int64, r io.Reader) (string, error) {
	if ownerID == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "owner is required")
	}
	ext := strings.ToLower(path.Ext(fileName))
	if !allowedProofExtensions[ext] {
		return "", appErrors.Clone(appErrors.ErrValidation, "only pdf, png and jpeg proof files are accepted")
	}
	if size > s.maxSize {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds the %d byte limit", s.maxSize))
	}

	relPath := path.Join("proofs", ownerID, uuid.NewString()+ext)
	stored, err := s.files.SaveStream(relPath, io.LimitReader(r, s.maxSize))
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store proof file")
	}
	s.logger.Info("proof file stored", zap.String("owner_id", ownerID), zap.String("path", stored))
	return stored, nil
}

// SignedLink issues a download token for a proof file attached to a record.
// The caller is responsible for scope-checking the record first.
func (s *ProofService) SignedLink(record *models.ReviewableRecord, relPath string) (string, time.Time, error) {
	if record == nil {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrValidation, "record is required")
	}
	attached := false
	for _, f := range record.ProofFiles {
		if f == relPath {
			attached = true
			break
		}
	}
	if !attached {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrNotFound, "file is not attached to this record")
	}
	token, expiresAt, err := s.signer.Generate(record.ID, relPath)
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}
	return token, expiresAt, nil
}

// OpenByToken validates a signed token and opens the referenced file.
func (s *ProofService) OpenByToken(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download link")
	}
	file, err := s.files.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "file no longer available")
	}
	return file, path.Base(relPath), nil
}
