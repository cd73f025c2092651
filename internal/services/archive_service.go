// internal/services/archive_service.go
package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/sirupsen/logrus"

	"github.com/framelock/capture-backend/internal/config"
)

// ArchiveService mirrors every published metadata document into an S3 bucket.
// Purely best-effort: the storage network is the document's canonical home
// and archive failures are logged, never propagated.
type ArchiveService struct {
	s3Client *s3.S3
	config   *config.Config
}

func NewArchiveService(cfg *config.Config) (*ArchiveService, error) {
	if cfg.AWS.AccessKeyID == "" {
		// Return service without S3 for local development
		return &ArchiveService{config: cfg}, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.AWS.Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.AWS.AccessKeyID,
			cfg.AWS.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &ArchiveService{
		s3Client: s3.New(sess),
		config:   cfg,
	}, nil
}

// ArchiveDocument stores a published document under its content identifier.
func (s *ArchiveService) ArchiveDocument(cid string, doc interface{}) {
	if s.s3Client == nil {
		return
	}

	body, err := json.Marshal(doc)
	if err != nil {
		logrus.WithError(err).WithField("cid", cid).Warn("Failed to serialize document for archive")
		return
	}

	key := fmt.Sprintf("metadata/%s/%s.json", time.Now().UTC().Format("2006/01/02"), cid)

	_, err = s.s3Client.PutObject(&s3.PutObjectInput{
		Bucket:        aws.String(s.config.AWS.S3Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		logrus.WithError(err).WithField("cid", cid).Warn("Failed to archive document")
		return
	}

	logrus.WithFields(logrus.Fields{"cid": cid, "key": key}).Debug("Document archived")
}
